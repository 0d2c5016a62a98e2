package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeaico/sophos/internal/types"
)

// ErrEmpty is returned when a state has nothing worth exporting.
var ErrEmpty = errors.New("nothing to export")

// File is one rendered export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Render builds the JSON snapshot plus the tabular listing of state as TSV and XLSX.
func Render(state *types.UserMemoryState, now time.Time) ([]File, error) {
	records := Records(state)
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	base := fmt.Sprintf("sophos_%s_%s", state.UserID, now.UTC().Format("20060102T150405Z"))

	var tsv bytes.Buffer
	if err := WriteTSV(&tsv, records); err != nil {
		return nil, err
	}
	var js bytes.Buffer
	if err := WriteJSON(&js, state); err != nil {
		return nil, err
	}
	var sheet bytes.Buffer
	if err := WriteXLSX(&sheet, records); err != nil {
		return nil, err
	}

	return []File{
		{Name: base + ".txt", ContentType: "text/tab-separated-values; charset=utf-8", Data: tsv.Bytes()},
		{Name: base + ".json", ContentType: "application/json", Data: js.Bytes()},
		{Name: base + ".xlsx", ContentType: xlsxContentType, Data: sheet.Bytes()},
	}, nil
}

// Exporter renders a state and hands every file to each sink.
type Exporter struct {
	sinks []Sink
	now   func() time.Time
}

// NewExporter returns an Exporter over sinks.
func NewExporter(sinks ...Sink) *Exporter {
	return &Exporter{sinks: sinks, now: time.Now}
}

// Export returns the rendered files and the locations they were written to.
// A failing sink is reported but does not stop the others.
func (e *Exporter) Export(ctx context.Context, state *types.UserMemoryState) ([]File, []string, error) {
	files, err := Render(state, e.now())
	if err != nil {
		return nil, nil, err
	}

	var locations []string
	var errs []error
	for _, sink := range e.sinks {
		for _, f := range files {
			loc, err := sink.Put(ctx, f.Name, f.ContentType, f.Data)
			if err != nil {
				slog.Error("failed to store export", "user_id", state.UserID, "file", f.Name, "error", err.Error())
				errs = append(errs, err)
				continue
			}
			locations = append(locations, loc)
		}
	}
	return files, locations, errors.Join(errs...)
}
