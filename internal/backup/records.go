// Package backup exports user state as JSON, tab-separated and spreadsheet
// listings and delivers them to local or S3 sinks.
package backup

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/easeaico/sophos/internal/types"
)

// Record is one row of the tabular export.
type Record struct {
	Type  string
	Value string
	Date  time.Time
}

// Records flattens every timestamped entry of state into rows.
func Records(state *types.UserMemoryState) []Record {
	var out []Record
	for _, e := range state.RawContext {
		out = append(out, Record{Type: "contexto", Value: e.Text, Date: e.Timestamp})
	}
	if state.Summary != nil {
		out = append(out, Record{Type: "resumo", Value: state.Summary.Text, Date: state.Summary.Timestamp})
	}
	for _, key := range sortedKeys(state.Facts) {
		f := state.Facts[key]
		out = append(out, Record{Type: "memoria", Value: key + ": " + f.Value, Date: f.UpdatedAt})
	}
	for _, e := range state.EmotionLog {
		out = append(out, Record{Type: "emocao", Value: e.Emotion, Date: e.Timestamp})
	}
	for _, topic := range sortedKeys(state.TopicLog) {
		for _, e := range state.TopicLog[topic] {
			out = append(out, Record{Type: "tema:" + topic, Value: e.Text, Date: e.Timestamp})
		}
	}
	for _, topic := range sortedKeys(state.EmotionByTopic) {
		for _, e := range state.EmotionByTopic[topic] {
			out = append(out, Record{Type: "score_emocional:" + topic, Value: e.Emotion, Date: e.Timestamp})
		}
	}
	for _, e := range state.FeedbackLog {
		out = append(out, Record{Type: "feedback:" + e.Kind, Value: string(e.Signal), Date: e.Timestamp})
	}
	if state.Profile != nil {
		out = append(out, Record{Type: "perfil", Value: state.Profile.Label, Date: state.Profile.Timestamp})
	}
	return out
}

// WriteTSV writes records with a "tipo, valor, data" header.
func WriteTSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"tipo", "valor", "data"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Type, r.Value, formatDate(r)}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(r Record) string {
	if r.Date.IsZero() {
		return ""
	}
	return r.Date.Format(time.RFC3339)
}

// WriteJSON writes the whole state as indented JSON.
func WriteJSON(w io.Writer, state *types.UserMemoryState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
