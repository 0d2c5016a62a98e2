package memory

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"google.golang.org/adk/model"

	"github.com/easeaico/sophos/internal/metrics"
	"github.com/easeaico/sophos/internal/models"
	"github.com/easeaico/sophos/internal/prompt"
	"github.com/easeaico/sophos/internal/types"
	"github.com/easeaico/sophos/internal/utils"
)

const (
	FactCurrentDate = "data_atual"
	FactChild       = "filho"
)

var (
	todayPattern = regexp.MustCompile(`hoje\s+(?:é\s+dia\s+|é\s+)?(\d{1,2}/\d{1,2}/\d{2,4})`)
	childPhrase  = "meu filho é"
)

// FactExtractor asks the model for facts worth remembering.
type FactExtractor struct {
	llm model.LLM
}

// NewFactExtractor returns a FactExtractor.
func NewFactExtractor(llm model.LLM) *FactExtractor {
	return &FactExtractor{llm: llm}
}

// Extract returns the facts found in text. Failures yield an empty map.
func (e *FactExtractor) Extract(ctx context.Context, userID, text string) map[string]string {
	raw, err := models.GenerateText(ctx, e.llm, prompt.FactRequest(text))
	if err != nil {
		metrics.GenerationFailures.WithLabelValues("fact_extractor").Inc()
		slog.Warn("fact extraction failed", "user_id", userID, "error", err.Error())
		return map[string]string{}
	}
	facts, err := utils.ParseFlatObject(raw)
	if err != nil {
		slog.Warn("fact extraction returned malformed output", "user_id", userID, "error", err.Error())
		return map[string]string{}
	}
	return facts
}

// MergeFacts writes new values into state and returns only the keys whose
// value changed or did not exist before.
func MergeFacts(state *types.UserMemoryState, newFacts map[string]string, now time.Time) map[string]string {
	changed := make(map[string]string)
	for key, value := range newFacts {
		if current, ok := state.Facts[key]; ok && current.Value == value {
			continue
		}
		state.Facts[key] = types.Fact{Value: value, UpdatedAt: now}
		changed[key] = value
	}
	return changed
}

// DetectToday parses "hoje é dia D/M/Y" and returns the date as YYYY-MM-DD.
func DetectToday(text string) (string, bool) {
	match := todayPattern.FindStringSubmatch(strings.ToLower(text))
	if match == nil {
		return "", false
	}
	for _, layout := range []string{"2/1/06", "2/1/2006"} {
		if t, err := time.Parse(layout, match[1]); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

// DetectChild returns the first word after "meu filho é".
func DetectChild(text string) (string, bool) {
	lower := strings.ToLower(text)
	idx := strings.LastIndex(lower, childPhrase)
	if idx < 0 {
		return "", false
	}
	rest := lower[idx+len(childPhrase):]
	if len(lower) == len(text) {
		rest = text[idx+len(childPhrase):]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	name := strings.TrimRight(fields[0], ".,;:!?")
	if name == "" {
		return "", false
	}
	return name, true
}

// PatternFacts applies the always-on pattern rules.
func PatternFacts(text string) map[string]string {
	facts := make(map[string]string)
	if date, ok := DetectToday(text); ok {
		facts[FactCurrentDate] = date
	}
	if name, ok := DetectChild(text); ok {
		facts[FactChild] = name
	}
	return facts
}
