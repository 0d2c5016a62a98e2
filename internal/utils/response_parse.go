package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractJSONObject returns the outermost {...} span of raw, dropping any
// prose or code fences the model wrapped around it.
func ExtractJSONObject(raw string) string {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	return clean
}

// ParseFlatObject parses model output as a flat key -> string object.
// Scalars are stringified; nulls, nested values and blank keys are dropped.
func ParseFlatObject(raw string) (map[string]string, error) {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(ExtractJSONObject(raw)), &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse json object: %w", err)
	}

	out := make(map[string]string, len(decoded))
	for key, value := range decoded {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		switch v := value.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out[key] = s
			}
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(v)
		}
	}
	return out, nil
}
