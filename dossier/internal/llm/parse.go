package llm

import (
	"encoding/json"
	"strings"
)

// parseFields turns a model response into a field map: JSON first, then a
// line-oriented "key: value" fallback for models that ignore the JSON
// instruction. Never fails; at worst returns an empty map.
func parseFields(text string) map[string]any {
	cleaned := stripFences(text)

	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err == nil && m != nil {
		return m
	}
	return parseKeyValues(cleaned)
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		t = t[i+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// parseKeyValues reads "key: value" lines. Keys are lowercased with spaces
// replaced by underscores; bracketed values are decoded as JSON arrays when
// they parse.
func parseKeyValues(text string) map[string]any {
	out := make(map[string]any)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
			var list []any
			if err := json.Unmarshal([]byte(value), &list); err == nil {
				out[key] = list
				continue
			}
		}
		out[key] = value
	}
	return out
}
