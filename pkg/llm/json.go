package llm

import "strings"

// ExtractJSON pulls a JSON object out of a model response that may be wrapped
// in markdown code fences or surrounded by prose. Returns the raw input when
// no fenced block or object braces are found; the caller's json.Unmarshal is
// the real validator.
func ExtractJSON(text string) string {
	clean := strings.TrimSpace(text)

	if i := strings.Index(clean, "```json"); i >= 0 {
		clean = clean[i+len("```json"):]
		if j := strings.Index(clean, "```"); j >= 0 {
			clean = clean[:j]
		}
		return strings.TrimSpace(clean)
	}
	if i := strings.Index(clean, "```"); i >= 0 {
		clean = clean[i+3:]
		if j := strings.Index(clean, "```"); j >= 0 {
			clean = clean[:j]
		}
		return strings.TrimSpace(clean)
	}

	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		return clean[start : end+1]
	}
	return clean
}
