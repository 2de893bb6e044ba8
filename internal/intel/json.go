package intel

import "strings"

// stripFences removes a surrounding markdown code fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// cleanJSON extracts a JSON object from model output that may carry code
// fences or prose around it.
func cleanJSON(text string) string {
	return between(stripFences(text), "{", "}")
}

// cleanJSONArray extracts a JSON array from model output.
func cleanJSONArray(text string) string {
	return between(stripFences(text), "[", "]")
}

func between(text, open, close string) string {
	start := strings.Index(text, open)
	end := strings.LastIndex(text, close)
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
