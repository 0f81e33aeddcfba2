package strutil

import "strings"

// ExtractJSON pulls the first JSON object out of a model response that may
// wrap it in prose or a code fence. Returns the input unchanged when no
// object delimiters are found.
func ExtractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
