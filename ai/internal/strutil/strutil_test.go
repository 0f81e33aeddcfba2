package strutil

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"héllo wörld", 5, "héllo..."},
		{"", 5, ""},
		{"hello", 0, ""},
		{"hello", -1, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapper", `Here you go: {"a":1}. Done.`, `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"no object", "plain text", "plain text"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		if got := ExtractJSON(tt.in); got != tt.want {
			t.Errorf("%s: ExtractJSON(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}
}
