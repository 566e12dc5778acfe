package strings

import (
	"testing"
)

func TestTruncateDescription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "allow web",
			maxLen:   10,
			expected: "allow web",
		},
		{
			name:     "exact length unchanged",
			input:    "hello",
			maxLen:   5,
			expected: "hello",
		},
		{
			name:     "long string truncated",
			input:    "allow outbound web traffic from trust",
			maxLen:   15,
			expected: "allow outbou...",
		},
		{
			name:     "newlines collapsed",
			input:    "managed by\n\nci",
			maxLen:   20,
			expected: "managed by ci",
		},
		{
			name:     "maxLen clamped to minimum",
			input:    "abcdefgh",
			maxLen:   1,
			expected: "a...",
		},
		{
			name:     "unicode is not split",
			input:    "ünïcödé-rule-name",
			maxLen:   8,
			expected: "ünïcö...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateDescription(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateDescription(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestJoinList(t *testing.T) {
	tests := []struct {
		name     string
		items    []string
		maxLen   int
		expected string
	}{
		{"nil list", nil, 10, EmptyCell},
		{"single item", []string{"any"}, 10, "any"},
		{"joined", []string{"trust", "dmz"}, 20, "trust, dmz"},
		{"truncated", []string{"10.0.0.0/8", "192.168.0.0/16"}, 12, "10.0.0.0/..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinList(tt.items, tt.maxLen); got != tt.expected {
				t.Errorf("JoinList(%v, %d) = %q, want %q", tt.items, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestOrEmpty(t *testing.T) {
	if got := OrEmpty("  "); got != EmptyCell {
		t.Errorf("OrEmpty(blank) = %q, want %q", got, EmptyCell)
	}
	if got := OrEmpty("web"); got != "web" {
		t.Errorf("OrEmpty(web) = %q, want web", got)
	}
}
