package strings

import (
	"strings"
)

// DefaultDescriptionMaxLen is the maximum description width in list tables.
const DefaultDescriptionMaxLen = 60

// DefaultListMaxLen is the maximum width of a joined list cell (sources,
// destinations, tags) in list tables.
const DefaultListMaxLen = 40

// MinTruncateLen is the minimum maxLen value for TruncateDescription.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// EmptyCell is rendered for absent values in table output.
const EmptyCell = "-"

// TruncateDescription truncates s to maxLen runes and forces single-line output.
// Whitespace runs (including newlines) collapse to one space and "..." marks
// truncation. maxLen is clamped to MinTruncateLen.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// JoinList renders a list cell: items joined by ", ", truncated to maxLen, or
// EmptyCell when there are no items.
func JoinList(items []string, maxLen int) string {
	if len(items) == 0 {
		return EmptyCell
	}
	return TruncateDescription(strings.Join(items, ", "), maxLen)
}

// OrEmpty returns s, or EmptyCell when s is blank.
func OrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return EmptyCell
	}
	return s
}
