package cli

import "testing"

func TestIsYes(t *testing.T) {
	for answer, want := range map[string]bool{
		"y":     true,
		"YES":   true,
		" yes ": true,
		"":      false,
		"n":     false,
		"yep":   false,
	} {
		if got := isYes(answer); got != want {
			t.Errorf("isYes(%q) = %v, want %v", answer, got, want)
		}
	}
}
