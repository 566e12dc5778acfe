package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// ErrNotConfirmed is returned when the user declines a prompt.
var ErrNotConfirmed = errors.New("aborted by user")

// ErrNonInteractive is returned when a prompt is needed but stdin is not a
// terminal.
var ErrNonInteractive = errors.New("confirmation required but stdin is not a terminal; pass --yes")

// Confirm asks a yes/no question on the terminal. It returns nil only for an
// explicit yes.
func Confirm(question string) error {
	if !readline.IsTerminal(int(os.Stdin.Fd())) {
		return ErrNonInteractive
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          question + " [y/N]: ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return ErrNotConfirmed
	}
	if err != nil {
		return fmt.Errorf("failed to read answer: %w", err)
	}
	if !isYes(line) {
		return ErrNotConfirmed
	}
	return nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
