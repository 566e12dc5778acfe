package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress runs fn behind a spinner on stderr. The spinner is shown only when
// stderr is a terminal and quiet is false; fn runs either way.
func Progress(quiet bool, message string, fn func() error) error {
	return progressTo(os.Stderr, quiet || !IsTerminal(os.Stderr), message, fn)
}

func progressTo(w io.Writer, hidden bool, message string, fn func() error) error {
	if hidden {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()

	err := fn()
	if err != nil {
		s.FinalMSG = fmt.Sprintf("%s %s\n", text.FgRed.Sprint("✗"), message)
	}
	s.Stop()
	return err
}
