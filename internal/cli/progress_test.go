package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressRunsFunction(t *testing.T) {
	for _, hidden := range []bool{true, false} {
		called := false
		err := progressTo(&bytes.Buffer{}, hidden, "Working", func() error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, called)
	}
}

func TestProgressReturnsError(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, progressTo(&bytes.Buffer{}, false, "Working", func() error { return boom }), boom)
	assert.ErrorIs(t, Progress(true, "Working", func() error { return boom }), boom)
}
