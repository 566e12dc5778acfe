package cli

import (
	"errors"
	"fmt"

	"scmcicd/internal/policy"
	"scmcicd/internal/scm"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates every record was applied.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error or at least one failed record.
	ExitCodeError = 1
	// ExitCodeAuthFailed indicates the credentials were rejected.
	ExitCodeAuthFailed = 2
	// ExitCodeConnection indicates the store could not be reached.
	ExitCodeConnection = 3
	// ExitCodeInvalidInput indicates an input file could not be read or parsed.
	ExitCodeInvalidInput = 4
)

// AuthFailedError indicates the store rejected the service account.
type AuthFailedError struct {
	// ConfigPath is the directory settings were read from.
	ConfigPath string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`%v

Settings were read from %s`, e.Reason, e.ConfigPath)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// ConnectionFailedError indicates the store could not be reached.
type ConnectionFailedError struct {
	Reason *scm.ConnectionError
}

// Error returns the failure with a hint matching its type.
func (e *ConnectionFailedError) Error() string {
	var hint string
	switch e.Reason.Type {
	case scm.ConnectionErrorTLS:
		hint = "Check that api_base_url and token_url use the right host and that its certificate is trusted."
	case scm.ConnectionErrorDNS:
		hint = "Check the host names in api_base_url and token_url."
	case scm.ConnectionErrorTimeout:
		hint = "The store did not answer in time; raise the timeout setting or retry later."
	default:
		hint = "Check network access to the store."
	}
	return fmt.Sprintf("%v\n\n%s", e.Reason, hint)
}

// Unwrap returns the underlying error.
func (e *ConnectionFailedError) Unwrap() error {
	return e.Reason
}

// InvalidInputError indicates an input file or argument could not be used.
type InvalidInputError struct {
	Reason error
}

func (e *InvalidInputError) Error() string {
	return e.Reason.Error()
}

// Unwrap returns the underlying error.
func (e *InvalidInputError) Unwrap() error {
	return e.Reason
}

// RecordFailuresError is returned when a run finished but some records failed.
type RecordFailuresError struct {
	Failed int
	Total  int
}

func (e *RecordFailuresError) Error() string {
	return fmt.Sprintf("%d of %d record(s) failed", e.Failed, e.Total)
}

// CommitFailedError is returned when the commit job did not succeed.
type CommitFailedError struct {
	Reason string
}

func (e *CommitFailedError) Error() string {
	return fmt.Sprintf("commit failed: %s", e.Reason)
}

// Explain wraps fatal store errors into their CLI counterparts so the user
// gets guidance and the process the right exit code. Other errors are
// returned unchanged.
func Explain(err error, configPath string) error {
	if err == nil {
		return nil
	}
	var authErr *scm.AuthError
	if errors.As(err, &authErr) {
		return &AuthFailedError{ConfigPath: configPath, Reason: err}
	}
	var connErr *scm.ConnectionError
	if errors.As(err, &connErr) {
		return &ConnectionFailedError{Reason: connErr}
	}
	var loadErr *policy.LoadError
	if errors.As(err, &loadErr) {
		return &InvalidInputError{Reason: err}
	}
	return err
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authFailed *AuthFailedError
	var authErr *scm.AuthError
	if errors.As(err, &authFailed) || errors.As(err, &authErr) {
		return ExitCodeAuthFailed
	}

	var connFailed *ConnectionFailedError
	var connErr *scm.ConnectionError
	if errors.As(err, &connFailed) || errors.As(err, &connErr) {
		return ExitCodeConnection
	}

	var invalid *InvalidInputError
	var loadErr *policy.LoadError
	if errors.As(err, &invalid) || errors.As(err, &loadErr) {
		return ExitCodeInvalidInput
	}

	return ExitCodeError
}
