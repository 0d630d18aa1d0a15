// Package cmdutil holds helpers shared by the command implementations.
package cmdutil

import (
	"context"
	"errors"
	"io"
	"syscall"

	"rnadiff/internal/rnaerr"
)

// Exit statuses beyond the rnaerr classification.
const (
	ExitOK        = 0
	ExitUsage     = 2
	ExitCancelled = 130
)

// UsageError marks bad flags or arguments.
type UsageError struct{ Err error }

func (e UsageError) Error() string { return e.Err.Error() }
func (e UsageError) Unwrap() error { return e.Err }

// IsBrokenPipe reports whether an error is a broken pipe / closed pipe.
// Downstream consumers like `head` close early; that is not a failure.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	var usage UsageError
	switch {
	case err == nil, IsBrokenPipe(err):
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.As(err, &usage):
		return ExitUsage
	default:
		return rnaerr.ExitCode(err)
	}
}
