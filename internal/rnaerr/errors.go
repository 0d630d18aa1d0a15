// Package rnaerr classifies analysis failures so the CLI can map them to exit codes.
package rnaerr

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema marks a design or contrast that names a covariate or level the metadata lacks.
	ErrSchema = errors.New("schema error")
	// ErrShape marks malformed inputs: mismatched sample ids, ragged rows, negative or non-integer counts.
	ErrShape = errors.New("shape error")
	// ErrDegenerate marks inputs that cannot support a fit (no genes, single-level factor, rank deficiency).
	ErrDegenerate = errors.New("degenerate data")
	// ErrIO marks unreadable inputs and unwritable outputs.
	ErrIO = errors.New("i/o error")
)

type kindError struct {
	kind error
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.err }

func newf(kind error, format string, a ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, a...)}
}

func Schemaf(format string, a ...any) error     { return newf(ErrSchema, format, a...) }
func Shapef(format string, a ...any) error      { return newf(ErrShape, format, a...) }
func Degeneratef(format string, a ...any) error { return newf(ErrDegenerate, format, a...) }

// IO wraps err as an I/O failure, keeping it reachable through errors.Is/As.
func IO(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: ErrIO, msg: fmt.Sprintf(format, a...), err: err}
}

// ExitCode maps an error to the process exit status: 2 for input problems, 3 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrSchema), errors.Is(err, ErrShape), errors.Is(err, ErrDegenerate):
		return 2
	default:
		return 3
	}
}
