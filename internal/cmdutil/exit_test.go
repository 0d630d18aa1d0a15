package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"rnadiff/internal/rnaerr"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("write: %w", syscall.EPIPE), 0},
		{io.ErrClosedPipe, 0},
		{fmt.Errorf("fit: %w", context.Canceled), 130},
		{UsageError{errors.New("unknown flag --x")}, 2},
		{rnaerr.Schemaf("no column"), 2},
		{rnaerr.Shapef("ragged"), 2},
		{rnaerr.Degeneratef("no genes"), 2},
		{rnaerr.IO(errors.New("denied"), "open"), 3},
		{errors.New("plain"), 3},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExitCode(c.err), "%v", c.err)
	}
}

func TestWarnf(t *testing.T) {
	var buf bytes.Buffer
	Warnf(&buf, false, "%d genes untested", 3)
	assert.Equal(t, "rnadiff: warning: 3 genes untested\n", buf.String())
	buf.Reset()
	Warnf(&buf, true, "hidden")
	assert.Empty(t, buf.String())
}
