package rnaerr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("assemble: %w", Schemaf("covariate %q not in metadata", "batch"))
	assert.ErrorIs(t, err, ErrSchema)
	assert.NotErrorIs(t, err, ErrShape)
	assert.Contains(t, err.Error(), `covariate "batch" not in metadata`)
}

func TestIOKeepsCause(t *testing.T) {
	_, cause := os.Open("/definitely/not/here")
	require.Error(t, cause)
	err := IO(cause, "open counts")
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, IO(nil, "noop"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(Shapef("bad")))
	assert.Equal(t, 2, ExitCode(Degeneratef("bad")))
	assert.Equal(t, 3, ExitCode(IO(errors.New("disk"), "write")))
	assert.Equal(t, 3, ExitCode(errors.New("other")))
}
