package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	opt := DefaultOptions
	opt.Genes = 100
	opt.SamplesPerGroup = 5
	opt.Batches = 2
	d, err := Generate(opt)
	require.NoError(t, err)
	require.NoError(t, d.Counts.Validate())
	require.NoError(t, d.Meta.Validate())
	require.NoError(t, d.Meta.Align(d.Counts.Samples))

	assert.Equal(t, 100, d.Counts.NumGenes())
	assert.Equal(t, 10, d.Counts.NumSamples())
	assert.Equal(t, []string{"condition", "batch"}, d.Meta.Columns)
	cond, _ := d.Meta.Column("condition")
	assert.Equal(t, Control, cond[0])
	assert.Equal(t, Treatment, cond[9])
	assert.Len(t, d.TrueLFC, 100)
}

func TestGenerateDeterministic(t *testing.T) {
	opt := DefaultOptions
	opt.Genes = 50
	a, err := Generate(opt)
	require.NoError(t, err)
	b, err := Generate(opt)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	opt.Seed = 2
	c, err := Generate(opt)
	require.NoError(t, err)
	assert.NotEqual(t, a.Counts.Values, c.Counts.Values)
}

func TestGenerateRejectsEmpty(t *testing.T) {
	_, err := Generate(Options{})
	assert.Error(t, err)
}
