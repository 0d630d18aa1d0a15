package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnadiff/internal/counts"
	"rnadiff/internal/design"
	"rnadiff/internal/rnaerr"
)

func inputs() (counts.Matrix, counts.Metadata) {
	m := counts.Matrix{
		Genes:   []string{"g1", "g2", "g3"},
		Samples: []string{"A", "B", "C", "D"},
		Values:  [][]int64{{10, 12, 30, 33}, {0, 1, 0, 2}, {100, 90, 5, 4}},
	}
	md := counts.Metadata{
		Samples: []string{"A", "B", "C", "D"},
		Columns: []string{"condition"},
		Values:  map[string][]string{"condition": {"Control", "Control", "Treatment", "Treatment"}},
	}
	return m, md
}

func TestAssembleAndFilter(t *testing.T) {
	m, md := inputs()
	f, _ := design.ParseFormula("~ condition")
	ds, err := Assemble(m, md, f, design.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumGenes())

	filtered := ds.Filter(10)
	assert.Equal(t, []string{"g1", "g3"}, filtered.Counts.Genes)
	assert.Equal(t, 3, ds.NumGenes(), "source dataset must not change")
	assert.Same(t, ds.Model, filtered.Model)
}

func TestAssembleRejectsMismatchedSamples(t *testing.T) {
	m, md := inputs()
	md.Samples = []string{"A", "B", "D", "C"}
	f, _ := design.ParseFormula("~ condition")
	_, err := Assemble(m, md, f, design.Options{})
	assert.ErrorIs(t, err, rnaerr.ErrShape)
}

func TestAssembleRejectsUnknownCovariate(t *testing.T) {
	m, md := inputs()
	f, _ := design.ParseFormula("~ batch")
	_, err := Assemble(m, md, f, design.Options{})
	assert.ErrorIs(t, err, rnaerr.ErrSchema)
}
