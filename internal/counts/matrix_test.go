package counts

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnadiff/internal/rnaerr"
)

func randomMatrix(genes, samples int, seed uint64) Matrix {
	r := rand.New(rand.NewPCG(seed, seed+1))
	m := Matrix{}
	for j := 0; j < samples; j++ {
		m.Samples = append(m.Samples, "S"+strconv.Itoa(j+1))
	}
	for i := 0; i < genes; i++ {
		m.Genes = append(m.Genes, "g"+strconv.Itoa(i+1))
		row := make([]int64, samples)
		for j := range row {
			row[j] = int64(r.IntN(4))
		}
		m.Values = append(m.Values, row)
	}
	return m
}

func TestFilterScenario(t *testing.T) {
	m := randomMatrix(100, 10, 7)
	f := m.Filter(10)
	assert.LessOrEqual(t, f.NumGenes(), 100)
	assert.Equal(t, m.Samples, f.Samples)
	for i := range f.Genes {
		assert.GreaterOrEqual(t, f.RowSum(i), int64(10), f.Genes[i])
	}
}

func TestFilterIdempotent(t *testing.T) {
	m := randomMatrix(200, 6, 11)
	once := m.Filter(9)
	twice := once.Filter(9)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("filter not idempotent (-once +twice):\n%s", diff)
	}
}

func TestFilterAllRemovedIsValid(t *testing.T) {
	m := randomMatrix(5, 3, 3)
	f := m.Filter(1 << 40)
	assert.Equal(t, 0, f.NumGenes())
	assert.Equal(t, m.Samples, f.Samples)
}

func TestFilterDoesNotAlias(t *testing.T) {
	m := Matrix{Genes: []string{"a"}, Samples: []string{"x"}, Values: [][]int64{{20}}}
	f := m.Filter(10)
	f.Values[0][0] = 0
	assert.Equal(t, int64(20), m.Values[0][0])
}

func TestAlign(t *testing.T) {
	md := Metadata{Samples: []string{"A", "B"}, Values: map[string][]string{}}
	require.NoError(t, md.Align([]string{"A", "B"}))

	err := md.Align([]string{"B", "A"})
	assert.ErrorIs(t, err, rnaerr.ErrShape)

	err = md.Align([]string{"A", "C"})
	assert.ErrorIs(t, err, rnaerr.ErrShape)
	assert.Contains(t, err.Error(), "C")

	err = md.Align([]string{"A"})
	assert.ErrorIs(t, err, rnaerr.ErrShape)
}
