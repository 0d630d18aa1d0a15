package results

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var nan = math.NaN()

func sample() Table {
	return Table{
		Contrast: "condition Treatment vs Control",
		Records: []Record{
			{Gene: "a", BaseMean: 50, Log2FoldChange: 2, PValue: 0.001, Padj: 0.01},
			{Gene: "b", BaseMean: 40, Log2FoldChange: -0.5, PValue: 0.01, Padj: 0.03},
			{Gene: "c", BaseMean: 2, Log2FoldChange: 3, PValue: 0.2, Padj: nan},
			{Gene: "d", BaseMean: 0, Log2FoldChange: nan, PValue: nan, Padj: nan},
			{Gene: "e", BaseMean: 90, Log2FoldChange: -1.5, PValue: 0.0001, Padj: 0.002},
			{Gene: "f", BaseMean: 70, Log2FoldChange: 0.2, PValue: 0.5, Padj: 0.7},
		},
	}
}

func TestSortAndTop(t *testing.T) {
	tbl := sample()
	sorted := tbl.SortByPadj()
	assert.Equal(t, []string{"e", "a", "b", "f", "c", "d"}, sorted.Genes())
	assert.Equal(t, "a", tbl.Records[0].Gene, "sorting must not reorder the source")

	top := tbl.TopByPadj(3)
	assert.Len(t, top, 3)
	assert.Equal(t, "e", top[0].Gene)
	assert.Len(t, tbl.TopByPadj(100), 4)
}

func TestSignificant(t *testing.T) {
	th := DefaultThresholds
	tbl := sample()
	var sig []string
	for _, r := range tbl.Records {
		if th.Significant(r) {
			sig = append(sig, r.Gene)
		}
	}
	assert.Equal(t, []string{"a", "e"}, sig)
}

func TestSummarize(t *testing.T) {
	s := sample().Summarize(0.1)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 1, s.Up)
	assert.Equal(t, 2, s.Down)
	assert.Equal(t, 1, s.LowCount)
	assert.Equal(t, 0, s.Untested)
}

func TestGeneLookup(t *testing.T) {
	r, ok := sample().Gene("c")
	assert.True(t, ok)
	assert.Equal(t, 3.0, r.Log2FoldChange)
	_, ok = sample().Gene("zz")
	assert.False(t, ok)
}
