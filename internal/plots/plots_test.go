package plots

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnadiff/internal/dataset"
	"rnadiff/internal/deseq"
	"rnadiff/internal/design"
	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
	"rnadiff/internal/simulate"
)

func fitted(t *testing.T) (*deseq.Model, results.Table) {
	t.Helper()
	opt := simulate.DefaultOptions
	opt.Genes = 150
	opt.Seed = 9
	d, err := simulate.Generate(opt)
	require.NoError(t, err)
	f, err := design.ParseFormula("~ condition")
	require.NoError(t, err)
	ds, err := dataset.Assemble(d.Counts, d.Meta, f, design.Options{})
	require.NoError(t, err)
	m, err := deseq.Fit(context.Background(), ds.Filter(10), deseq.Options{Threads: 2})
	require.NoError(t, err)
	tbl, err := m.Results(design.Contrast{Factor: "condition", Numerator: simulate.Treatment, Denominator: simulate.Control}, deseq.DefaultResultOptions)
	require.NoError(t, err)
	return m, tbl
}

func nonEmptyFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, b)
	return b
}

func TestRenderAll(t *testing.T) {
	m, tbl := fitted(t)
	dir := t.TempDir()

	ma := filepath.Join(dir, "ma.png")
	require.NoError(t, MA(tbl, Options{}, ma))
	assert.True(t, bytes.HasPrefix(nonEmptyFile(t, ma), []byte("\x89PNG")))

	volcano := filepath.Join(dir, "volcano.svg")
	require.NoError(t, Volcano(tbl, DefaultOptions, volcano))
	assert.Contains(t, string(nonEmptyFile(t, volcano)), "<svg")

	heat := filepath.Join(dir, "heatmap.pdf")
	require.NoError(t, Heatmap(m, tbl, 20, DefaultOptions, heat))
	assert.True(t, bytes.HasPrefix(nonEmptyFile(t, heat), []byte("%PDF")))
}

func TestEmptyTableStillRenders(t *testing.T) {
	dir := t.TempDir()
	empty := results.Table{Contrast: "condition Treatment vs Control"}
	require.NoError(t, MA(empty, DefaultOptions, filepath.Join(dir, "ma.png")))
	require.NoError(t, Volcano(empty, DefaultOptions, filepath.Join(dir, "volcano.png")))
	require.NoError(t, RenderHeatmap(HeatmapData{}, empty.Contrast, DefaultOptions, filepath.Join(dir, "heatmap.png")))
	for _, name := range []string{"ma.png", "volcano.png", "heatmap.png"} {
		nonEmptyFile(t, filepath.Join(dir, name))
	}
}

func TestMASkipsUndefined(t *testing.T) {
	tbl := results.Table{Records: []results.Record{
		{Gene: "a", BaseMean: 0, Log2FoldChange: math.NaN(), Padj: math.NaN()},
		{Gene: "b", BaseMean: 50, Log2FoldChange: 3, Padj: 1e-320},
		{Gene: "c", BaseMean: 10, Log2FoldChange: -0.2, Padj: 0.9},
	}}
	dir := t.TempDir()
	require.NoError(t, MA(tbl, DefaultOptions, filepath.Join(dir, "ma.png")))
	require.NoError(t, Volcano(tbl, DefaultOptions, filepath.Join(dir, "v.png")))
}

func TestSaveErrors(t *testing.T) {
	_, tbl := fitted(t)
	err := MA(tbl, DefaultOptions, filepath.Join(t.TempDir(), "ma.bmp"))
	assert.ErrorIs(t, err, rnaerr.ErrSchema)

	err = Volcano(tbl, DefaultOptions, filepath.Join(t.TempDir(), "missing", "v.png"))
	assert.ErrorIs(t, err, rnaerr.ErrIO)
}

func TestPrepareHeatmap(t *testing.T) {
	m, tbl := fitted(t)
	h := PrepareHeatmap(m, tbl, 12)
	c, r := h.Dims()
	assert.Equal(t, m.Counts.NumSamples(), c)
	assert.LessOrEqual(t, r, 12)
	require.Positive(t, r)
	assert.ElementsMatch(t, m.Samples, h.Samples)
	for _, row := range h.Values {
		var sum float64
		for _, v := range row {
			sum += v
		}
		assert.InDelta(t, 0, sum, 1e-9, "rows are centred")
	}
}

func TestAverageLinkageOrder(t *testing.T) {
	rows := [][]float64{{0, 0}, {10, 10}, {0.1, 0}, {10, 10.2}}
	assert.Equal(t, []int{0, 2, 1, 3}, averageLinkageOrder(rows))
	assert.Equal(t, []int{0}, averageLinkageOrder(rows[:1]))
	assert.Nil(t, averageLinkageOrder(nil))
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("out/fig.SVG")
	require.NoError(t, err)
	assert.Equal(t, "svg", f)
	_, err = FormatOf("fig")
	assert.ErrorIs(t, err, rnaerr.ErrSchema)
}
