package plots

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"rnadiff/internal/deseq"
	"rnadiff/internal/results"
)

// HeatmapData is a row-scaled expression matrix in display order.
type HeatmapData struct {
	Genes   []string
	Samples []string
	Values  [][]float64 // Values[gene][sample]
}

// Dims, Z, X and Y make HeatmapData a plotter.GridXYZ: columns are samples,
// rows are genes.
func (h HeatmapData) Dims() (c, r int)   { return len(h.Samples), len(h.Genes) }
func (h HeatmapData) Z(c, r int) float64 { return h.Values[r][c] }
func (h HeatmapData) X(c int) float64    { return float64(c) }
func (h HeatmapData) Y(r int) float64    { return float64(r) }

// limits returns the largest |z| and whether there is enough data to draw.
func (h HeatmapData) limits() (float64, bool) {
	lim := 0.0
	for _, row := range h.Values {
		for _, v := range row {
			lim = math.Max(lim, math.Abs(v))
		}
	}
	return lim, len(h.Genes) >= 2 && len(h.Samples) >= 2
}

// PrepareHeatmap takes the n genes with smallest padj, transforms their
// normalized counts to log2(x+1), scales each gene to z-scores across
// samples, and orders genes and samples by average-linkage clustering.
func PrepareHeatmap(model *deseq.Model, t results.Table, n int) HeatmapData {
	top := t.TopByPadj(n)
	norm := model.NormalizedCounts()
	h := HeatmapData{}
	var rows [][]float64
	for _, r := range top {
		i := model.Counts.GeneIndex(r.Gene)
		if i < 0 {
			continue
		}
		row := make([]float64, len(norm[i]))
		for j, v := range norm[i] {
			row[j] = math.Log2(v + 1)
		}
		mean, sd := stat.MeanStdDev(row, nil)
		for j := range row {
			if sd > 0 {
				row[j] = (row[j] - mean) / sd
			} else {
				row[j] = 0
			}
		}
		h.Genes = append(h.Genes, r.Gene)
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return h
	}

	geneOrder := averageLinkageOrder(rows)
	sampleOrder := averageLinkageOrder(transpose(rows))
	genes := make([]string, len(geneOrder))
	z := make([][]float64, len(geneOrder))
	for k, i := range geneOrder {
		genes[k] = h.Genes[i]
		z[k] = make([]float64, len(sampleOrder))
		for c, j := range sampleOrder {
			z[k][c] = rows[i][j]
		}
	}
	h.Genes, h.Values = genes, z
	for _, j := range sampleOrder {
		h.Samples = append(h.Samples, model.Samples[j])
	}
	return h
}

// Heatmap renders PrepareHeatmap(model, t, n) with a blue–red diverging
// palette centred on zero.
func Heatmap(model *deseq.Model, t results.Table, n int, opt Options, path string) error {
	return RenderHeatmap(PrepareHeatmap(model, t, n), t.Contrast, opt, path)
}

// RenderHeatmap draws prepared data. Fewer than two genes or samples give an
// empty, labelled figure.
func RenderHeatmap(h HeatmapData, title string, opt Options, path string) error {
	opt = opt.withDefaults()
	p := plot.New()
	p.Title.Text = "Top genes: " + title
	p.X.Label.Text = "sample"
	p.Y.Label.Text = "gene (row z-score)"

	lim, ok := h.limits()
	if !ok {
		p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = 0, 1, 0, 1
		return save(p, opt, path)
	}
	if lim == 0 {
		lim = 1
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-lim)
	cm.SetMax(lim)
	hm := plotter.NewHeatMap(h, cm.Palette(255))
	hm.Min, hm.Max = -lim, lim
	p.Add(hm)

	xt := make([]plot.Tick, len(h.Samples))
	for c, s := range h.Samples {
		xt[c] = plot.Tick{Value: float64(c), Label: s}
	}
	yt := make([]plot.Tick, len(h.Genes))
	for r, g := range h.Genes {
		yt[r] = plot.Tick{Value: float64(r), Label: g}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Tick.Label.Rotation = math.Pi / 2
	return save(p, opt, path)
}
