package plots

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"rnadiff/internal/results"
)

// MA plots log2 fold change against mean normalized count on a log axis.
// Genes with baseMean 0 or an undefined fold change are left out.
func MA(t results.Table, opt Options, path string) error {
	opt = opt.withDefaults()
	var up, down, rest plotter.XYs
	for _, r := range t.Records {
		if r.BaseMean <= 0 || math.IsNaN(r.Log2FoldChange) {
			continue
		}
		pt := plotter.XY{X: r.BaseMean, Y: r.Log2FoldChange}
		switch {
		case !opt.Thresholds.Significant(r):
			rest = append(rest, pt)
		case r.Log2FoldChange > 0:
			up = append(up, pt)
		default:
			down = append(down, pt)
		}
	}

	p := plot.New()
	p.Title.Text = "MA plot: " + t.Contrast
	p.X.Label.Text = "mean of normalized counts"
	p.Y.Label.Text = "log2 fold change"
	if t.Shrunk {
		p.Y.Label.Text += " (shrunken)"
	}
	if len(up)+len(down)+len(rest) == 0 {
		p.X.Min, p.X.Max = 1, 10
		p.Y.Min, p.Y.Max = -1, 1
	}
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	if err := addPoints(p, rest, colorNone, "not significant"); err != nil {
		return err
	}
	if err := addPoints(p, up, colorUp, "up"); err != nil {
		return err
	}
	if err := addPoints(p, down, colorDown, "down"); err != nil {
		return err
	}
	zero, err := plotter.NewLine(plotter.XYs{{X: p.X.Min, Y: 0}, {X: p.X.Max, Y: 0}})
	if err != nil {
		return err
	}
	zero.LineStyle.Color = colorGuides
	zero.LineStyle.Width = vg.Points(0.75)
	p.Add(zero)
	return save(p, opt, path)
}

// addPoints adds a scatter layer and its legend entry; empty layers are skipped.
func addPoints(p *plot.Plot, pts plotter.XYs, c color.Color, label string) error {
	if len(pts) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(1.5)
	s.GlyphStyle.Color = c
	p.Add(s)
	p.Legend.Add(label, s)
	return nil
}
