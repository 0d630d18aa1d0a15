package plots

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"rnadiff/internal/results"
)

// minPadj caps -log10(padj) for genes whose padj underflowed to zero.
const minPadj = 1e-300

// Volcano plots -log10(padj) against log2 fold change with dashed guides at
// the significance thresholds. Genes with undefined padj are left out.
func Volcano(t results.Table, opt Options, path string) error {
	opt = opt.withDefaults()
	var up, down, rest plotter.XYs
	for _, r := range t.Records {
		if math.IsNaN(r.Padj) || math.IsNaN(r.Log2FoldChange) {
			continue
		}
		pt := plotter.XY{X: r.Log2FoldChange, Y: -math.Log10(math.Max(r.Padj, minPadj))}
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
	p.Title.Text = "Volcano: " + t.Contrast
	p.X.Label.Text = "log2 fold change"
	p.Y.Label.Text = "-log10 adjusted p-value"

	for _, layer := range []struct {
		pts   plotter.XYs
		c     color.Color
		label string
	}{{rest, colorNone, "not significant"}, {up, colorUp, "up"}, {down, colorDown, "down"}} {
		if err := addPoints(p, layer.pts, layer.c, layer.label); err != nil {
			return err
		}
	}

	lfc := opt.Thresholds.LFC
	yCut := -math.Log10(opt.Thresholds.Padj)
	xMin := math.Min(p.X.Min, -lfc-1)
	xMax := math.Max(p.X.Max, lfc+1)
	yMax := math.Max(p.Y.Max, yCut+1)
	guides := []plotter.XYs{
		{{X: -lfc, Y: 0}, {X: -lfc, Y: yMax}},
		{{X: lfc, Y: 0}, {X: lfc, Y: yMax}},
		{{X: xMin, Y: yCut}, {X: xMax, Y: yCut}},
	}
	for _, g := range guides {
		l, err := plotter.NewLine(g)
		if err != nil {
			return err
		}
		l.LineStyle.Color = colorGuides
		l.LineStyle.Width = vg.Points(0.75)
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(l)
	}
	return save(p, opt, path)
}
