// Package plots renders the diagnostic figures of a differential expression
// run: MA plot, volcano plot and a clustered heatmap of top genes.
package plots

import (
	"image/color"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"rnadiff/internal/output"
	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
)

// DefaultFormat is the image format used when none is named.
const DefaultFormat = "png"

// Formats lists the supported image formats (file extensions without dot).
var Formats = []string{"pdf", "png", "svg"}

// HasFormat reports whether format is supported.
func HasFormat(format string) bool { return slices.Contains(Formats, format) }

// Options controls figure size and significance highlighting.
type Options struct {
	Thresholds results.Thresholds
	Width      vg.Length
	Height     vg.Length
}

// DefaultOptions is a 6×5 inch figure with the default thresholds.
var DefaultOptions = Options{Thresholds: results.DefaultThresholds, Width: 6 * vg.Inch, Height: 5 * vg.Inch}

func (o Options) withDefaults() Options {
	if o.Thresholds == (results.Thresholds{}) {
		o.Thresholds = DefaultOptions.Thresholds
	}
	if o.Width <= 0 {
		o.Width = DefaultOptions.Width
	}
	if o.Height <= 0 {
		o.Height = DefaultOptions.Height
	}
	return o
}

var (
	colorUp     = color.RGBA{R: 0xd1, G: 0x49, B: 0x5b, A: 0xff}
	colorDown   = color.RGBA{R: 0x00, G: 0x79, B: 0x8c, A: 0xff}
	colorNone   = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xb0}
	colorGuides = color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
)

// FormatOf returns the image format implied by path's extension.
func FormatOf(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !HasFormat(ext) {
		return "", rnaerr.Schemaf("cannot render %s: unsupported image format %q (want one of %v)", path, ext, Formats)
	}
	return ext, nil
}

// save renders p at path through an atomic write.
func save(p *plot.Plot, opt Options, path string) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opt.Width, opt.Height, format)
	if err != nil {
		return err
	}
	return output.AtomicWrite(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
