// Package refdata bundles a small reference experiment: 60 genes measured in
// four control and four treated samples split over two batches.
package refdata

import (
	"bytes"
	_ "embed"

	"rnadiff/internal/counts"
)

// Design is the formula the reference experiment was laid out for.
const Design = "~ batch + condition"

var (
	//go:embed counts.tsv
	countsTSV []byte
	//go:embed samples.tsv
	samplesTSV []byte
)

// Load parses the embedded tables.
func Load() (counts.Matrix, counts.Metadata, error) {
	m, err := counts.ParseMatrix(bytes.NewReader(countsTSV), "refdata/counts.tsv")
	if err != nil {
		return counts.Matrix{}, counts.Metadata{}, err
	}
	md, err := counts.ParseMetadata(bytes.NewReader(samplesTSV), "refdata/samples.tsv")
	if err != nil {
		return counts.Matrix{}, counts.Metadata{}, err
	}
	return m, md, nil
}
