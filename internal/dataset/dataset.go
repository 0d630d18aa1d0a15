// Package dataset binds a count matrix, its sample metadata and a design into
// one immutable analysis input.
package dataset

import (
	"fmt"

	"rnadiff/internal/counts"
	"rnadiff/internal/design"
)

// Dataset is the analysis input. Transformations return new values.
type Dataset struct {
	Counts  counts.Matrix
	Meta    counts.Metadata
	Formula design.Formula
	Model   *design.Model
}

// Assemble validates the inputs, checks that metadata rows match the count
// columns exactly, and builds the model matrix for formula.
func Assemble(m counts.Matrix, md counts.Metadata, formula design.Formula, opt design.Options) (Dataset, error) {
	if err := m.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("count matrix: %w", err)
	}
	if err := md.Validate(); err != nil {
		return Dataset{}, fmt.Errorf("metadata: %w", err)
	}
	if err := md.Align(m.Samples); err != nil {
		return Dataset{}, err
	}
	model, err := design.Build(md, formula, opt)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Counts: m, Meta: md, Formula: formula, Model: model}, nil
}

// Filter returns a dataset keeping genes whose total count is at least minTotal.
// Samples and the model matrix are shared, since neither changes.
func (d Dataset) Filter(minTotal int64) Dataset {
	out := d
	out.Counts = d.Counts.Filter(minTotal)
	return out
}

// NumGenes returns the number of genes in the dataset.
func (d Dataset) NumGenes() int { return d.Counts.NumGenes() }
