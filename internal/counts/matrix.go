// Package counts holds the raw inputs of an expression analysis: the gene × sample
// count matrix and the sample × covariate metadata table.
package counts

import (
	"rnadiff/internal/rnaerr"
)

// Matrix is a gene × sample table of raw read counts, stored row-major.
type Matrix struct {
	Genes   []string
	Samples []string
	Values  [][]int64
}

// NumGenes returns the number of rows.
func (m Matrix) NumGenes() int { return len(m.Genes) }

// NumSamples returns the number of columns.
func (m Matrix) NumSamples() int { return len(m.Samples) }

// Validate checks the shape invariants: unique non-empty ids, rectangular rows,
// non-negative values.
func (m Matrix) Validate() error {
	if len(m.Samples) == 0 {
		return rnaerr.Shapef("count matrix has no samples")
	}
	if err := uniqueIDs("sample", m.Samples); err != nil {
		return err
	}
	if err := uniqueIDs("gene", m.Genes); err != nil {
		return err
	}
	if len(m.Values) != len(m.Genes) {
		return rnaerr.Shapef("count matrix has %d gene ids but %d rows", len(m.Genes), len(m.Values))
	}
	for i, row := range m.Values {
		if len(row) != len(m.Samples) {
			return rnaerr.Shapef("gene %q has %d counts, want %d", m.Genes[i], len(row), len(m.Samples))
		}
		for j, v := range row {
			if v < 0 {
				return rnaerr.Shapef("gene %q sample %q: negative count %d", m.Genes[i], m.Samples[j], v)
			}
		}
	}
	return nil
}

func uniqueIDs(kind string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return rnaerr.Shapef("empty %s id", kind)
		}
		if _, dup := seen[id]; dup {
			return rnaerr.Shapef("duplicate %s id %q", kind, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// RowSum returns the total count of gene i across all samples.
func (m Matrix) RowSum(i int) int64 {
	var s int64
	for _, v := range m.Values[i] {
		s += v
	}
	return s
}

// Column returns a copy of sample j's counts.
func (m Matrix) Column(j int) []int64 {
	out := make([]int64, len(m.Values))
	for i, row := range m.Values {
		out[i] = row[j]
	}
	return out
}

// Subset returns a new matrix holding only the given rows, in the given order.
func (m Matrix) Subset(rows []int) Matrix {
	out := Matrix{
		Genes:   make([]string, 0, len(rows)),
		Samples: append([]string(nil), m.Samples...),
		Values:  make([][]int64, 0, len(rows)),
	}
	for _, i := range rows {
		out.Genes = append(out.Genes, m.Genes[i])
		out.Values = append(out.Values, append([]int64(nil), m.Values[i]...))
	}
	return out
}

// Filter returns a new matrix with the genes whose total count is at least minTotal.
// Samples are untouched; an empty result is valid.
func (m Matrix) Filter(minTotal int64) Matrix {
	keep := make([]int, 0, len(m.Genes))
	for i := range m.Values {
		if m.RowSum(i) >= minTotal {
			keep = append(keep, i)
		}
	}
	return m.Subset(keep)
}

// GeneIndex returns the row of gene id, or -1.
func (m Matrix) GeneIndex(id string) int {
	for i, g := range m.Genes {
		if g == id {
			return i
		}
	}
	return -1
}
