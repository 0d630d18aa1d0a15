// Package results holds the per-gene output of a differential expression test.
package results

import (
	"math"
	"sort"
)

// Record is one gene's test outcome. NaN marks an undefined value.
type Record struct {
	Gene           string
	BaseMean       float64
	Log2FoldChange float64
	LfcSE          float64
	Stat           float64
	PValue         float64
	Padj           float64
}

// Table is the full result set for one contrast.
type Table struct {
	Contrast    string
	Coefficient string
	Shrunk      bool
	// Alpha is the FDR target used for independent filtering.
	Alpha float64
	// FilterThreshold is the baseMean below which padj was left undefined.
	FilterThreshold float64
	Records         []Record
}

// Len returns the number of genes.
func (t Table) Len() int { return len(t.Records) }

// Genes returns the gene ids in table order.
func (t Table) Genes() []string {
	out := make([]string, len(t.Records))
	for i, r := range t.Records {
		out[i] = r.Gene
	}
	return out
}

// Gene looks up a record by id.
func (t Table) Gene(id string) (Record, bool) {
	for _, r := range t.Records {
		if r.Gene == id {
			return r, true
		}
	}
	return Record{}, false
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := t
	out.Records = append([]Record(nil), t.Records...)
	return out
}

// SortByPadj returns a copy ordered by ascending padj, undefined last, ties by gene id.
func (t Table) SortByPadj() Table {
	out := t.Clone()
	sort.SliceStable(out.Records, func(i, j int) bool {
		a, b := out.Records[i], out.Records[j]
		an, bn := math.IsNaN(a.Padj), math.IsNaN(b.Padj)
		if an != bn {
			return bn
		}
		if !an && a.Padj != b.Padj {
			return a.Padj < b.Padj
		}
		return a.Gene < b.Gene
	})
	return out
}

// TopByPadj returns up to n records with the smallest defined padj.
func (t Table) TopByPadj(n int) []Record {
	sorted := t.SortByPadj()
	var out []Record
	for _, r := range sorted.Records {
		if len(out) == n || math.IsNaN(r.Padj) {
			break
		}
		out = append(out, r)
	}
	return out
}
