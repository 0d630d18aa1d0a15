package results

import "math"

// Thresholds define a significant gene: padj < Padj and |log2FC| > LFC.
type Thresholds struct {
	Padj float64
	LFC  float64
}

// DefaultThresholds is padj < 0.05 and |log2FC| > 1.
var DefaultThresholds = Thresholds{Padj: 0.05, LFC: 1}

// Significant reports whether r passes th. Undefined values never pass.
func (th Thresholds) Significant(r Record) bool {
	if math.IsNaN(r.Padj) || math.IsNaN(r.Log2FoldChange) {
		return false
	}
	return r.Padj < th.Padj && math.Abs(r.Log2FoldChange) > th.LFC
}

// Summary tallies a table the way DESeq2's summary() does.
type Summary struct {
	Total        int // genes with non-zero total count
	Up           int // padj < alpha, LFC > 0
	Down         int // padj < alpha, LFC < 0
	Untested     int // p-value undefined (all-zero or non-converged genes)
	LowCount     int // p-value defined but padj left undefined by independent filtering
	Alpha        float64
	LowThreshold float64
}

// Summarize counts up/down regulated genes at FDR alpha.
func (t Table) Summarize(alpha float64) Summary {
	s := Summary{Alpha: alpha, LowThreshold: t.FilterThreshold}
	for _, r := range t.Records {
		if r.BaseMean > 0 {
			s.Total++
		}
		switch {
		case math.IsNaN(r.PValue):
			if r.BaseMean > 0 {
				s.Untested++
			}
		case math.IsNaN(r.Padj):
			s.LowCount++
		case r.Padj < alpha && r.Log2FoldChange > 0:
			s.Up++
		case r.Padj < alpha && r.Log2FoldChange < 0:
			s.Down++
		}
	}
	return s
}
