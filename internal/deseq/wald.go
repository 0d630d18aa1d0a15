package deseq

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"rnadiff/internal/design"
	"rnadiff/internal/results"
)

// ResultOptions controls result extraction.
type ResultOptions struct {
	// Alpha is the FDR target used to choose the independent-filtering cutoff.
	Alpha float64
	// IndependentFiltering drops low-mean genes from the multiple-testing burden.
	IndependentFiltering bool
}

// DefaultResultOptions mirrors DESeq2's results() defaults.
var DefaultResultOptions = ResultOptions{Alpha: 0.1, IndependentFiltering: true}

// Results runs a Wald test of contrast c for every gene and adjusts p-values.
// All-zero genes get baseMean 0 and NaN elsewhere.
func (m *Model) Results(c design.Contrast, opt ResultOptions) (results.Table, error) {
	w, err := m.Design.Vector(c)
	if err != nil {
		return results.Table{}, err
	}
	if opt.Alpha <= 0 || opt.Alpha >= 1 {
		opt.Alpha = DefaultResultOptions.Alpha
	}
	tbl := results.Table{Contrast: c.String(), Alpha: opt.Alpha, Records: make([]results.Record, m.NumGenes())}
	if coef, ok := m.Design.ContrastCoefficient(c); ok {
		tbl.Coefficient = coef
	}

	pvals := make([]float64, m.NumGenes())
	for i, gene := range m.Counts.Genes {
		r := results.Record{Gene: gene, BaseMean: m.BaseMean[i]}
		if m.AllZero[i] {
			r.BaseMean = 0
			r.Log2FoldChange, r.LfcSE, r.Stat, r.PValue = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		} else {
			r.Log2FoldChange, r.LfcSE = m.contrastEstimate(i, w)
			r.Stat, r.PValue = waldTest(r.Log2FoldChange, r.LfcSE)
		}
		pvals[i] = r.PValue
		tbl.Records[i] = r
	}

	var padj []float64
	if opt.IndependentFiltering {
		padj, tbl.FilterThreshold = IndependentFilter(m.BaseMean, pvals, opt.Alpha)
	} else {
		padj = AdjustBH(pvals)
	}
	for i := range tbl.Records {
		tbl.Records[i].Padj = padj[i]
	}
	return tbl, nil
}

// contrastEstimate returns wᵀβ and sqrt(wᵀΣw) on the log2 scale.
func (m *Model) contrastEstimate(i int, w []float64) (float64, float64) {
	var est, v float64
	for a, wa := range w {
		if wa == 0 {
			continue
		}
		est += wa * m.Beta[i][a]
		for b, wb := range w {
			if wb != 0 {
				v += wa * wb * m.Cov[i].At(a, b)
			}
		}
	}
	return est, math.Sqrt(v)
}

func waldTest(est, se float64) (stat, p float64) {
	if se <= 0 || math.IsNaN(se) || math.IsNaN(est) {
		return math.NaN(), math.NaN()
	}
	stat = est / se
	return stat, 2 * distuv.UnitNormal.Survival(math.Abs(stat))
}
