package deseq

import (
	"math"
	"sort"
)

// AdjustBH applies the Benjamini–Hochberg correction. NaN p-values stay NaN
// and do not count toward the number of tests. The result is never below the
// input p-value.
func AdjustBH(p []float64) []float64 {
	out := make([]float64, len(p))
	idx := make([]int, 0, len(p))
	for i, v := range p {
		out[i] = math.NaN()
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}
	n := len(idx)
	if n == 0 {
		return out
	}
	sort.SliceStable(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })
	running := 1.0
	for k := n - 1; k >= 0; k-- {
		i := idx[k]
		v := p[i] * float64(n) / float64(k+1)
		if v < running {
			running = v
		}
		out[i] = math.Min(running, 1)
	}
	return out
}

const (
	filterGridSize = 50
	filterUpper    = 0.95
	filterMinRej   = 10
	filterSpan     = 5
)

// IndependentFilter picks a baseMean cutoff that maximises discoveries at
// alpha and adjusts p-values among the genes at or above it. Genes below the
// cutoff get NaN padj. It returns the adjusted values and the cutoff.
func IndependentFilter(baseMean, pvalue []float64, alpha float64) ([]float64, float64) {
	n := len(baseMean)
	if n == 0 {
		return nil, 0
	}
	sorted := append([]float64(nil), baseMean...)
	sort.Float64s(sorted)

	zeros := 0
	for _, v := range baseMean {
		if v == 0 {
			zeros++
		}
	}
	lower := float64(zeros) / float64(n)
	upper := filterUpper
	if lower >= upper {
		upper = 1
	}

	thetas := make([]float64, filterGridSize)
	cutoffs := make([]float64, filterGridSize)
	adjusted := make([][]float64, filterGridSize)
	numRej := make([]float64, filterGridSize)
	for k := range thetas {
		thetas[k] = lower + (upper-lower)*float64(k)/float64(filterGridSize-1)
		cutoffs[k] = quantile7(sorted, thetas[k])
		adjusted[k] = adjustAbove(baseMean, pvalue, cutoffs[k])
		for _, v := range adjusted[k] {
			if !math.IsNaN(v) && v < alpha {
				numRej[k]++
			}
		}
	}

	j := 0
	maxRej := 0.0
	for _, r := range numRej {
		maxRej = math.Max(maxRej, r)
	}
	if maxRej > filterMinRej {
		fitted := movingAverage(numRej, filterSpan)
		var ss float64
		var cnt int
		for k, r := range numRej {
			if r > 0 {
				ss += sq(r - fitted[k])
				cnt++
			}
		}
		maxFit := 0.0
		for _, f := range fitted {
			maxFit = math.Max(maxFit, f)
		}
		thresh := maxFit
		if cnt > 0 {
			thresh -= math.Sqrt(ss / float64(cnt))
		}
		for k, r := range numRej {
			if r > thresh {
				j = k
				break
			}
		}
	}
	return adjusted[j], cutoffs[j]
}

func adjustAbove(baseMean, pvalue []float64, cutoff float64) []float64 {
	masked := make([]float64, len(pvalue))
	for i, p := range pvalue {
		if baseMean[i] >= cutoff {
			masked[i] = p
		} else {
			masked[i] = math.NaN()
		}
	}
	return AdjustBH(masked)
}

// movingAverage smooths y with a centred window of ±span points.
func movingAverage(y []float64, span int) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		lo, hi := max(0, i-span), min(len(y)-1, i+span)
		var s float64
		for k := lo; k <= hi; k++ {
			s += y[k]
		}
		out[i] = s / float64(hi-lo+1)
	}
	return out
}
