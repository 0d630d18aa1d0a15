package deseq

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"rnadiff/internal/counts"
	"rnadiff/internal/rnaerr"
)

// EstimateSizeFactors computes per-sample median-of-ratios size factors over
// the genes with a positive count in every sample.
func EstimateSizeFactors(m counts.Matrix) ([]float64, error) {
	n := m.NumSamples()
	logGeo := make([]float64, 0, m.NumGenes())
	rows := make([]int, 0, m.NumGenes())
	logRow := make([]float64, n)
	for i, row := range m.Values {
		ok := true
		for j, v := range row {
			if v <= 0 {
				ok = false
				break
			}
			logRow[j] = math.Log(float64(v))
		}
		if !ok {
			continue
		}
		logGeo = append(logGeo, stat.Mean(logRow, nil))
		rows = append(rows, i)
	}
	if len(rows) == 0 {
		return nil, rnaerr.Degeneratef("every gene contains at least one zero, cannot compute log geometric means for size factors")
	}
	sf := make([]float64, n)
	ratios := make([]float64, len(rows))
	for j := 0; j < n; j++ {
		for k, i := range rows {
			ratios[k] = math.Log(float64(m.Values[i][j])) - logGeo[k]
		}
		sf[j] = math.Exp(median(ratios))
	}
	return sf, nil
}

// NormalizedCounts divides each count by its sample's size factor.
func NormalizedCounts(m counts.Matrix, sf []float64) [][]float64 {
	out := make([][]float64, m.NumGenes())
	for i, row := range m.Values {
		nr := make([]float64, len(row))
		for j, v := range row {
			nr[j] = float64(v) / sf[j]
		}
		out[i] = nr
	}
	return out
}
