package plots

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// averageLinkageOrder clusters rows by UPGMA on Euclidean distance and
// returns the leaf order of the dendrogram. Ties merge the lowest-index pair
// first, so the order is deterministic.
func averageLinkageOrder(rows [][]float64) []int {
	n := len(rows)
	if n == 0 {
		return nil
	}
	type cluster struct {
		members []int // leaf order
		size    int
	}
	clusters := make([]*cluster, n)
	dist := make([][]float64, n)
	for i := range rows {
		clusters[i] = &cluster{members: []int{i}, size: 1}
		dist[i] = make([]float64, n)
		for j := 0; j < i; j++ {
			d := floats.Distance(rows[i], rows[j], 2)
			dist[i][j], dist[j][i] = d, d
		}
	}
	for alive := n; alive > 1; alive-- {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if clusters[i] == nil {
				continue
			}
			for j := i + 1; j < n; j++ {
				if clusters[j] == nil {
					continue
				}
				if dist[i][j] < best {
					best, bi, bj = dist[i][j], i, j
				}
			}
		}
		a, b := clusters[bi], clusters[bj]
		for k := 0; k < n; k++ {
			if clusters[k] == nil || k == bi || k == bj {
				continue
			}
			d := (dist[bi][k]*float64(a.size) + dist[bj][k]*float64(b.size)) / float64(a.size+b.size)
			dist[bi][k], dist[k][bi] = d, d
		}
		clusters[bi] = &cluster{members: append(a.members, b.members...), size: a.size + b.size}
		clusters[bj] = nil
	}
	for _, c := range clusters {
		if c != nil {
			return c.members
		}
	}
	return nil
}

// transpose returns the column vectors of m.
func transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([][]float64, len(m[0]))
	for j := range out {
		out[j] = make([]float64, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}
