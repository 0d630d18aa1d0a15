package design

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"rnadiff/internal/counts"
	"rnadiff/internal/rnaerr"
)

// InterceptName is the name of the first model coefficient.
const InterceptName = "Intercept"

// Factor is a categorical covariate with its levels; Reference is the baseline.
type Factor struct {
	Name      string
	Levels    []string
	Reference string
}

// Options tunes model matrix construction.
type Options struct {
	// References pins the baseline level per factor; otherwise the lexically first level is used.
	References map[string]string
	// Continuous lists covariates to treat as numeric instead of categorical.
	Continuous []string
}

// Model is the design matrix for a set of samples plus its coefficient names.
type Model struct {
	X            *mat.Dense
	Coefficients []string
	Factors      map[string]Factor
	Formula      Formula
}

// NumCoefficients returns the number of columns of X.
func (m *Model) NumCoefficients() int { return len(m.Coefficients) }

// CoefficientIndex returns the column for name, or -1.
func (m *Model) CoefficientIndex(name string) int {
	for i, c := range m.Coefficients {
		if c == name {
			return i
		}
	}
	return -1
}

// CoefficientName returns the column name for level of factor.
func CoefficientName(factor, level, reference string) string {
	return factor + "_" + level + "_vs_" + reference
}

// Build constructs the model matrix for f over md.
func Build(md counts.Metadata, f Formula, opt Options) (*Model, error) {
	n := len(md.Samples)
	continuous := map[string]bool{}
	for _, c := range opt.Continuous {
		continuous[c] = true
	}

	cols := [][]float64{ones(n)}
	names := []string{InterceptName}
	factors := map[string]Factor{}

	for _, term := range f.Terms {
		vals, ok := md.Column(term)
		if !ok {
			return nil, rnaerr.Schemaf("design term %q is not a metadata column (have %v)", term, md.Columns)
		}
		if continuous[term] {
			col := make([]float64, n)
			for i, v := range vals {
				x, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, rnaerr.Schemaf("continuous covariate %q: sample %q value %q is not numeric", term, md.Samples[i], v)
				}
				col[i] = x
			}
			cols = append(cols, col)
			names = append(names, term)
			continue
		}
		fac, err := newFactor(term, vals, opt.References[term])
		if err != nil {
			return nil, err
		}
		factors[term] = fac
		for _, lvl := range fac.Levels {
			if lvl == fac.Reference {
				continue
			}
			col := make([]float64, n)
			for i, v := range vals {
				if v == lvl {
					col[i] = 1
				}
			}
			cols = append(cols, col)
			names = append(names, CoefficientName(term, lvl, fac.Reference))
		}
	}

	p := len(cols)
	if n <= p {
		return nil, rnaerr.Degeneratef("%d samples cannot support %d coefficients: no residual degrees of freedom", n, p)
	}
	x := mat.NewDense(n, p, nil)
	for j, col := range cols {
		x.SetCol(j, col)
	}
	if rank := matrixRank(x); rank < p {
		return nil, rnaerr.Degeneratef("model matrix for %s is not full rank (rank %d < %d): covariates are confounded", f, rank, p)
	}
	return &Model{X: x, Coefficients: names, Factors: factors, Formula: f}, nil
}

func newFactor(name string, vals []string, ref string) (Factor, error) {
	set := map[string]struct{}{}
	for _, v := range vals {
		if v == "" || v == "NA" {
			return Factor{}, rnaerr.Schemaf("factor %q has a missing value", name)
		}
		set[v] = struct{}{}
	}
	levels := make([]string, 0, len(set))
	for v := range set {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	if len(levels) < 2 {
		return Factor{}, rnaerr.Degeneratef("factor %q has %d distinct level(s), need at least 2", name, len(levels))
	}
	if ref == "" {
		ref = levels[0]
	} else if _, ok := set[ref]; !ok {
		return Factor{}, rnaerr.Schemaf("reference level %q is not a level of %q (levels %v)", ref, name, levels)
	}
	return Factor{Name: name, Levels: levels, Reference: ref}, nil
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func matrixRank(x *mat.Dense) int {
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDNone) {
		return 0
	}
	vals := svd.Values(nil)
	r, c := x.Dims()
	tol := vals[0] * float64(max(r, c)) * 1e-12
	rank := 0
	for _, s := range vals {
		if s > tol {
			rank++
		}
	}
	return rank
}

// String renders the coefficient list, as DESeq2 prints resultsNames.
func (m *Model) String() string { return fmt.Sprint(m.Coefficients) }
