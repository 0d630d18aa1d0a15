package deseq

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	minDisp       = 1e-8
	dispOutlierSD = 2
	minPriorVar   = 0.25
	dispGridSize  = 20
)

// Fit types for the mean–dispersion trend.
const (
	FitParametric = "parametric"
	FitMean       = "mean"
)

// Trend is the fitted mean–dispersion relation.
type Trend struct {
	Type string
	A0   float64 // asymptotic dispersion
	A1   float64 // extra-Poisson term, scaled by 1/mean
}

// At returns the trended dispersion for a gene with the given mean normalized count.
func (t Trend) At(mean float64) float64 {
	if t.Type == FitMean {
		return t.A0
	}
	return t.A0 + t.A1/mean
}

func (t Trend) String() string {
	if t.Type == FitMean {
		return fmt.Sprintf("mean: %.4g", t.A0)
	}
	return fmt.Sprintf("parametric: %.4g + %.4g/mean", t.A0, t.A1)
}

// roughDispersion is the moment estimate from least-squares residuals of the
// normalized counts.
func roughDispersion(norm []float64, x, proj *mat.Dense) float64 {
	n, p := x.Dims()
	var b, fitted mat.VecDense
	b.MulVec(proj, mat.NewVecDense(n, append([]float64(nil), norm...)))
	fitted.MulVec(x, &b)
	var s float64
	for j := 0; j < n; j++ {
		mu := math.Max(fitted.AtVec(j), 1)
		d := norm[j] - mu
		s += (d*d - mu) / (mu * mu)
	}
	return math.Max(s/float64(n-p), 0)
}

// momentsDispersion ignores the design: (var - mean·mean(1/sf)) / mean².
func momentsDispersion(mean, variance, invSFMean float64) float64 {
	return (variance - invSFMean*mean) / (mean * mean)
}

// maximizeLogAlpha searches obj over log-dispersion in [lo, hi]: a coarse grid,
// a finer grid around the best point, then a Nelder–Mead polish.
func maximizeLogAlpha(obj func(logAlpha float64) float64, lo, hi float64) float64 {
	best, bestF := lo, math.Inf(-1)
	scan := func(from, to float64) float64 {
		step := (to - from) / (dispGridSize - 1)
		for k := 0; k < dispGridSize; k++ {
			x := from + float64(k)*step
			if f := obj(x); f > bestF {
				best, bestF = x, f
			}
		}
		return step
	}
	step := scan(lo, hi)
	scan(math.Max(lo, best-step), math.Min(hi, best+step))

	problem := optimize.Problem{Func: func(v []float64) float64 {
		x := clamp(v[0], lo, hi)
		f := obj(x)
		if math.IsNaN(f) {
			return math.Inf(1)
		}
		return -f + (v[0]-x)*(v[0]-x)
	}}
	res, _ := optimize.Minimize(problem, []float64{best}, nil, &optimize.NelderMead{})
	if res != nil && len(res.X) == 1 {
		x := clamp(res.X[0], lo, hi)
		if f := obj(x); f > bestF {
			best = x
		}
	}
	return best
}

var errTrendFailed = errors.New("parametric dispersion fit failed")

// fitParametricTrend fits dispersion = a0 + a1/mean with a gamma-family GLM
// (identity link), dropping genes whose ratio to the current fit is extreme.
func fitParametricTrend(means, disps []float64) (Trend, error) {
	coefs := [2]float64{0.1, 1}
	for iter := 0; ; iter++ {
		var xs, ys []float64
		for i := range means {
			r := disps[i] / (coefs[0] + coefs[1]/means[i])
			if r > 1e-4 && r < 15 {
				xs = append(xs, 1/means[i])
				ys = append(ys, disps[i])
			}
		}
		if len(xs) < 3 {
			return Trend{}, fmt.Errorf("%w: only %d usable genes", errTrendFailed, len(xs))
		}
		next, err := gammaIdentityFit(xs, ys, coefs)
		if err != nil {
			return Trend{}, err
		}
		if next[0] <= 0 || next[1] <= 0 {
			return Trend{}, fmt.Errorf("%w: non-positive coefficients %.3g, %.3g", errTrendFailed, next[0], next[1])
		}
		conv := sq(math.Log(next[0]/coefs[0])) + sq(math.Log(next[1]/coefs[1]))
		coefs = next
		if conv < 1e-6 {
			return Trend{Type: FitParametric, A0: coefs[0], A1: coefs[1]}, nil
		}
		if iter >= 10 {
			return Trend{}, fmt.Errorf("%w: did not converge", errTrendFailed)
		}
	}
}

// gammaIdentityFit runs IRLS for y ~ a0 + a1·x with variance ∝ mu², which
// reduces to weighted least squares with weights 1/mu².
func gammaIdentityFit(x, y []float64, start [2]float64) ([2]float64, error) {
	b := start
	w := make([]float64, len(x))
	for it := 0; it < 50; it++ {
		for i := range x {
			mu := b[0] + b[1]*x[i]
			if mu <= 0 {
				return b, fmt.Errorf("%w: fitted dispersion not positive", errTrendFailed)
			}
			w[i] = 1 / (mu * mu)
		}
		a0, a1 := stat.LinearRegression(x, y, w, false)
		if math.IsNaN(a0) || math.IsNaN(a1) {
			return b, fmt.Errorf("%w: singular fit", errTrendFailed)
		}
		done := math.Abs(a0-b[0]) <= 1e-10*(math.Abs(a0)+1e-10) && math.Abs(a1-b[1]) <= 1e-10*(math.Abs(a1)+1e-10)
		b = [2]float64{a0, a1}
		if done {
			break
		}
	}
	return b, nil
}

// meanTrend is the 0.1%-trimmed mean of the gene-wise estimates.
func meanTrend(disps []float64) Trend {
	s := append([]float64(nil), disps...)
	sort.Float64s(s)
	k := int(math.Floor(0.001 * float64(len(s))))
	return Trend{Type: FitMean, A0: stat.Mean(s[k:len(s)-k], nil)}
}

// priorVariance estimates the spread of log dispersions around the trend not
// explained by sampling noise, trigamma((m-p)/2).
func priorVariance(residuals []float64, m, p int) (varLogDisp, prior float64) {
	s := mad(residuals)
	varLogDisp = s * s
	expected := trigamma(float64(m-p) / 2)
	return varLogDisp, math.Max(varLogDisp-expected, minPriorVar)
}

func trigamma(x float64) float64 { return mathext.Zeta(2, x) }

func sq(v float64) float64 { return v * v }
