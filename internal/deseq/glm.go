package deseq

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	glmMaxIter = 100
	glmTol     = 1e-8
	minMu      = 0.5
	// largeBeta flags a diverging fit on the natural-log scale.
	largeBeta = 30
)

// GLMFit is one gene's negative-binomial regression on the natural-log scale.
type GLMFit struct {
	Beta      []float64
	Cov       *mat.SymDense // sandwich covariance of Beta
	Mu        []float64
	Deviance  float64
	Iter      int
	Converged bool
}

// FitGLM fits log(mu) = log(sf) + Xβ by iteratively reweighted least squares
// with a ridge penalty lambda (natural-log scale, one entry per coefficient).
// beta0 seeds the iteration.
func FitGLM(y []float64, x *mat.Dense, logSF []float64, alpha float64, lambda, beta0 []float64) GLMFit {
	n, p := x.Dims()
	beta := mat.NewVecDense(p, append([]float64(nil), beta0...))
	mu := make([]float64, n)
	w := make([]float64, n)
	z := mat.NewVecDense(n, nil)

	updateMu := func() {
		for i := 0; i < n; i++ {
			eta := logSF[i] + mat.Dot(x.RowView(i), beta)
			mu[i] = math.Max(math.Exp(eta), minMu)
		}
	}
	updateMu()

	fit := GLMFit{Mu: mu}
	devOld := math.Inf(1)
	for iter := 1; iter <= glmMaxIter; iter++ {
		fit.Iter = iter
		for i := 0; i < n; i++ {
			w[i] = mu[i] / (1 + alpha*mu[i])
			z.SetVec(i, math.Log(mu[i])-logSF[i]+(y[i]-mu[i])/mu[i])
		}
		a := crossprod(x, w, lambda)
		var wz mat.VecDense
		wz.MulElemVec(mat.NewVecDense(n, append([]float64(nil), w...)), z)
		var rhs mat.VecDense
		rhs.MulVec(x.T(), &wz)

		var ch mat.Cholesky
		if !ch.Factorize(a) {
			break
		}
		var next mat.VecDense
		if err := ch.SolveVecTo(&next, &rhs); err != nil {
			break
		}
		diverged := false
		for k := 0; k < p; k++ {
			if math.Abs(next.AtVec(k)) > largeBeta || math.IsNaN(next.AtVec(k)) {
				diverged = true
			}
		}
		beta.CopyVec(&next)
		updateMu()
		if diverged {
			break
		}
		dev := -2 * nbLogLik(y, mu, alpha)
		if math.Abs(dev-devOld)/(math.Abs(dev)+0.1) < glmTol {
			fit.Converged = true
			fit.Deviance = dev
			break
		}
		devOld = dev
		fit.Deviance = dev
	}

	fit.Beta = mat.Col(nil, 0, beta)
	fit.Cov = sandwich(x, mu, alpha, lambda)
	return fit
}

// sandwich returns (XᵀWX+Λ)⁻¹ XᵀWX (XᵀWX+Λ)⁻¹ at the final mu.
func sandwich(x *mat.Dense, mu []float64, alpha float64, lambda []float64) *mat.SymDense {
	_, p := x.Dims()
	w := make([]float64, len(mu))
	for i := range w {
		w[i] = mu[i] / (1 + alpha*mu[i])
	}
	plain := crossprod(x, w, nil)
	ridge := crossprod(x, w, lambda)
	out := mat.NewSymDense(p, nil)

	var ch mat.Cholesky
	if !ch.Factorize(ridge) {
		for k := 0; k < p; k++ {
			out.SetSym(k, k, math.NaN())
		}
		return out
	}
	var inv mat.SymDense
	if err := ch.InverseTo(&inv); err != nil {
		for k := 0; k < p; k++ {
			out.SetSym(k, k, math.NaN())
		}
		return out
	}
	var tmp, full mat.Dense
	tmp.Mul(&inv, plain)
	full.Mul(&tmp, &inv)
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			out.SetSym(a, b, (full.At(a, b)+full.At(b, a))/2)
		}
	}
	return out
}

// projector returns (XᵀX)⁻¹Xᵀ, used for least-squares starts and rough dispersions.
func projector(x *mat.Dense) (*mat.Dense, error) {
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var proj mat.Dense
	if err := proj.Solve(&xtx, x.T()); err != nil {
		return nil, err
	}
	return &proj, nil
}

// startBeta regresses log(normalized + 0.1) on X.
func startBeta(proj *mat.Dense, y, sf []float64) []float64 {
	p, n := proj.Dims()
	v := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		v.SetVec(j, math.Log(y[j]/sf[j]+0.1))
	}
	var b mat.VecDense
	b.MulVec(proj, v)
	out := make([]float64, p)
	for k := range out {
		out[k] = b.AtVec(k)
	}
	return out
}
