package deseq

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// nbLogPMF is the negative-binomial log probability of count y with mean mu
// and dispersion alpha (variance mu + alpha·mu²).
func nbLogPMF(y, mu, alpha float64) float64 {
	r := 1 / alpha
	a, _ := math.Lgamma(y + r)
	b, _ := math.Lgamma(r)
	c, _ := math.Lgamma(y + 1)
	return a - b - c + r*math.Log(r/(r+mu)) + y*math.Log(mu/(r+mu))
}

func nbLogLik(y, mu []float64, alpha float64) float64 {
	var ll float64
	for i := range y {
		ll += nbLogPMF(y[i], mu[i], alpha)
	}
	return ll
}

// coxReidLogLik is the NB log-likelihood of alpha for fixed mu, adjusted by the
// Cox–Reid term -½·log det(XᵀWX) with W = diag(mu / (1 + alpha·mu)).
func coxReidLogLik(y, mu []float64, x *mat.Dense, alpha float64) float64 {
	ll := nbLogLik(y, mu, alpha)
	w := make([]float64, len(mu))
	for i := range w {
		w[i] = mu[i] / (1 + alpha*mu[i])
	}
	ld, sign := mat.LogDet(crossprod(x, w, nil))
	if sign <= 0 || math.IsNaN(ld) {
		return ll
	}
	return ll - 0.5*ld
}

// crossprod returns XᵀWX + diag(lambda); lambda may be nil.
func crossprod(x *mat.Dense, w, lambda []float64) *mat.SymDense {
	n, p := x.Dims()
	out := mat.NewSymDense(p, nil)
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			var s float64
			for i := 0; i < n; i++ {
				s += x.At(i, a) * w[i] * x.At(i, b)
			}
			if a == b && lambda != nil {
				s += lambda[a]
			}
			out.SetSym(a, b, s)
		}
	}
	return out
}
