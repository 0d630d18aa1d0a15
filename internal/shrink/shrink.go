// Package shrink refines log2 fold changes with a zero-centred normal prior
// whose width is estimated from the data (empirical Bayes).
package shrink

import (
	"context"
	"math"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"rnadiff/internal/deseq"
	"rnadiff/internal/design"
	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
)

// TypeNormal is the only supported shrinkage estimator.
const TypeNormal = "normal"

const (
	upperQuantile = 0.05
	maxFiniteLFC  = 10
	minPriorVar   = 1e-8
	interceptVar  = 1e6
)

// Options controls Shrink.
type Options struct {
	Type    string
	Threads int
	Logger  *zap.Logger
}

// Result carries the shrunken table and the prior that produced it.
type Result struct {
	Table    results.Table
	PriorVar float64 // log2 scale
}

// Shrink refits every gene with a normal prior on coefficient and replaces the
// table's Log2FoldChange and LfcSE. Gene ids, row order, Stat, PValue and Padj
// are carried over unchanged. tbl must come from model.
func Shrink(ctx context.Context, model *deseq.Model, tbl results.Table, coefficient string, opt Options) (Result, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opt.Type != "" && opt.Type != TypeNormal {
		return Result{}, rnaerr.Schemaf("unsupported shrinkage type %q (want %q)", opt.Type, TypeNormal)
	}
	k := model.Design.CoefficientIndex(coefficient)
	if k < 0 || coefficient == design.InterceptName {
		return Result{}, rnaerr.Schemaf("cannot shrink coefficient %q; model has %v", coefficient, model.Coefficients())
	}
	if tbl.Coefficient != "" && tbl.Coefficient != coefficient {
		return Result{}, rnaerr.Schemaf("result table tests %q, not coefficient %q", tbl.Coefficient, coefficient)
	}
	if tbl.Len() != model.NumGenes() {
		return Result{}, rnaerr.Shapef("result table has %d genes, model has %d", tbl.Len(), model.NumGenes())
	}

	priorVar := PriorVariance(model, k)
	log.Debug("lfc prior", zap.String("coefficient", coefficient), zap.Float64("prior_var", priorVar))

	p := model.Design.NumCoefficients()
	lambda := make([]float64, p)
	for a := range lambda {
		lambda[a] = 1 / interceptVar
	}
	lambda[k] = 1 / priorVar
	for a := range lambda {
		lambda[a] /= math.Ln2 * math.Ln2
	}

	out := tbl.Clone()
	out.Coefficient = coefficient
	out.Shrunk = true

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	x := model.Design.X
	logSF := make([]float64, len(model.SizeFactors))
	for j, s := range model.SizeFactors {
		logSF[j] = math.Log(s)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i := range out.Records {
		if model.AllZero[i] {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			y := make([]float64, len(model.Counts.Values[i]))
			for j, v := range model.Counts.Values[i] {
				y[j] = float64(v)
			}
			beta0 := make([]float64, p)
			for a := range beta0 {
				beta0[a] = model.Beta[i][a] * math.Ln2
				if math.IsNaN(beta0[a]) || math.Abs(beta0[a]) > 20 {
					beta0[a] = 0
				}
			}
			fit := deseq.FitGLM(y, x, logSF, model.Dispersion[i], lambda, beta0)
			out.Records[i].Log2FoldChange = fit.Beta[k] / math.Ln2
			out.Records[i].LfcSE = math.Sqrt(fit.Cov.At(k, k)) / math.Ln2
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Table: out, PriorVar: priorVar}, nil
}

// PriorVariance matches the upper 5% quantile of |MLE LFC| for coefficient k
// to a zero-mean normal and returns its variance (log2 scale).
func PriorVariance(model *deseq.Model, k int) float64 {
	var abs []float64
	for i, b := range model.Beta {
		if model.AllZero[i] || math.IsNaN(b[k]) || math.Abs(b[k]) >= maxFiniteLFC {
			continue
		}
		abs = append(abs, math.Abs(b[k]))
	}
	if len(abs) == 0 {
		return 1
	}
	sort.Float64s(abs)
	q := quantile7(abs, 1-upperQuantile)
	sd := q / distuv.UnitNormal.Quantile(1-upperQuantile/2)
	return math.Max(sd*sd, minPriorVar)
}

func quantile7(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}
