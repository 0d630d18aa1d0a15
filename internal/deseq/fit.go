package deseq

import (
	"context"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"rnadiff/internal/counts"
	"rnadiff/internal/dataset"
	"rnadiff/internal/design"
	"rnadiff/internal/rnaerr"
)

// Options controls Fit.
type Options struct {
	Threads int    // worker goroutines for per-gene fits (0 = all CPUs)
	FitType string // FitParametric (default) or FitMean
	Logger  *zap.Logger
}

// ridge is the tiny log2-scale penalty that keeps IRLS well posed.
const ridge = 1e-6

// Model is a fitted dataset. All per-gene slices follow Counts.Genes.
type Model struct {
	Counts  counts.Matrix
	Design  *design.Model
	Samples []string

	SizeFactors []float64
	BaseMean    []float64
	BaseVar     []float64
	AllZero     []bool

	DispGeneEst    []float64
	DispFit        []float64
	DispMAP        []float64
	Dispersion     []float64
	DispOutlier    []bool
	Trend          Trend
	VarLogDispEsts float64
	DispPriorVar   float64

	// Coefficients on the log2 scale, one row per gene, columns as Design.Coefficients.
	Beta      [][]float64
	BetaSE    [][]float64
	Cov       []*mat.SymDense
	Converged []bool
	Deviance  []float64

	logSF []float64
	proj  *mat.Dense
	mu    [][]float64
}

// Coefficients lists the model coefficient names.
func (m *Model) Coefficients() []string { return append([]string(nil), m.Design.Coefficients...) }

// NumGenes returns the number of fitted genes.
func (m *Model) NumGenes() int { return m.Counts.NumGenes() }

// NormalizedCounts returns counts divided by size factors.
func (m *Model) NormalizedCounts() [][]float64 { return NormalizedCounts(m.Counts, m.SizeFactors) }

// Fit estimates size factors and dispersions and fits the GLM for every gene.
// ds is not modified.
func Fit(ctx context.Context, ds dataset.Dataset, opt Options) (*Model, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if ds.NumGenes() == 0 {
		return nil, rnaerr.Degeneratef("no genes left to fit; lower the minimum count filter")
	}
	if opt.FitType == "" {
		opt.FitType = FitParametric
	}
	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	x := ds.Model.X
	nSamples, nCoef := x.Dims()
	nGenes := ds.NumGenes()

	sf, err := EstimateSizeFactors(ds.Counts)
	if err != nil {
		return nil, err
	}
	m := &Model{
		Counts:      ds.Counts,
		Design:      ds.Model,
		Samples:     ds.Counts.Samples,
		SizeFactors: sf,
		BaseMean:    make([]float64, nGenes),
		BaseVar:     make([]float64, nGenes),
		AllZero:     make([]bool, nGenes),
		DispGeneEst: nanSlice(nGenes),
		DispFit:     nanSlice(nGenes),
		DispMAP:     nanSlice(nGenes),
		Dispersion:  nanSlice(nGenes),
		DispOutlier: make([]bool, nGenes),
		Beta:        make([][]float64, nGenes),
		BetaSE:      make([][]float64, nGenes),
		Cov:         make([]*mat.SymDense, nGenes),
		Converged:   make([]bool, nGenes),
		Deviance:    nanSlice(nGenes),
		logSF:       make([]float64, nSamples),
		mu:          make([][]float64, nGenes),
	}
	for j, s := range sf {
		m.logSF[j] = math.Log(s)
	}
	if m.proj, err = projector(x); err != nil {
		return nil, rnaerr.Degeneratef("model matrix is singular: %v", err)
	}

	norm := m.NormalizedCounts()
	var tested []int
	for i := range norm {
		m.BaseMean[i], m.BaseVar[i] = stat.MeanVariance(norm[i], nil)
		m.AllZero[i] = ds.Counts.RowSum(i) == 0
		if !m.AllZero[i] {
			tested = append(tested, i)
		}
	}
	if len(tested) == 0 {
		return nil, rnaerr.Degeneratef("all %d genes have zero counts", nGenes)
	}
	y := make([][]float64, nGenes)
	for i, row := range ds.Counts.Values {
		y[i] = make([]float64, nSamples)
		for j, v := range row {
			y[i][j] = float64(v)
		}
	}

	maxDisp := math.Max(10, float64(nSamples))
	lambda := make([]float64, nCoef)
	for k := range lambda {
		lambda[k] = ridge / (math.Ln2 * math.Ln2)
	}
	var invSF float64
	for _, s := range sf {
		invSF += 1 / s
	}
	invSF /= float64(nSamples)

	// Gene-wise estimates.
	start := time.Now()
	err = forEachGene(ctx, threads, tested, func(i int) {
		rough := roughDispersion(norm[i], x, m.proj)
		moments := momentsDispersion(m.BaseMean[i], m.BaseVar[i], invSF)
		alpha0 := clamp(math.Min(rough, moments), minDisp, maxDisp)
		if math.IsNaN(alpha0) {
			alpha0 = minDisp
		}
		fit := FitGLM(y[i], x, m.logSF, alpha0, lambda, startBeta(m.proj, y[i], sf))
		mu := append([]float64(nil), fit.Mu...)
		m.mu[i] = mu
		la := maximizeLogAlpha(func(la float64) float64 {
			return coxReidLogLik(y[i], mu, x, math.Exp(la))
		}, math.Log(minDisp), math.Log(maxDisp))
		m.DispGeneEst[i] = clamp(math.Exp(la), minDisp, maxDisp)
	})
	if err != nil {
		return nil, err
	}
	log.Debug("gene-wise dispersions", zap.Int("genes", len(tested)), zap.Duration("elapsed", time.Since(start)))

	// Trend and prior.
	var useMeans, useDisps []float64
	var useIdx []int
	for _, i := range tested {
		if m.DispGeneEst[i] >= 100*minDisp {
			useIdx = append(useIdx, i)
			useMeans = append(useMeans, m.BaseMean[i])
			useDisps = append(useDisps, m.DispGeneEst[i])
		}
	}
	if len(useIdx) == 0 {
		log.Warn("all gene-wise dispersion estimates are within 2 orders of magnitude of the minimum; using gene-wise estimates")
		m.Trend = meanTrend(geneEsts(m, tested))
		m.DispPriorVar = minPriorVar
		for _, i := range tested {
			m.DispFit[i] = m.Trend.At(m.BaseMean[i])
			m.DispMAP[i] = m.DispGeneEst[i]
			m.Dispersion[i] = m.DispGeneEst[i]
		}
	} else {
		m.Trend = fitTrend(opt.FitType, useMeans, useDisps, log)
		for _, i := range tested {
			m.DispFit[i] = m.Trend.At(m.BaseMean[i])
		}
		resid := make([]float64, len(useIdx))
		for k, i := range useIdx {
			resid[k] = math.Log(m.DispGeneEst[i]) - math.Log(m.DispFit[i])
		}
		m.VarLogDispEsts, m.DispPriorVar = priorVariance(resid, nSamples, nCoef)

		// MAP estimates.
		err = forEachGene(ctx, threads, tested, func(i int) {
			logTrend := math.Log(m.DispFit[i])
			mu := m.mu[i]
			la := maximizeLogAlpha(func(la float64) float64 {
				d := la - logTrend
				return coxReidLogLik(y[i], mu, x, math.Exp(la)) - d*d/(2*m.DispPriorVar)
			}, math.Log(minDisp), math.Log(maxDisp))
			m.DispMAP[i] = clamp(math.Exp(la), minDisp, maxDisp)
			outlier := m.DispGeneEst[i] >= 100*minDisp &&
				math.Log(m.DispGeneEst[i]) > logTrend+dispOutlierSD*math.Sqrt(m.VarLogDispEsts)
			m.DispOutlier[i] = outlier
			if outlier {
				m.Dispersion[i] = m.DispGeneEst[i]
			} else {
				m.Dispersion[i] = m.DispMAP[i]
			}
		})
		if err != nil {
			return nil, err
		}
	}
	log.Debug("dispersion trend", zap.Stringer("trend", m.Trend), zap.Float64("prior_var", m.DispPriorVar))

	// Final coefficients.
	err = forEachGene(ctx, threads, tested, func(i int) {
		fit := FitGLM(y[i], x, m.logSF, m.Dispersion[i], lambda, startBeta(m.proj, y[i], sf))
		m.storeFit(i, fit)
	})
	if err != nil {
		return nil, err
	}
	for _, i := range tested {
		m.mu[i] = nil
	}
	for i := range m.Beta {
		if m.AllZero[i] {
			m.Beta[i] = nanSlice(nCoef)
			m.BetaSE[i] = nanSlice(nCoef)
		}
	}
	nonConv := 0
	for _, i := range tested {
		if !m.Converged[i] {
			nonConv++
		}
	}
	if nonConv > 0 {
		log.Warn("genes did not converge in IRLS", zap.Int("genes", nonConv))
	}
	return m, nil
}

func (m *Model) storeFit(i int, fit GLMFit) {
	p := len(fit.Beta)
	beta := make([]float64, p)
	se := make([]float64, p)
	cov := mat.NewSymDense(p, nil)
	scale := 1 / (math.Ln2 * math.Ln2)
	for a := 0; a < p; a++ {
		beta[a] = fit.Beta[a] / math.Ln2
		for b := a; b < p; b++ {
			cov.SetSym(a, b, fit.Cov.At(a, b)*scale)
		}
		se[a] = math.Sqrt(cov.At(a, a))
	}
	m.Beta[i], m.BetaSE[i], m.Cov[i] = beta, se, cov
	m.Converged[i] = fit.Converged
	m.Deviance[i] = fit.Deviance
}

func fitTrend(fitType string, means, disps []float64, log *zap.Logger) Trend {
	if fitType == FitMean {
		return meanTrend(disps)
	}
	t, err := fitParametricTrend(means, disps)
	if err != nil {
		log.Warn("falling back to mean dispersion trend", zap.Error(err))
		return meanTrend(disps)
	}
	return t
}

func geneEsts(m *Model, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = m.DispGeneEst[i]
	}
	return out
}

// forEachGene runs fn for every index on a bounded pool. Each call owns index i,
// so results land in fixed slots and do not depend on scheduling.
func forEachGene(ctx context.Context, threads int, idx []int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for _, i := range idx {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
