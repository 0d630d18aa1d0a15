// Package simulate generates synthetic RNA-seq count data from a
// negative-binomial model with a known set of differentially expressed genes.
package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"rnadiff/internal/counts"
)

// Condition levels used for the two simulated groups.
const (
	Control   = "Control"
	Treatment = "Treatment"
)

// Options shapes the simulated experiment.
type Options struct {
	Genes           int
	SamplesPerGroup int
	Batches         int     // samples are assigned to batches round-robin; 1 = no batch column effect
	DEFraction      float64 // share of genes with a true fold change
	Effect          float64 // typical |log2 fold change| of DE genes
	BatchEffect     float64 // SD of per-gene, per-batch log2 shifts
	MeanLog         float64 // log of the typical base mean
	MeanSDLog       float64
	Asymptotic      float64 // dispersion = Asymptotic + Extra/mean
	Extra           float64
	SizeFactorSD    float64 // SD of log size factors
	Seed            uint64
}

// DefaultOptions simulates 1000 genes in 3 vs 3 samples.
var DefaultOptions = Options{
	Genes:           1000,
	SamplesPerGroup: 3,
	Batches:         1,
	DEFraction:      0.1,
	Effect:          2,
	BatchEffect:     0.3,
	MeanLog:         math.Log(150),
	MeanSDLog:       1.5,
	Asymptotic:      0.05,
	Extra:           2,
	SizeFactorSD:    0.2,
	Seed:            1,
}

// Data is a simulated experiment plus its ground truth.
type Data struct {
	Counts  counts.Matrix
	Meta    counts.Metadata
	TrueLFC []float64 // per gene, 0 for non-DE genes
}

// Generate draws a dataset. Equal options give equal data.
func Generate(opt Options) (Data, error) {
	if opt.Genes <= 0 || opt.SamplesPerGroup <= 0 {
		return Data{}, fmt.Errorf("simulate: genes (%d) and samples per group (%d) must be positive", opt.Genes, opt.SamplesPerGroup)
	}
	if opt.Batches <= 0 {
		opt.Batches = 1
	}
	if opt.Asymptotic <= 0 {
		opt.Asymptotic = DefaultOptions.Asymptotic
	}
	src := rand.NewPCG(opt.Seed, opt.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	baseDist := distuv.LogNormal{Mu: opt.MeanLog, Sigma: opt.MeanSDLog, Src: src}

	n := 2 * opt.SamplesPerGroup
	d := Data{
		Meta: counts.Metadata{
			Columns: []string{"condition"},
			Values:  map[string][]string{"condition": nil},
		},
	}
	if opt.Batches > 1 {
		d.Meta.Columns = append(d.Meta.Columns, "batch")
	}
	treated := make([]bool, n)
	batch := make([]int, n)
	sf := make([]float64, n)
	for j := 0; j < n; j++ {
		name := fmt.Sprintf("S%d", j+1)
		d.Counts.Samples = append(d.Counts.Samples, name)
		d.Meta.Samples = append(d.Meta.Samples, name)
		treated[j] = j >= opt.SamplesPerGroup
		cond := Control
		if treated[j] {
			cond = Treatment
		}
		d.Meta.Values["condition"] = append(d.Meta.Values["condition"], cond)
		batch[j] = j % opt.Batches
		if opt.Batches > 1 {
			d.Meta.Values["batch"] = append(d.Meta.Values["batch"], fmt.Sprintf("b%d", batch[j]+1))
		}
		sf[j] = math.Exp(opt.SizeFactorSD * norm.Rand())
	}

	width := len(fmt.Sprint(opt.Genes))
	for i := 0; i < opt.Genes; i++ {
		base := math.Max(baseDist.Rand(), 0.5)
		lfc := 0.0
		if rng.Float64() < opt.DEFraction {
			lfc = opt.Effect + 0.5*norm.Rand()
			if rng.IntN(2) == 0 {
				lfc = -lfc
			}
		}
		shift := make([]float64, opt.Batches)
		if opt.Batches > 1 {
			for b := range shift {
				shift[b] = opt.BatchEffect * norm.Rand()
			}
		}
		disp := opt.Asymptotic + opt.Extra/base
		row := make([]int64, n)
		for j := 0; j < n; j++ {
			l2 := shift[batch[j]]
			if treated[j] {
				l2 += lfc
			}
			mu := base * sf[j] * math.Exp2(l2)
			row[j] = nbDraw(mu, disp, src)
		}
		d.Counts.Genes = append(d.Counts.Genes, fmt.Sprintf("gene%0*d", width, i+1))
		d.Counts.Values = append(d.Counts.Values, row)
		d.TrueLFC = append(d.TrueLFC, lfc)
	}
	return d, nil
}

// nbDraw samples a negative binomial as a gamma–Poisson mixture.
func nbDraw(mu, disp float64, src rand.Source) int64 {
	shape := 1 / disp
	lambda := distuv.Gamma{Alpha: shape, Beta: shape / mu, Src: src}.Rand()
	if lambda <= 0 {
		return 0
	}
	return int64(distuv.Poisson{Lambda: lambda, Src: src}.Rand())
}
