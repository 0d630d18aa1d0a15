package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rnadiff/internal/config"
	"rnadiff/internal/counts"
	"rnadiff/internal/deseq"
	"rnadiff/internal/design"
	"rnadiff/internal/logging"
	"rnadiff/internal/output"
	"rnadiff/internal/pipeline"
	"rnadiff/internal/plots"
	"rnadiff/internal/refdata"
	"rnadiff/internal/results"
	"rnadiff/internal/runutil"
	"rnadiff/internal/simulate"
)

// runFlags mirrors the config fields that can be set on the command line.
type runFlags struct {
	configPath  string
	printConfig bool
	plain       bool

	source, counts, metadata string
	design, contrast         string
	references, continuous   string
	minCount                 int64
	alpha                    float64
	noIndependentFiltering   bool
	fitType, shrink          string
	threads                  int
	padj, lfc                float64

	simGenes, simSamples, simBatches int
	simSeed                          uint64

	outDir, format, sqlite, plotFormat string
	noPlots, normalized                bool
	heatmapGenes                       int
}

func (sh *shell) runCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a differential expression analysis",
		Example: `  rnadiff run --counts counts.tsv --metadata samples.tsv --design "~ batch + condition" \
      --contrast condition,Treatment,Control --out-dir results
  rnadiff run --source reference --shrink normal --plot-format svg
  rnadiff run --config analysis.yaml --threads 8`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sh.resolveConfig(cmd, &f)
			if err != nil {
				return err
			}
			if f.printConfig {
				b, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = sh.stdout.Write(b)
				return err
			}
			return sh.analyze(cmd.Context(), cfg, f.plain)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML analysis file; flags override its values")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the resolved configuration and exit")
	fs.BoolVar(&f.plain, "plain", false, "unstyled summary")

	fs.StringVar(&f.source, "source", config.SourceFiles, "input: files, simulate or reference")
	fs.StringVar(&f.counts, "counts", "", "count matrix (CSV/TSV, optionally gzipped)")
	fs.StringVar(&f.metadata, "metadata", "", "sample table (CSV/TSV, optionally gzipped)")
	fs.StringVarP(&f.design, "design", "d", "", `design formula, e.g. "~ batch + condition"`)
	fs.StringVar(&f.contrast, "contrast", "", "factor,numerator,denominator (default: last design term vs its reference)")
	fs.StringVar(&f.references, "reference", "", "reference levels, factor=level[,factor=level]")
	fs.StringVar(&f.continuous, "continuous", "", "comma-separated covariates to treat as numeric")
	fs.Int64Var(&f.minCount, "min-count", 10, "drop genes whose total count is below this")
	fs.Float64Var(&f.alpha, "alpha", deseq.DefaultResultOptions.Alpha, "FDR target for independent filtering")
	fs.BoolVar(&f.noIndependentFiltering, "no-independent-filtering", false, "adjust all p-values without a mean-count cutoff")
	fs.StringVar(&f.fitType, "fit-type", deseq.FitParametric, "dispersion trend: parametric or mean")
	fs.StringVar(&f.shrink, "shrink", "", `fold-change shrinkage: "" (none) or normal`)
	fs.IntVarP(&f.threads, "threads", "t", 0, "worker goroutines (0 = all CPUs)")
	fs.Float64Var(&f.padj, "padj", results.DefaultThresholds.Padj, "plot significance: padj below")
	fs.Float64Var(&f.lfc, "lfc", results.DefaultThresholds.LFC, "plot significance: |log2FC| above")

	fs.IntVar(&f.simGenes, "sim-genes", simulate.DefaultOptions.Genes, "simulated genes (source simulate)")
	fs.IntVar(&f.simSamples, "sim-samples", simulate.DefaultOptions.SamplesPerGroup, "simulated samples per group")
	fs.IntVar(&f.simBatches, "sim-batches", 1, "simulated batches")
	fs.Uint64Var(&f.simSeed, "seed", simulate.DefaultOptions.Seed, "simulation seed")

	fs.StringVarP(&f.outDir, "out-dir", "o", ".", "existing directory for the table and figures")
	fs.StringVar(&f.format, "format", output.DefaultFormat, "table format: csv, tsv, json or jsonl")
	fs.StringVar(&f.sqlite, "sqlite", "", "also append the run to this SQLite database")
	fs.BoolVar(&f.noPlots, "no-plots", false, "skip the figures")
	fs.StringVar(&f.plotFormat, "plot-format", plots.DefaultFormat, "figure format: png, svg or pdf")
	fs.IntVar(&f.heatmapGenes, "heatmap-genes", 30, "genes in the heatmap")
	fs.BoolVar(&f.normalized, "normalized", false, "also write normalized counts and size factors")
	return cmd
}

// resolveConfig layers defaults, the config file and explicit flags.
func (sh *shell) resolveConfig(cmd *cobra.Command, f *runFlags) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, err
		}
	}
	err := changed(cmd.Flags(), map[string]func() error{
		"source":                   func() error { cfg.Source = f.source; return nil },
		"counts":                   func() error { cfg.Counts = f.counts; return nil },
		"metadata":                 func() error { cfg.Metadata = f.metadata; return nil },
		"design":                   func() error { cfg.Design = f.design; return nil },
		"contrast":                 func() error { cfg.Contrast = f.contrast; return nil },
		"continuous":               func() error { cfg.Continuous = splitList(f.continuous); return nil },
		"min-count":                func() error { cfg.MinCount = &f.minCount; return nil },
		"alpha":                    func() error { cfg.Alpha = f.alpha; return nil },
		"fit-type":                 func() error { cfg.FitType = f.fitType; return nil },
		"shrink":                   func() error { cfg.Shrink = f.shrink; return nil },
		"threads":                  func() error { cfg.Threads = f.threads; return nil },
		"padj":                     func() error { cfg.Significance.Padj = &f.padj; return nil },
		"lfc":                      func() error { cfg.Significance.LFC = &f.lfc; return nil },
		"sim-genes":                func() error { cfg.Simulate.Genes = f.simGenes; return nil },
		"sim-samples":              func() error { cfg.Simulate.SamplesPerGroup = f.simSamples; return nil },
		"sim-batches":              func() error { cfg.Simulate.Batches = f.simBatches; return nil },
		"seed":                     func() error { cfg.Simulate.Seed = &f.simSeed; return nil },
		"out-dir":                  func() error { cfg.Output.Dir = f.outDir; return nil },
		"format":                   func() error { cfg.Output.Format = f.format; return nil },
		"sqlite":                   func() error { cfg.Output.SQLite = f.sqlite; return nil },
		"no-plots":                 func() error { cfg.Output.NoPlots = f.noPlots; return nil },
		"plot-format":              func() error { cfg.Output.PlotFormat = f.plotFormat; return nil },
		"heatmap-genes":            func() error { cfg.Output.HeatmapGenes = &f.heatmapGenes; return nil },
		"normalized":               func() error { cfg.Output.Normalized = f.normalized; return nil },
		"no-independent-filtering": func() error { v := !f.noIndependentFiltering; cfg.IndependentFiltering = &v; return nil },
		"reference": func() error {
			refs, err := config.ParseReferences(f.references)
			cfg.References = refs
			return err
		},
	})
	if err != nil {
		return config.Config{}, err
	}
	cfg.Log.Verbose = cfg.Log.Verbose || sh.verbose
	cfg.Log.Quiet = cfg.Log.Quiet || sh.quiet
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = sh.logFormat
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := sh.useLog(cfg.Log); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// useLog rebuilds the logger once file and flag settings are merged.
func (sh *shell) useLog(l config.Log) error {
	log, err := logging.New(sh.stderr, logging.Options{Verbose: l.Verbose, Quiet: l.Quiet, Format: l.Format})
	if err != nil {
		return err
	}
	sh.quiet = l.Quiet
	sh.log = log.With(zap.String("cmd", "run"))
	return nil
}

// loadInputs returns the count matrix and sample table named by cfg.
func loadInputs(cfg config.Config) (counts.Matrix, counts.Metadata, error) {
	switch cfg.Source {
	case config.SourceSimulate:
		opt := simulate.DefaultOptions
		if cfg.Simulate.Genes > 0 {
			opt.Genes = cfg.Simulate.Genes
		}
		if cfg.Simulate.SamplesPerGroup > 0 {
			opt.SamplesPerGroup = cfg.Simulate.SamplesPerGroup
		}
		if cfg.Simulate.Batches > 0 {
			opt.Batches = cfg.Simulate.Batches
		}
		if cfg.Simulate.DEFraction > 0 {
			opt.DEFraction = cfg.Simulate.DEFraction
		}
		if cfg.Simulate.Effect > 0 {
			opt.Effect = cfg.Simulate.Effect
		}
		if cfg.Simulate.Seed != nil {
			opt.Seed = *cfg.Simulate.Seed
		}
		d, err := simulate.Generate(opt)
		return d.Counts, d.Meta, err
	case config.SourceReference:
		return refdata.Load()
	default:
		m, err := counts.ReadMatrix(cfg.Counts)
		if err != nil {
			return counts.Matrix{}, counts.Metadata{}, err
		}
		md, err := counts.ReadMetadata(cfg.Metadata)
		return m, md, err
	}
}

func (sh *shell) analyze(ctx context.Context, cfg config.Config, plain bool) error {
	log := sh.log
	log.Debug("configuration", zap.Stringer("config", cfg))

	m, md, err := loadInputs(cfg)
	if err != nil {
		return err
	}
	formula, err := design.ParseFormula(cfg.Design)
	if err != nil {
		return err
	}
	pcfg := pipeline.Config{
		Formula:       formula,
		DesignOptions: cfg.DesignOptions(),
		MinCount:      *cfg.MinCount,
		FitType:       cfg.FitType,
		Results:       deseq.ResultOptions{Alpha: cfg.Alpha, IndependentFiltering: *cfg.IndependentFiltering},
		Shrink:        cfg.Shrink,
		Threads:       runutil.Threads(cfg.Threads),
		Logger:        log,
	}
	if cfg.Contrast != "" {
		c, err := design.ParseContrast(cfg.Contrast)
		if err != nil {
			return err
		}
		pcfg.Contrast = &c
	}

	res, err := pipeline.Analyze(ctx, m, md, pcfg)
	if err != nil {
		return err
	}
	if res.Summary.Untested > 0 {
		sh.warnf("%d genes could not be tested (undefined p-value)", res.Summary.Untested)
	}
	nonConv := 0
	for i, ok := range res.Model.Converged {
		if !ok && !res.Model.AllZero[i] {
			nonConv++
		}
	}
	if nonConv > 0 {
		sh.warnf("%d genes did not converge; their estimates are less reliable", nonConv)
	}

	_, err = pipeline.WriteReport(ctx, res, pipeline.ReportConfig{
		Dir:          cfg.Output.Dir,
		Format:       cfg.Output.Format,
		SQLite:       cfg.Output.SQLite,
		Design:       cfg.Design,
		NoPlots:      cfg.Output.NoPlots,
		PlotFormat:   cfg.Output.PlotFormat,
		HeatmapGenes: *cfg.Output.HeatmapGenes,
		Plot: plots.Options{
			Thresholds: results.Thresholds{Padj: *cfg.Significance.Padj, LFC: *cfg.Significance.LFC},
		},
		Logger: log,
	})
	if err != nil {
		return err
	}
	if cfg.Output.Normalized {
		if err := writeNormalized(cfg.Output.Dir, cfg.Output.Format, res.Model.Counts, res.Model.SizeFactors); err != nil {
			return err
		}
	}

	title := res.Contrast.String()
	if res.Table.Shrunk {
		title += fmt.Sprintf(" (normal prior, var %.3g)", res.PriorVar)
	}
	return output.RenderSummary(sh.stdout, title, res.Summary, plain)
}
