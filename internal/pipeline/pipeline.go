package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rnadiff/internal/counts"
	"rnadiff/internal/dataset"
	"rnadiff/internal/deseq"
	"rnadiff/internal/design"
	"rnadiff/internal/logging"
	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
	"rnadiff/internal/shrink"
)

// Config controls the analysis stages.
type Config struct {
	Formula       design.Formula
	DesignOptions design.Options
	// Contrast to test; nil picks the last level of the last design term
	// against its reference.
	Contrast *design.Contrast
	MinCount int64
	FitType  string
	Results  deseq.ResultOptions
	Shrink   string // "" disables shrinkage
	Threads  int    // 0 = all CPUs
	Logger   *zap.Logger
}

// Result is everything the reporting stage needs.
type Result struct {
	Dataset  dataset.Dataset // after filtering
	Dropped  int             // genes removed by the count filter
	Model    *deseq.Model
	Contrast design.Contrast
	// MLE is the unshrunken table; Table equals MLE unless shrinkage ran.
	MLE      results.Table
	Table    results.Table
	PriorVar float64
	Summary  results.Summary
}

// Analyze runs every stage up to result extraction.
func Analyze(ctx context.Context, m counts.Matrix, md counts.Metadata, cfg Config) (Result, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var (
		res Result
		ds  dataset.Dataset
	)

	err := stage(ctx, log, "assemble", func(l *zap.Logger) error {
		var err error
		ds, err = dataset.Assemble(m, md, cfg.Formula, cfg.DesignOptions)
		if err != nil {
			return err
		}
		if res.Contrast, err = resolveContrast(ds.Model, cfg); err != nil {
			return err
		}
		l.Info("dataset ready",
			zap.Int("genes", ds.NumGenes()),
			zap.Int("samples", ds.Counts.NumSamples()),
			zap.Stringer("design", cfg.Formula),
			zap.Strings("coefficients", ds.Model.Coefficients),
			zap.Stringer("contrast", res.Contrast))
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = stage(ctx, log, "filter", func(l *zap.Logger) error {
		before := ds.NumGenes()
		res.Dataset = ds.Filter(cfg.MinCount)
		res.Dropped = before - res.Dataset.NumGenes()
		l.Info("low-count genes removed",
			zap.Int64("min_count", cfg.MinCount),
			zap.Int("kept", res.Dataset.NumGenes()),
			zap.Int("dropped", res.Dropped))
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = stage(ctx, log, "fit", func(l *zap.Logger) error {
		var err error
		res.Model, err = deseq.Fit(ctx, res.Dataset, deseq.Options{Threads: cfg.Threads, FitType: cfg.FitType, Logger: l})
		if err != nil {
			return err
		}
		l.Info("model fitted",
			zap.Float64s("size_factors", res.Model.SizeFactors),
			zap.Stringer("trend", res.Model.Trend),
			zap.Float64("prior_var", res.Model.DispPriorVar))
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	err = stage(ctx, log, "test", func(l *zap.Logger) error {
		var err error
		res.MLE, err = res.Model.Results(res.Contrast, cfg.Results)
		if err != nil {
			return err
		}
		res.Table = res.MLE
		res.Summary = res.MLE.Summarize(res.MLE.Alpha)
		l.Info("wald test done",
			zap.Stringer("contrast", res.Contrast),
			zap.Int("up", res.Summary.Up),
			zap.Int("down", res.Summary.Down),
			zap.Float64("filter_threshold", res.MLE.FilterThreshold))
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if cfg.Shrink == "" {
		return res, nil
	}
	err = stage(ctx, log, "shrink", func(l *zap.Logger) error {
		coef := res.MLE.Coefficient
		if coef == "" {
			return rnaerr.Schemaf("shrinkage needs a contrast against the reference level of %q, got %s", res.Contrast.Factor, res.Contrast)
		}
		out, err := shrink.Shrink(ctx, res.Model, res.MLE, coef, shrink.Options{Type: cfg.Shrink, Threads: cfg.Threads, Logger: l})
		if err != nil {
			return err
		}
		res.Table, res.PriorVar = out.Table, out.PriorVar
		l.Info("fold changes shrunk", zap.String("coefficient", coef), zap.Float64("prior_var", out.PriorVar))
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// resolveContrast picks the contrast to test and checks it, and any
// shrinkage request, against the design before anything is fitted.
func resolveContrast(m *design.Model, cfg Config) (design.Contrast, error) {
	var c design.Contrast
	if cfg.Contrast != nil {
		c = *cfg.Contrast
	} else {
		var err error
		if c, err = m.DefaultContrast(); err != nil {
			return design.Contrast{}, err
		}
	}
	if _, err := m.Vector(c); err != nil {
		return design.Contrast{}, err
	}
	if cfg.Shrink == "" {
		return c, nil
	}
	if cfg.Shrink != shrink.TypeNormal {
		return design.Contrast{}, rnaerr.Schemaf("unknown shrinkage type %q (want %s)", cfg.Shrink, shrink.TypeNormal)
	}
	if _, ok := m.ContrastCoefficient(c); !ok {
		return design.Contrast{}, rnaerr.Schemaf("shrinkage needs a contrast against the reference level of %q, got %s", c.Factor, c)
	}
	return c, nil
}

// stage runs fn with a stage-tagged logger and logs its duration.
func stage(ctx context.Context, log *zap.Logger, name string, fn func(*zap.Logger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := logging.Stage(log, name)
	start := time.Now()
	if err := fn(l); err != nil {
		l.Debug("stage failed", zap.Error(err))
		return err
	}
	l.Debug("stage finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}
