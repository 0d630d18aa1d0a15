package pipeline

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"rnadiff/internal/output"
	"rnadiff/internal/plots"
)

// ReportConfig names the outputs of the reporting stage.
type ReportConfig struct {
	Dir          string // must exist
	Format       string // table format, see output.Formats
	SQLite       string // optional database path
	Design       string // recorded with the sqlite run
	NoPlots      bool
	PlotFormat   string
	HeatmapGenes int
	Plot         plots.Options
	Logger       *zap.Logger
}

// Report lists the files written by WriteReport.
type Report struct {
	Table  string
	Plots  []string
	SQLite string
	RunID  string
}

// WriteReport exports the result table and renders the plots.
func WriteReport(ctx context.Context, res Result, cfg ReportConfig) (Report, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var rep Report
	err := stage(ctx, log, "report", func(l *zap.Logger) error {
		rep.Table = filepath.Join(cfg.Dir, "results."+cfg.Format)
		if err := output.ExportFile(rep.Table, cfg.Format, res.Table); err != nil {
			return err
		}
		if cfg.SQLite != "" {
			run := output.NewRun(cfg.Design, res.Table)
			if err := output.ExportSQLite(ctx, cfg.SQLite, run, res.Table); err != nil {
				return err
			}
			rep.SQLite, rep.RunID = cfg.SQLite, run.ID
		}
		if !cfg.NoPlots {
			for _, fig := range []struct {
				name   string
				render func(path string) error
			}{
				{"ma", func(p string) error { return plots.MA(res.Table, cfg.Plot, p) }},
				{"volcano", func(p string) error { return plots.Volcano(res.Table, cfg.Plot, p) }},
				{"heatmap", func(p string) error {
					return plots.Heatmap(res.Model, res.Table, cfg.HeatmapGenes, cfg.Plot, p)
				}},
			} {
				if err := ctx.Err(); err != nil {
					return err
				}
				path := filepath.Join(cfg.Dir, fig.name+"."+cfg.PlotFormat)
				if err := fig.render(path); err != nil {
					return err
				}
				rep.Plots = append(rep.Plots, path)
			}
		}
		l.Info("outputs written", zap.String("table", rep.Table), zap.Strings("plots", rep.Plots), zap.String("run_id", rep.RunID))
		return nil
	})
	return rep, err
}
