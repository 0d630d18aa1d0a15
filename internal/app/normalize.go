package app

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rnadiff/internal/counts"
	"rnadiff/internal/deseq"
	"rnadiff/internal/output"
	"rnadiff/internal/rnaerr"
)

func (sh *shell) normalizeCommand() *cobra.Command {
	var (
		countsPath, out, sfPath, format string
		minCount                        int64
	)
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Write median-of-ratios normalized counts",
		Long: `normalize estimates per-sample size factors by the median-of-ratios method
and divides every count by its sample's factor. Without --out the table goes
to standard output.`,
		Example: `  rnadiff normalize --counts counts.tsv.gz --format tsv | head
  rnadiff normalize --counts counts.csv --out norm.csv --size-factors sf.csv`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if countsPath == "" {
				return usageError("--counts is required")
			}
			if format != "csv" && format != "tsv" {
				return rnaerr.Schemaf("invalid --format %q (want csv or tsv)", format)
			}
			m, err := counts.ReadMatrix(countsPath)
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}
			m = m.Filter(minCount)
			sf, err := deseq.EstimateSizeFactors(m)
			if err != nil {
				return err
			}
			sh.log.Info("size factors estimated", zap.Int("genes", m.NumGenes()), zap.Float64s("size_factors", sf))

			delim := output.Delimiter(format)
			norm := deseq.NormalizedCounts(m, sf)
			writeNorm := func(w io.Writer) error {
				return output.WriteNormalized(w, m.Genes, m.Samples, norm, delim)
			}
			if out == "" {
				err = writeNorm(sh.stdout)
			} else {
				err = output.AtomicWrite(out, writeNorm)
			}
			if err != nil {
				return err
			}
			if sfPath != "" {
				return output.AtomicWrite(sfPath, func(w io.Writer) error {
					return output.WriteSizeFactors(w, m.Samples, sf, delim)
				})
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&countsPath, "counts", "", "count matrix (CSV/TSV, optionally gzipped)")
	fs.StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	fs.StringVar(&sfPath, "size-factors", "", "also write size factors to this file")
	fs.StringVar(&format, "format", "csv", "csv or tsv")
	fs.Int64Var(&minCount, "min-count", 0, "drop genes whose total count is below this first")
	return cmd
}

// writeNormalized stores normalized counts and size factors next to the
// result table.
func writeNormalized(dir, format string, m counts.Matrix, sf []float64) error {
	if format != "tsv" {
		format = "csv"
	}
	delim := output.Delimiter(format)
	norm := deseq.NormalizedCounts(m, sf)
	err := output.AtomicWrite(filepath.Join(dir, "normalized_counts."+format), func(w io.Writer) error {
		return output.WriteNormalized(w, m.Genes, m.Samples, norm, delim)
	})
	if err != nil {
		return err
	}
	return output.AtomicWrite(filepath.Join(dir, "size_factors."+format), func(w io.Writer) error {
		return output.WriteSizeFactors(w, m.Samples, sf, delim)
	})
}
