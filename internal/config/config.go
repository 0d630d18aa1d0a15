// Package config loads the analysis settings for `rnadiff run`.
//
// Values come from three places in increasing priority: built-in defaults,
// an optional YAML file, and command-line flags. The command layer applies
// flags on top of Load's result and then calls Validate.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"rnadiff/internal/deseq"
	"rnadiff/internal/design"
	"rnadiff/internal/logging"
	"rnadiff/internal/output"
	"rnadiff/internal/plots"
	"rnadiff/internal/results"
	"rnadiff/internal/rnaerr"
	"rnadiff/internal/shrink"
)

// Input sources.
const (
	SourceFiles     = "files"
	SourceSimulate  = "simulate"
	SourceReference = "reference"
)

const (
	defaultDesign       = "~ condition"
	defaultMinCount     = 10
	defaultHeatmapGenes = 30
)

// Config is one analysis run.
type Config struct {
	Source   string `yaml:"source"`
	Counts   string `yaml:"counts,omitempty"`
	Metadata string `yaml:"metadata,omitempty"`

	Design string `yaml:"design"`
	// Contrast is "factor,numerator,denominator"; empty picks the last design term.
	Contrast   string            `yaml:"contrast,omitempty"`
	References map[string]string `yaml:"references,omitempty"`
	Continuous []string          `yaml:"continuous,omitempty"`

	MinCount             *int64  `yaml:"min_count,omitempty"`
	Alpha                float64 `yaml:"alpha"`
	IndependentFiltering *bool   `yaml:"independent_filtering,omitempty"`
	FitType              string  `yaml:"fit_type"`
	Shrink               string  `yaml:"shrink,omitempty"` // "" or "normal"
	Threads              int     `yaml:"threads"`

	Significance Significance `yaml:"significance"`
	Simulate     Simulate     `yaml:"simulate"`
	Output       Output       `yaml:"output"`
	Log          Log          `yaml:"log"`
}

// Significance sets the plot highlighting thresholds. Nil means the
// default; an explicit zero is kept.
type Significance struct {
	Padj *float64 `yaml:"padj,omitempty"`
	LFC  *float64 `yaml:"lfc,omitempty"`
}

// Simulate shapes the synthetic input when Source is SourceSimulate.
type Simulate struct {
	Genes           int     `yaml:"genes"`
	SamplesPerGroup int     `yaml:"samples_per_group"`
	Batches         int     `yaml:"batches"`
	DEFraction      float64 `yaml:"de_fraction"`
	Effect          float64 `yaml:"effect"`
	Seed            *uint64 `yaml:"seed,omitempty"` // nil uses the simulator's default
}

// Output names what gets written and where.
type Output struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"`
	SQLite       string `yaml:"sqlite,omitempty"`
	NoPlots      bool   `yaml:"no_plots,omitempty"`
	PlotFormat   string `yaml:"plot_format"`
	HeatmapGenes *int   `yaml:"heatmap_genes,omitempty"`
	Normalized   bool   `yaml:"normalized,omitempty"`
}

// Log configures the logger.
type Log struct {
	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose,omitempty"`
	Quiet   bool   `yaml:"quiet,omitempty"`
}

// Load reads path. Unknown keys are rejected so typos surface early.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, rnaerr.IO(err, "read config")
	}
	return Parse(b, path)
}

// Parse decodes YAML content; name is used in error messages.
func Parse(b []byte, name string) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, rnaerr.Schemaf("%s: %v", name, err)
	}
	return c, nil
}

// Marshal renders c as YAML, for `--print-config`.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WithDefaults fills every unset field.
func (c Config) WithDefaults() Config {
	if c.Source == "" {
		c.Source = SourceFiles
	}
	if c.Design == "" {
		c.Design = defaultDesign
	}
	if c.MinCount == nil {
		v := int64(defaultMinCount)
		c.MinCount = &v
	}
	if c.Alpha == 0 {
		c.Alpha = deseq.DefaultResultOptions.Alpha
	}
	if c.IndependentFiltering == nil {
		v := deseq.DefaultResultOptions.IndependentFiltering
		c.IndependentFiltering = &v
	}
	if c.FitType == "" {
		c.FitType = deseq.FitParametric
	}
	if c.Significance.Padj == nil {
		v := results.DefaultThresholds.Padj
		c.Significance.Padj = &v
	}
	if c.Significance.LFC == nil {
		v := results.DefaultThresholds.LFC
		c.Significance.LFC = &v
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Format == "" {
		c.Output.Format = output.DefaultFormat
	}
	if c.Output.PlotFormat == "" {
		c.Output.PlotFormat = plots.DefaultFormat
	}
	if c.Output.HeatmapGenes == nil {
		v := defaultHeatmapGenes
		c.Output.HeatmapGenes = &v
	}
	if c.Log.Format == "" {
		c.Log.Format = logging.FormatConsole
	}
	return c
}

// Validate reports the first setting that cannot work. Errors are usage
// errors (schema kind).
func (c Config) Validate() error {
	switch c.Source {
	case SourceFiles:
		if c.Counts == "" || c.Metadata == "" {
			return rnaerr.Schemaf("source %q needs both --counts and --metadata", SourceFiles)
		}
	case SourceSimulate, SourceReference:
		if c.Counts != "" || c.Metadata != "" {
			return rnaerr.Schemaf("--counts/--metadata conflict with source %q", c.Source)
		}
	default:
		return rnaerr.Schemaf("invalid source %q (want %s, %s or %s)", c.Source, SourceFiles, SourceSimulate, SourceReference)
	}
	if _, err := design.ParseFormula(c.Design); err != nil {
		return err
	}
	if c.Contrast != "" {
		if _, err := design.ParseContrast(c.Contrast); err != nil {
			return err
		}
	}
	if c.MinCount != nil && *c.MinCount < 0 {
		return rnaerr.Schemaf("min_count must be ≥ 0")
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return rnaerr.Schemaf("alpha must be in (0, 1), got %g", c.Alpha)
	}
	switch c.FitType {
	case deseq.FitParametric, deseq.FitMean:
	default:
		return rnaerr.Schemaf("invalid fit_type %q (want %s or %s)", c.FitType, deseq.FitParametric, deseq.FitMean)
	}
	switch c.Shrink {
	case "", shrink.TypeNormal:
	default:
		return rnaerr.Schemaf("invalid shrink %q (want %s)", c.Shrink, shrink.TypeNormal)
	}
	if c.Threads < 0 {
		return rnaerr.Schemaf("threads must be ≥ 0")
	}
	if p := c.Significance.Padj; p != nil && (*p <= 0 || *p > 1) {
		return rnaerr.Schemaf("significance.padj must be in (0, 1]")
	}
	if l := c.Significance.LFC; l != nil && *l < 0 {
		return rnaerr.Schemaf("significance.lfc must be ≥ 0")
	}
	if !output.HasFormat(c.Output.Format) {
		return rnaerr.Schemaf("invalid output format %q (want one of %s)", c.Output.Format, strings.Join(output.Formats(), ", "))
	}
	if !plots.HasFormat(c.Output.PlotFormat) {
		return rnaerr.Schemaf("invalid plot format %q (want one of %s)", c.Output.PlotFormat, strings.Join(plots.Formats, ", "))
	}
	if n := c.Output.HeatmapGenes; n != nil && *n < 0 {
		return rnaerr.Schemaf("heatmap_genes must be ≥ 0")
	}
	switch c.Log.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return rnaerr.Schemaf("invalid log format %q", c.Log.Format)
	}
	return nil
}

// DesignOptions returns the model-matrix options named by c.
func (c Config) DesignOptions() design.Options {
	return design.Options{References: c.References, Continuous: c.Continuous}
}

// ParseReferences reads "factor=level,factor=level".
func ParseReferences(s string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, rnaerr.Schemaf("reference %q: want factor=level", kv)
		}
		out[k] = v
	}
	return out, nil
}

func (c Config) String() string {
	return fmt.Sprintf("source=%s design=%q contrast=%q min_count=%d alpha=%g", c.Source, c.Design, c.Contrast, deref(c.MinCount), c.Alpha)
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
