// Package app implements the rnadiff command tree.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rnadiff/internal/cmdutil"
	"rnadiff/internal/logging"
)

// shell holds per-invocation state shared by the subcommands.
type shell struct {
	stdout io.Writer
	stderr io.Writer

	verbose   bool
	quiet     bool
	logFormat string

	log *zap.Logger
}

// Run is RunContext with a background context.
func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// RunContext executes one rnadiff invocation and returns its exit status.
func RunContext(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	sh := &shell{stdout: outw, stderr: stderr, log: zap.NewNop()}
	root := sh.rootCommand()
	root.SetArgs(argv)
	root.SetOut(outw)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if ferr := outw.Flush(); err == nil {
		err = ferr
	}
	_ = sh.log.Sync()
	if err != nil && !cmdutil.IsBrokenPipe(err) {
		_, _ = fmt.Fprintf(stderr, "rnadiff: %v\n", err)
	}
	return cmdutil.ExitCode(err)
}

func (sh *shell) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "rnadiff",
		Short: "Differential gene expression for RNA-seq count tables",
		Long: `rnadiff tests every gene of a count matrix for a change in expression
between two levels of a sample covariate. It normalizes library sizes, fits a
negative-binomial model per gene with shared dispersion information, runs a
Wald test, corrects for multiple testing and writes a result table with MA,
volcano and heatmap figures.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logging.New(sh.stderr, logging.Options{Verbose: sh.verbose, Quiet: sh.quiet, Format: sh.logFormat})
			if err != nil {
				return cmdutil.UsageError{Err: err}
			}
			sh.log = log.With(zap.String("cmd", cmd.Name()))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cmdutil.UsageError{Err: err}
	})
	pf := root.PersistentFlags()
	pf.BoolVarP(&sh.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&sh.quiet, "quiet", "q", false, "warnings and errors only")
	pf.StringVar(&sh.logFormat, "log-format", logging.FormatConsole, "log format: console or json")

	root.AddCommand(
		sh.runCommand(),
		sh.simulateCommand(),
		sh.normalizeCommand(),
		sh.versionCommand(),
	)
	return root
}

// usageArgs turns positional-argument errors into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return cmdutil.UsageError{Err: err}
		}
		return nil
	}
}

// warnf prints a quiet-aware warning on stderr.
func (sh *shell) warnf(format string, a ...any) {
	cmdutil.Warnf(sh.stderr, sh.quiet, format, a...)
}

// changed runs apply for every flag the user set explicitly, in name order.
func changed(fs *pflag.FlagSet, apply map[string]func() error) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if fn, ok := apply[f.Name]; ok {
			err = fn()
		}
	})
	return err
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func usageError(msg string) error {
	return cmdutil.UsageError{Err: errors.New(msg)}
}
