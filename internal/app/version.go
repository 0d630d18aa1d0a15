package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"rnadiff/internal/version"
)

func (sh *shell) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(sh.stdout, "rnadiff version %s (%s)\n", version.Version, runtime.Version())
			return err
		},
	}
}
