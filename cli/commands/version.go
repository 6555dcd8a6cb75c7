package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/strata/cli/internal/ui"
	"github.com/satishbabariya/strata/cli/internal/version"
)

func newVersionCommand(global *globalOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information for the strata CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			}

			if err := global.cfg.CheckVersion(info.Version); err != nil {
				ui.PrintWarning("%v", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include build details")
	return cmd
}
