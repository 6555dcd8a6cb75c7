package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/strata/cli/internal/demo"
	"github.com/satishbabariya/strata/cli/internal/ui"
)

func newRoutesCommand(global *globalOptions) *cobra.Command {
	var basePath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the compiled routes of the demo application",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("base-path") {
				basePath = global.cfg.Server.BasePath
			}

			app, err := demo.New(nil, basePath)
			if err != nil {
				return err
			}

			routes := app.Routes()
			rows := make([][]string, len(routes))
			for i, r := range routes {
				rows[i] = []string{ui.Method(r.Method), r.Path, strconv.Itoa(r.Middlewares)}
			}
			ui.PrintSection("Routes")
			return ui.PrintTable([]string{"Method", "Path", "Middlewares"}, rows)
		},
	}

	cmd.Flags().StringVar(&basePath, "base-path", "", "path prefix of every route")
	return cmd
}
