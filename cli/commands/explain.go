package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/strata/internal/config"
	"github.com/satishbabariya/strata/query/sqlgen"
)

type explainOptions struct {
	*globalOptions
	source  querySource
	format  string
	analyze bool
	verbose bool
	pretty  bool
}

func newExplainCommand(global *globalOptions) *cobra.Command {
	opts := &explainOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "explain [query.yaml]",
		Short: "Print the EXPLAIN statement of a query",
		Long: `Compile a query and prefix it with the EXPLAIN form of its dialect:
EXPLAIN (...) on PostgreSQL, EXPLAIN ANALYZE or EXPLAIN FORMAT=x on MySQL
and EXPLAIN QUERY PLAN on SQLite.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	opts.source.bind(cmd)
	cmd.Flags().StringVar(&opts.format, "format", "", "output format (json, text, yaml, xml)")
	cmd.Flags().BoolVar(&opts.analyze, "analyze", false, "run the statement and report actual timings")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "verbose plan (PostgreSQL)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "render the output as markdown")
	return cmd
}

func (o *explainOptions) run(cmd *cobra.Command, args []string) error {
	f, dialect, err := o.source.load(config.AppFs, args, o.cfg.Database.Dialect)
	if err != nil {
		return err
	}

	out, err := f.Explain(dialect, sqlgen.ExplainOptions{
		Format:  sqlgen.ExplainFormat(strings.ToUpper(o.format)),
		Analyze: o.analyze,
		Verbose: o.verbose,
	})
	if err != nil {
		return err
	}
	return printOutput(cmd.OutOrStdout(), out, o.pretty)
}
