package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/strata/cli/internal/queryfile"
	"github.com/satishbabariya/strata/cli/internal/ui"
	"github.com/satishbabariya/strata/cli/internal/watch"
	"github.com/satishbabariya/strata/internal/config"
	"github.com/satishbabariya/strata/query/table"
)

var errNoQuery = errors.New("pass a query file or --table")

// querySource builds a query file from a path argument, flags, or both.
// Flags refine the file: --where is ANDed, --select and --limit replace.
type querySource struct {
	dialect string
	table   string
	columns []string
	selects []string
	where   string
	limit   int
}

func (s *querySource) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&s.dialect, "dialect", "d", "", "target dialect (postgres, mysql, sqlite, mongodb)")
	f.StringVarP(&s.table, "table", "t", "", "table to query when no file is given")
	f.StringSliceVar(&s.columns, "columns", nil, "declared columns of --table")
	f.StringSliceVarP(&s.selects, "select", "s", nil, "selected columns")
	f.StringVarP(&s.where, "where", "w", "", `filter expression, e.g. 'users.id > 1 and users.name like "a%"'`)
	f.IntVar(&s.limit, "limit", -1, "row limit")
}

// load resolves the query. A query built from flags alone compiles for
// fallbackDialect unless --dialect is given.
func (s *querySource) load(fs afero.Fs, args []string, fallbackDialect string) (*queryfile.File, table.Dialect, error) {
	var f *queryfile.File
	switch {
	case len(args) > 0:
		loaded, err := queryfile.Load(fs, args[0])
		if err != nil {
			return nil, "", err
		}
		f = loaded
	case s.table != "":
		f = &queryfile.File{
			Dialect: fallbackDialect,
			Tables:  map[string]queryfile.TableSpec{s.table: {Columns: s.columns}},
			Query:   queryfile.Query{From: s.table},
		}
	default:
		return nil, "", errNoQuery
	}

	if len(s.selects) > 0 {
		f.Query.Select = s.selects
	}
	if s.where != "" {
		if f.Query.Where != "" {
			f.Query.Where = "(" + f.Query.Where + ") and (" + s.where + ")"
		} else {
			f.Query.Where = s.where
		}
	}
	if s.limit >= 0 {
		limit := s.limit
		f.Query.Limit = &limit
	}

	var dialect table.Dialect
	if s.dialect != "" {
		d, err := table.ParseDialect(s.dialect)
		if err != nil {
			return nil, "", err
		}
		dialect = d
	}
	return f, dialect, nil
}

type compileOptions struct {
	*globalOptions
	source querySource
	pretty bool
	watch  bool
}

func newCompileCommand(global *globalOptions) *cobra.Command {
	opts := &compileOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "compile [query.yaml]",
		Short: "Compile a query to SQL or a MongoDB pipeline",
		Long: `Compile a query file, or a query described by flags, and print the
statement with its bound arguments.`,
		Example: `  strata compile query.yaml --dialect mysql
  strata compile -t users --columns id,name -w 'id in [1, 2]' --pretty
  strata compile query.yaml --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	opts.source.bind(cmd)
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "render the output as markdown")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "recompile whenever the query file changes")
	return cmd
}

func (o *compileOptions) run(cmd *cobra.Command, args []string) error {
	compile := func() error {
		f, dialect, err := o.source.load(config.AppFs, args, o.cfg.Database.Dialect)
		if err != nil {
			return err
		}
		out, err := f.Compile(dialect)
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), out, o.pretty)
	}

	if !o.watch {
		return compile()
	}
	if len(args) == 0 {
		return errors.New("--watch needs a query file")
	}

	w, err := watch.NewWatcher(args[0], watch.DefaultDebounce, func() error {
		if err := compile(); err != nil {
			ui.PrintError("%v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ui.PrintInfo("watching %s, press Ctrl+C to stop", args[0])
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return w.Run(ctx)
}

func printOutput(w io.Writer, out *queryfile.Output, pretty bool) error {
	if pretty {
		return ui.PrintMarkdown(out.Markdown())
	}
	_, err := fmt.Fprintln(w, out.String())
	return err
}
