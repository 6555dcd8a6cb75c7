package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/strata/cli/internal/demo"
	"github.com/satishbabariya/strata/cli/internal/queryfile"
	"github.com/satishbabariya/strata/cli/internal/ui"
	"github.com/satishbabariya/strata/internal/config"
	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/table"
	"github.com/satishbabariya/strata/router/fiberhttp"
	"github.com/satishbabariya/strata/runtime/client"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	*globalOptions
	addr     string
	basePath string
	dialect  string
	url      string
	schema   string
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application on fiber",
		Long: `Serve a JSON API over the configured database. Tables come from
--schema, a query file whose tables section declares them, or default to
users and posts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.basePath, "base-path", "", "path prefix of every route")
	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", "", "database dialect (default from config)")
	cmd.Flags().StringVar(&opts.url, "url", "", "database URL (default from config)")
	cmd.Flags().StringVar(&opts.schema, "schema", "", "query file declaring the served tables")
	return cmd
}

func (o *serveOptions) settings() (config.Database, config.Server) {
	db, srv := o.cfg.Database, o.cfg.Server
	if o.dialect != "" {
		db.Dialect = o.dialect
	}
	if o.url != "" {
		db.URL = o.url
	}
	if o.addr != "" {
		srv.Addr = o.addr
	}
	if o.basePath != "" {
		srv.BasePath = o.basePath
	}
	return db, srv
}

func (o *serveOptions) tables() ([]*table.Table, error) {
	if o.schema == "" {
		return demo.Tables(), nil
	}
	f, err := queryfile.Load(config.AppFs, o.schema)
	if err != nil {
		return nil, err
	}
	return f.Definitions()
}

func (o *serveOptions) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, srvCfg := o.settings()

	db, err := client.Open(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", dbCfg.Dialect, err)
	}

	tables, err := o.tables()
	if err != nil {
		return err
	}
	if err := db.Define(tables...); err != nil {
		return err
	}

	app, err := demo.New(db, srvCfg.BasePath)
	if err != nil {
		return err
	}

	f, err := fiberhttp.New(app, fiber.Config{
		AppName:               "strata",
		DisableStartupMessage: true,
	})
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- f.Listen(srvCfg.Addr)
	}()

	ui.PrintSuccess("serving %d routes on %s (%s)", len(app.Routes()), srvCfg.Addr, db.Dialect())
	debug.Info("cli", "server started", "addr", srvCfg.Addr, "dialect", db.Dialect(), "tables", db.Tables())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	debug.Info("cli", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return f.ShutdownWithContext(shutdownCtx)
}
