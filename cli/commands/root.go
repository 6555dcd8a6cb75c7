// Package commands implements the strata CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/strata/cli/internal/version"
	"github.com/satishbabariya/strata/internal/config"
	"github.com/satishbabariya/strata/internal/debug"
)

// globalOptions are shared by every command. cfg is loaded before any
// command runs.
type globalOptions struct {
	logLevel string
	logJSON  bool

	cfg *config.Config
}

// NewRootCommand creates the strata command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "strata",
		Short: "Query compiler and HTTP router toolkit",
		Long: `strata compiles portable query definitions to PostgreSQL, MySQL,
SQLite and MongoDB, and serves them through a trie based HTTP router.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(newCompileCommand(opts))
	cmd.AddCommand(newExplainCommand(opts))
	cmd.AddCommand(newRoutesCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))

	return cmd
}

// load reads the configuration, installs the logger and enforces the
// configured minimum version. The version command reports the check
// instead of failing on it.
func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logJSON {
		cfg.LogJSON = true
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	o.cfg = cfg

	debug.Init(debug.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Writer: cmd.ErrOrStderr()})
	if cfg.File != "" {
		debug.Debug("cli", "config loaded", "file", cfg.File)
	}

	if cmd.Name() == "version" {
		return nil
	}
	return cfg.CheckVersion(version.Version)
}
