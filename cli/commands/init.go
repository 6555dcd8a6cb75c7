package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/strata/cli/internal/ui"
	"github.com/satishbabariya/strata/internal/config"
	"github.com/satishbabariya/strata/query/table"
)

var defaultURLs = map[table.Dialect]string{
	table.Postgres: "postgres://localhost:5432/strata?sslmode=disable",
	table.MySQL:    "root@tcp(localhost:3306)/strata",
	table.SQLite:   "file:strata.db",
	table.MongoDB:  "mongodb://localhost:27017",
}

// ask is replaced in tests.
var ask = survey.Ask

type initAnswers struct {
	URL      string `survey:"url"`
	Database string `survey:"database"`
	Addr     string `survey:"addr"`
	LogLevel string `survey:"log_level"`
}

type initOptions struct {
	*globalOptions
	path    string
	dialect string
	url     string
	yes     bool
}

func newInitCommand(global *globalOptions) *cobra.Command {
	opts := &initOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a strata configuration file",
		Long: `Ask for the database and server settings and write them to
.strata.yaml (by default in $HOME/.config/strata).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run()
		},
	}

	cmd.Flags().StringVar(&opts.path, "path", "", "file to write (default $HOME/.config/strata/.strata.yaml)")
	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", "", "database dialect")
	cmd.Flags().StringVar(&opts.url, "url", "", "database URL")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "accept defaults without prompting")
	return cmd
}

func (o *initOptions) run() error {
	cfg := *o.cfg
	ui.PrintHeader("strata init", "database and server settings")

	dialect, err := o.chooseDialect()
	if err != nil {
		return err
	}
	cfg.Database.Dialect = string(dialect)

	answers := initAnswers{
		URL:      o.url,
		Database: cfg.Database.Database,
		Addr:     cfg.Server.Addr,
		LogLevel: cfg.LogLevel,
	}
	switch answers.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		answers.LogLevel = "info"
	}
	if answers.URL == "" {
		answers.URL = defaultURLs[dialect]
	}
	if dialect == table.MongoDB && answers.Database == "" {
		answers.Database = "strata"
	}

	if !o.yes {
		if err := ask(o.questions(dialect, answers), &answers); err != nil {
			return err
		}
	}

	cfg.Database.URL = answers.URL
	cfg.Database.Database = answers.Database
	cfg.Server.Addr = answers.Addr
	cfg.LogLevel = answers.LogLevel

	path, err := config.Save(&cfg, o.path)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Wrote %s", path)
	ui.PrintSection("Next steps")
	ui.PrintList([]string{
		"strata compile -t users --columns id,name -w 'id > 1'",
		"strata routes",
		fmt.Sprintf("strata serve  (listens on %s)", cfg.Server.Addr),
	})
	return nil
}

func (o *initOptions) chooseDialect() (table.Dialect, error) {
	choice := o.dialect
	if choice == "" {
		choice = o.cfg.Database.Dialect
		if d, err := table.ParseDialect(choice); err == nil {
			choice = string(d)
		} else {
			choice = string(table.SQLite)
		}
		if !o.yes {
			prompt := &survey.Select{
				Message: "Database:",
				Options: []string{string(table.Postgres), string(table.MySQL), string(table.SQLite), string(table.MongoDB)},
				Default: choice,
			}
			if err := survey.AskOne(prompt, &choice); err != nil {
				return "", err
			}
		}
	}
	return table.ParseDialect(choice)
}

func (o *initOptions) questions(dialect table.Dialect, defaults initAnswers) []*survey.Question {
	qs := []*survey.Question{
		{
			Name:     "url",
			Prompt:   &survey.Input{Message: "Connection URL:", Default: defaults.URL},
			Validate: survey.Required,
		},
	}
	if dialect == table.MongoDB {
		qs = append(qs, &survey.Question{
			Name:     "database",
			Prompt:   &survey.Input{Message: "Database name:", Default: defaults.Database},
			Validate: survey.Required,
		})
	}
	return append(qs,
		&survey.Question{
			Name:   "addr",
			Prompt: &survey.Input{Message: "Listen address for strata serve:", Default: defaults.Addr},
		},
		&survey.Question{
			Name: "log_level",
			Prompt: &survey.Select{
				Message: "Log level:",
				Options: []string{"debug", "info", "warn", "error"},
				Default: defaults.LogLevel,
			},
		},
	)
}
