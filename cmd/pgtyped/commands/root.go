// Package commands implements the pgtyped CLI.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgtyped/internal/config"
	"github.com/satishbabariya/pgtyped/internal/debug"
	"github.com/satishbabariya/pgtyped/pkg/client"
)

var errNoURL = errors.New("no database URL: use --url, database_url in the config file, or DATABASE_URL")

// app is the state shared by all commands of one invocation.
type app struct {
	loader     *config.Loader
	cfg        *config.Config
	configFile string
}

// NewRootCommand creates the pgtyped command tree.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	root := &cobra.Command{
		Use:               "pgtyped",
		Short:             "Typed PostgreSQL queries from the command line",
		Long:              "pgtyped runs parameterized queries over prepared statements and prints typed results",
		Version:           fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: .pgtyped.yaml in ., $HOME or $HOME/.config/pgtyped)")
	flags.String("url", "", "database URL")
	flags.String("transport", "", "wire transport: pgwire or libpq")
	flags.String("log-level", "", "log level: debug, info, warn, error or off")
	flags.String("log-format", "", "log format: text or json")
	flags.StringP("output", "o", "", "output format: table, markdown or plain")

	for flag, key := range map[string]string{
		"url":        config.KeyDatabaseURL,
		"transport":  config.KeyTransport,
		"log-level":  config.KeyLogLevel,
		"log-format": config.KeyLogFormat,
		"output":     config.KeyOutputFormat,
	} {
		_ = a.loader.Viper().BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		a.newQueryCommand(),
		a.newRunCommand(),
		a.newShellCommand(),
		a.newVersionCommand(),
		a.newConfigCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loader.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	return debug.Init(debug.Options{
		Level:  cfg.LogLevel,
		Format: debug.Format(cfg.LogFormat),
		Output: cmd.ErrOrStderr(),
	})
}

// connect opens a connection with the loaded configuration.
func (a *app) connect(ctx context.Context) (*client.Conn, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, errNoURL
	}

	logger := debug.Logger()
	return client.Open(ctx, a.cfg.DatabaseURL,
		client.WithTransport(a.cfg.Transport),
		client.WithConnectTimeout(a.cfg.ConnectTimeout),
		client.WithMinServerVersion(a.cfg.MinServerVersion),
		client.WithLogger(logger),
		client.WithMiddleware(client.LoggingMiddleware(logger)),
	)
}
