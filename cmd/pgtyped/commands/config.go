package commands

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgtyped/internal/config"
	"github.com/satishbabariya/pgtyped/internal/ui"
)

func (a *app) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and save settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.KeyValues(cmd.OutOrStdout(), settings(a.cfg))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Save the effective settings to $HOME/.config/pgtyped/.pgtyped.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.loader.Save(a.cfg)
			if err != nil {
				return err
			}
			ui.Success(cmd.OutOrStdout(), "Saved %s", path)
			return nil
		},
	})

	return cmd
}

func settings(cfg *config.Config) [][2]string {
	file := cfg.File
	if file == "" {
		file = "(none)"
	}
	return [][2]string{
		{config.KeyDatabaseURL, redact(cfg.DatabaseURL)},
		{config.KeyTransport, cfg.Transport},
		{config.KeyConnectTimeout, cfg.ConnectTimeout.String()},
		{config.KeyMinServerVersion, cfg.MinServerVersion},
		{config.KeyLogLevel, cfg.LogLevel},
		{config.KeyLogFormat, cfg.LogFormat},
		{config.KeyOutputFormat, cfg.OutputFormat},
		{"config_file", file},
	}
}

// redact hides the password of a URL-form connection string.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
