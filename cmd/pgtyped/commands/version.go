package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgtyped/internal/ui"
)

// Version information (set at build time).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func (a *app) newVersionCommand() *cobra.Command {
	var server bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information for pgtyped and, with --server, the connected server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pairs := [][2]string{
				{"Version", Version},
				{"Git Commit", GitCommit},
				{"Build Time", BuildTime},
				{"Go Version", runtime.Version()},
				{"OS/Arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)},
			}

			if server {
				ctx := cmd.Context()
				conn, err := a.connect(ctx)
				if err != nil {
					return err
				}
				defer conn.Close(ctx)

				v, err := conn.ServerVersion(ctx)
				if err != nil {
					return err
				}
				pairs = append(pairs, [2]string{"Server Version", v.String()})
				if a.cfg.MinServerVersion != "" {
					pairs = append(pairs, [2]string{"Minimum Version", a.cfg.MinServerVersion})
				}
			}

			fmt.Fprintf(out, "pgtyped version %s\n", Version)
			ui.KeyValues(out, pairs[1:])
			return nil
		},
	}

	cmd.Flags().BoolVar(&server, "server", false, "also report the server version")
	return cmd
}
