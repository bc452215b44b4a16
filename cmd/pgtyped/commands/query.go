package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgtyped/internal/config"
	"github.com/satishbabariya/pgtyped/internal/ui"
	"github.com/satishbabariya/pgtyped/internal/watch"
	"github.com/satishbabariya/pgtyped/pkg/client"
)

func (a *app) newQueryCommand() *cobra.Command {
	var unprepared bool

	cmd := &cobra.Command{
		Use:   "query SQL [PARAM...]",
		Short: "Run a query",
		Long: `Run a query with parameters bound to $1, $2, ...

Parameters are typed literals: 42 is int8, 1.5 is float8, true is bool and
anything else is text. Append a cast to pick another type, as in 7::int4,
2.5::float4 or null::text. Quote text with single quotes to keep spaces.`,
		Example: `  pgtyped query "SELECT $1::int4 + 1" 41::int4
  pgtyped query "SELECT $2::int, $1::varchar" abc 123::int4
  pgtyped query "UPDATE users SET name = $1 WHERE id = $2" "'Ada L'" 7`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			if unprepared {
				res, err := conn.Exec(ctx, args[0], params...)
				if err != nil {
					return err
				}
				defer res.Close()
				return render(cmd.OutOrStdout(), res, a.cfg.OutputFormat)
			}
			return a.execute(ctx, cmd.OutOrStdout(), conn, args[0], params)
		},
	}

	cmd.Flags().BoolVar(&unprepared, "unprepared", false, "run without creating a prepared statement")
	return cmd
}

func (a *app) newRunCommand() *cobra.Command {
	var watchFile bool

	cmd := &cobra.Command{
		Use:   "run FILE [PARAM...]",
		Short: "Run the query in a file",
		Long: `Run the single query stored in FILE. Parameters work as for query.

With --watch the query runs again whenever the file is saved. All runs share
one connection, so an unchanged query reuses its prepared statement.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			out := cmd.OutOrStdout()
			runFile := func() error {
				query, err := readQuery(file)
				if err != nil {
					return err
				}
				return a.execute(ctx, out, conn, query, params)
			}

			if !watchFile {
				return runFile()
			}

			w, err := watch.NewWatcher(file, func() error {
				ui.Info(out, "Running %s", file)
				return runFile()
			}, watch.WithErrorHandler(func(err error) {
				ui.Error(cmd.ErrOrStderr(), "%v", err)
			}))
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				_ = w.Stop()
				return err
			}

			ui.Info(out, "Watching %s, press Ctrl+C to stop", file)
			<-ctx.Done()
			return w.Stop()
		},
	}

	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "run again when the file changes")
	return cmd
}

// execute runs query on conn and renders its result.
func (a *app) execute(ctx context.Context, w io.Writer, conn *client.Conn, query string, params []any) error {
	return conn.QueryFunc(ctx, query, func(res *client.Result) error {
		return render(w, res, a.cfg.OutputFormat)
	}, params...)
}

// readQuery loads a query file. A trailing semicolon is dropped because a
// prepared statement holds a single command.
func readQuery(file string) (string, error) {
	data, err := afero.ReadFile(config.AppFs, file)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file, err)
	}

	query := strings.TrimSpace(string(data))
	query = strings.TrimSpace(strings.TrimSuffix(query, ";"))
	if query == "" {
		return "", fmt.Errorf("%s is empty", file)
	}
	return query, nil
}
