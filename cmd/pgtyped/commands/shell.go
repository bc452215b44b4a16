package commands

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/pgtyped/internal/ui"
	"github.com/satishbabariya/pgtyped/pkg/client"
)

const shellHelp = `Enter a query without parameters to run it.
  \stats   statement cache statistics
  \help    this text
  \q       quit`

func (a *app) newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run queries interactively",
		Long:  "Open one connection and run queries typed at the prompt.\n\n" + shellHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer conn.Close(ctx)

			out := cmd.OutOrStdout()
			ui.Header(out, "pgtyped shell", `\help for commands, \q to quit`)

			for {
				var line string
				err := survey.AskOne(&survey.Input{Message: "pgtyped>"}, &line)
				if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				if a.shellLine(ctx, out, conn, line) {
					return nil
				}
			}
		},
	}
}

// shellLine handles one line of input and reports whether the shell should
// exit. Query errors are printed, not returned.
func (a *app) shellLine(ctx context.Context, w io.Writer, conn *client.Conn, line string) bool {
	line = strings.TrimSpace(line)

	switch line {
	case "":
		return false
	case `\q`, `\quit`, "exit":
		return true
	case `\stats`:
		ui.KeyValues(w, statsPairs(conn.Stats()))
		return false
	case `\help`, `\?`:
		_, _ = io.WriteString(w, shellHelp+"\n")
		return false
	}

	query := strings.TrimSpace(strings.TrimSuffix(line, ";"))
	if err := a.execute(ctx, w, conn, query, nil); err != nil {
		ui.Error(w, "%v", err)
	}
	return false
}
