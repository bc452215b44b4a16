package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/satishbabariya/pgtyped/internal/ui"
	"github.com/satishbabariya/pgtyped/pkg/client"
)

// Output formats.
const (
	formatTable    = "table"
	formatMarkdown = "markdown"
	formatPlain    = "plain"
)

// render prints res in format. Statements without a row description print
// their affected row count instead.
func render(w io.Writer, res *client.Result, format string) error {
	if res.ColumnCount() == 0 {
		n, _ := res.RowsAffected()
		fmt.Fprintf(w, "%d rows affected\n", n)
		return nil
	}

	headers, err := res.ColumnNames()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, res.RowCount())
	for row := range res.Rows() {
		cells := make([]string, row.Columns())
		for col := range cells {
			cells[col], err = cell(row, col)
			if err != nil {
				return err
			}
		}
		rows = append(rows, cells)
	}

	switch format {
	case "", formatTable:
		out, err := ui.Table(headers, rows)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	case formatMarkdown:
		out, err := ui.Markdown(ui.MarkdownTable(headers, rows))
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	case formatPlain:
		fmt.Fprint(w, ui.Plain(headers, rows))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

// cell formats one column. Types without a semantic type show the server's
// text.
func cell(row *client.Row, col int) (string, error) {
	v, err := row.Value(col)
	switch {
	case err == nil:
		if v.IsNull() {
			return ui.Null(), nil
		}
		return v.String(), nil
	case errors.Is(err, client.ErrUnsupportedType):
		text, null, err := row.Raw(col)
		if err != nil {
			return "", err
		}
		if null {
			return ui.Null(), nil
		}
		return text, nil
	default:
		return "", err
	}
}

// statsPairs lists connection statistics for ui.KeyValues.
func statsPairs(s client.Stats) [][2]string {
	return [][2]string{
		{"Prepared statements", fmt.Sprint(s.Prepared)},
		{"Cache hits", fmt.Sprint(s.Hits)},
		{"Cache misses", fmt.Sprint(s.Misses)},
		{"Failed prepares", fmt.Sprint(s.FailedPrepares)},
		{"Hit rate", fmt.Sprintf("%.1f%%", s.HitRate)},
		{"Queries", fmt.Sprint(s.Queries)},
		{"Resets", fmt.Sprint(s.Resets)},
	}
}
