// Package libpq implements the transport with lib/pq's database/sql driver,
// used directly below database/sql so one driver connection is one session.
//
// The driver does not accept parameter type OIDs, so the server infers
// parameter types from the statement; results are decoded by the driver and
// rendered back to PostgreSQL's text form.
package libpq

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/core/registry"
)

// Name is the configuration name of this transport.
const Name = "libpq"

var errNotConnected = errors.New("libpq: not connected")

// Transport connects with lib/pq.
type Transport struct{}

// New creates a libpq transport.
func New() *Transport {
	return &Transport{}
}

// Name implements transport.Transport.
func (t *Transport) Name() string { return Name }

// Connect implements transport.Transport.
func (t *Transport) Connect(ctx context.Context, url string) (transport.Conn, error) {
	connector, err := pq.NewConnector(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	dc, err := connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Conn{
		connector: connector,
		dc:        dc,
		stmts:     make(map[string]driver.Stmt),
	}, nil
}

// Conn is a lib/pq driver connection.
type Conn struct {
	connector *pq.Connector
	dc        driver.Conn
	stmts     map[string]driver.Stmt
	bad       bool
}

// Healthy implements transport.Conn.
func (c *Conn) Healthy() bool {
	if c.dc == nil || c.bad {
		return false
	}
	if v, ok := c.dc.(driver.Validator); ok {
		return v.IsValid()
	}
	return true
}

// Reset implements transport.Conn.
func (c *Conn) Reset(ctx context.Context) error {
	c.release()

	dc, err := c.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	c.dc = dc
	c.bad = false
	return nil
}

// Execute implements transport.Conn. Parameter tags are left to the server.
func (c *Conn) Execute(ctx context.Context, query string, _ []registry.Tag, values [][]byte) (transport.ResultSet, error) {
	if c.dc == nil {
		return nil, errNotConnected
	}

	q, ok := c.dc.(driver.QueryerContext)
	if !ok {
		return nil, fmt.Errorf("libpq: driver connection does not support queries")
	}

	rows, err := q.QueryContext(ctx, query, namedArgs(values))
	if err != nil {
		return nil, c.track(err)
	}
	return c.collect(rows)
}

// Prepare implements transport.Conn. The driver names the statement itself;
// id is only the local handle.
func (c *Conn) Prepare(ctx context.Context, id, query string, _ []registry.Tag) error {
	if c.dc == nil {
		return errNotConnected
	}

	var (
		stmt driver.Stmt
		err  error
	)
	if p, ok := c.dc.(driver.ConnPrepareContext); ok {
		stmt, err = p.PrepareContext(ctx, query)
	} else {
		stmt, err = c.dc.Prepare(query)
	}
	if err != nil {
		return c.track(err)
	}

	if old, ok := c.stmts[id]; ok {
		_ = old.Close()
	}
	c.stmts[id] = stmt
	return nil
}

// ExecutePrepared implements transport.Conn.
func (c *Conn) ExecutePrepared(ctx context.Context, id string, values [][]byte) (transport.ResultSet, error) {
	if c.dc == nil {
		return nil, errNotConnected
	}

	stmt, ok := c.stmts[id]
	if !ok {
		return nil, fmt.Errorf("libpq: unknown prepared statement %q", id)
	}

	var (
		rows driver.Rows
		err  error
	)
	if sq, ok := stmt.(driver.StmtQueryContext); ok {
		rows, err = sq.QueryContext(ctx, namedArgs(values))
	} else {
		rows, err = stmt.Query(plainArgs(values))
	}
	if err != nil {
		return nil, c.track(err)
	}
	return c.collect(rows)
}

// Close implements transport.Conn.
func (c *Conn) Close(_ context.Context) error {
	if c.dc == nil {
		return nil
	}
	for id, stmt := range c.stmts {
		_ = stmt.Close()
		delete(c.stmts, id)
	}
	err := c.dc.Close()
	c.dc = nil
	return err
}

func (c *Conn) release() {
	for id, stmt := range c.stmts {
		_ = stmt.Close()
		delete(c.stmts, id)
	}
	if c.dc != nil {
		_ = c.dc.Close()
		c.dc = nil
	}
}

// track marks the session broken when the driver reports a dead connection.
func (c *Conn) track(err error) error {
	if errors.Is(err, driver.ErrBadConn) {
		c.bad = true
	}
	return err
}

func (c *Conn) collect(rows driver.Rows) (transport.ResultSet, error) {
	defer rows.Close()

	names := rows.Columns()
	columns := make([]transport.Column, len(names))
	typed, _ := rows.(driver.RowsColumnTypeDatabaseTypeName)
	for i, name := range names {
		columns[i] = transport.Column{Name: name, Tag: registry.Unknown}
		if typed == nil {
			continue
		}
		if tag, ok := registry.TagForName(typed.ColumnTypeDatabaseTypeName(i)); ok {
			columns[i].Tag = tag
		}
	}

	table := &transport.Table{Columns: columns, Described: len(columns) > 0}

	dest := make([]driver.Value, len(names))
	for {
		err := rows.Next(dest)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, c.track(err)
		}

		row := make([][]byte, len(dest))
		for i, v := range dest {
			row[i] = render(v)
		}
		table.Rows = append(table.Rows, row)
	}

	if len(columns) == 0 {
		if r, ok := rows.(interface{ Result() driver.Result }); ok {
			if n, err := r.Result().RowsAffected(); err == nil {
				table.Affected = n
			}
		}
	}

	return table, nil
}

// render converts a driver value back to PostgreSQL's text output form.
func render(v driver.Value) []byte {
	switch v := v.(type) {
	case nil:
		return nil
	case bool:
		if v {
			return []byte("t")
		}
		return []byte("f")
	case int64:
		return strconv.AppendInt(nil, v, 10)
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64)
	case string:
		return append([]byte{}, v...)
	case []byte:
		return append([]byte{}, v...)
	case time.Time:
		return []byte(v.Format(time.RFC3339Nano))
	default:
		return []byte(fmt.Sprint(v))
	}
}

// namedArgs binds values positionally. They are passed as strings so the
// driver sends them as text rather than bytea.
func namedArgs(values [][]byte) []driver.NamedValue {
	args := make([]driver.NamedValue, len(values))
	for i, v := range values {
		args[i] = driver.NamedValue{Ordinal: i + 1, Value: textArg(v)}
	}
	return args
}

func plainArgs(values [][]byte) []driver.Value {
	args := make([]driver.Value, len(values))
	for i, v := range values {
		args[i] = textArg(v)
	}
	return args
}

func textArg(v []byte) driver.Value {
	if v == nil {
		return nil
	}
	return string(v)
}
