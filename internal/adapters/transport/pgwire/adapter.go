// Package pgwire implements the transport on top of pgx's low level
// connection, speaking the extended query protocol with text results.
package pgwire

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/core/registry"
)

// Name is the configuration name of this transport.
const Name = "pgwire"

var errNotConnected = errors.New("pgwire: not connected")

// Transport connects with pgconn.
type Transport struct{}

// New creates a pgwire transport.
func New() *Transport {
	return &Transport{}
}

// Name implements transport.Transport.
func (t *Transport) Name() string { return Name }

// Connect implements transport.Transport.
func (t *Transport) Connect(ctx context.Context, url string) (transport.Conn, error) {
	config, err := pgconn.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pg, err := pgconn.ConnectConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Conn{pg: pg, config: config}, nil
}

// Conn is a pgconn session.
type Conn struct {
	pg     *pgconn.PgConn
	config *pgconn.Config
}

// Healthy implements transport.Conn.
func (c *Conn) Healthy() bool {
	return c.pg != nil && !c.pg.IsClosed()
}

// Reset implements transport.Conn by dialing a new session with the
// original configuration.
func (c *Conn) Reset(ctx context.Context) error {
	if c.pg != nil {
		_ = c.pg.Close(ctx)
	}

	pg, err := pgconn.ConnectConfig(ctx, c.config)
	if err != nil {
		c.pg = nil
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	c.pg = pg
	return nil
}

// Execute implements transport.Conn.
func (c *Conn) Execute(ctx context.Context, query string, tags []registry.Tag, values [][]byte) (transport.ResultSet, error) {
	if c.pg == nil {
		return nil, errNotConnected
	}
	return collect(c.pg.ExecParams(ctx, query, values, oids(tags), nil, nil))
}

// Prepare implements transport.Conn.
func (c *Conn) Prepare(ctx context.Context, id, query string, tags []registry.Tag) error {
	if c.pg == nil {
		return errNotConnected
	}
	_, err := c.pg.Prepare(ctx, id, query, oids(tags))
	return err
}

// ExecutePrepared implements transport.Conn.
func (c *Conn) ExecutePrepared(ctx context.Context, id string, values [][]byte) (transport.ResultSet, error) {
	if c.pg == nil {
		return nil, errNotConnected
	}
	return collect(c.pg.ExecPrepared(ctx, id, values, nil, nil))
}

// Close implements transport.Conn.
func (c *Conn) Close(ctx context.Context) error {
	if c.pg == nil {
		return nil
	}
	err := c.pg.Close(ctx)
	c.pg = nil
	return err
}

// collect drains rr into a Table. The reader reuses its row buffers, so every
// cell is copied.
func collect(rr *pgconn.ResultReader) (transport.ResultSet, error) {
	fields := slices.Clone(rr.FieldDescriptions())

	var rows [][][]byte
	for rr.NextRow() {
		src := rr.Values()
		row := make([][]byte, len(src))
		for i, v := range src {
			if v != nil {
				row[i] = append([]byte{}, v...)
			}
		}
		rows = append(rows, row)
	}

	tag, err := rr.Close()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		fields = slices.Clone(rr.FieldDescriptions())
	}

	columns := make([]transport.Column, len(fields))
	for i, f := range fields {
		columns[i] = transport.Column{Name: f.Name, Tag: registry.Tag(f.DataTypeOID)}
	}

	return &transport.Table{
		Columns:   columns,
		Rows:      rows,
		Affected:  tag.RowsAffected(),
		Described: len(fields) > 0 || tag.Select(),
	}, nil
}

func oids(tags []registry.Tag) []uint32 {
	if len(tags) == 0 {
		return nil
	}
	out := make([]uint32, len(tags))
	for i, t := range tags {
		out[i] = uint32(t)
	}
	return out
}
