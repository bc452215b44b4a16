// Package client runs parameterized queries against PostgreSQL and reads their
// results as typed columns.
//
// A Conn prepares every distinct query text once and executes it by statement
// id afterwards:
//
//	conn, err := client.Open(ctx, "postgres://localhost/app")
//	if err != nil {
//		return err
//	}
//	defer conn.Close(ctx)
//
//	res, err := conn.Query(ctx, "SELECT $2::int, $1::varchar", "abc", int32(123))
//	if err != nil {
//		return err
//	}
//	defer res.Close()
//
//	for row := range res.Rows() {
//		n, err := row.GetInt32(0)
//		...
//	}
//
// A Conn is not safe for concurrent use.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/adapters/transport/factory"
	"github.com/satishbabariya/pgtyped/internal/core/params"
	"github.com/satishbabariya/pgtyped/internal/core/stmtcache"
	"github.com/satishbabariya/pgtyped/internal/debug"
	"github.com/satishbabariya/pgtyped/pkg/types"
)

const serverVersionQuery = "SELECT current_setting('server_version')"

var errStillUnhealthy = errors.New("connection still unhealthy after reset")

// Conn is a connection with its prepared statement cache.
type Conn struct {
	config      Config
	conn        transport.Conn
	cache       *stmtcache.Cache
	logger      *slog.Logger
	middlewares []Middleware
	version     *version.Version
	resets      int
	queries     int64
	closed      bool
}

// Stats reports statement cache and connection counters.
type Stats struct {
	// Prepared is the number of statements prepared on the current session.
	Prepared int
	Hits     int64
	Misses   int64
	// FailedPrepares counts prepares rejected by the server.
	FailedPrepares int64
	HitRate        float64
	Queries        int64
	Resets         int
}

// Open connects to the server at url.
func Open(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	var config Config
	for _, opt := range opts {
		opt(&config)
	}

	if config.Logger == nil {
		config.Logger = debug.Logger()
	}

	tr := config.transport
	if tr == nil {
		var err error
		tr, err = factory.New(config.Transport)
		if err != nil {
			return nil, err
		}
	}

	connectCtx, cancel := withTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	tc, err := tr.Connect(connectCtx, url)
	if err != nil {
		return nil, &types.QueryError{Operation: "connect", Kind: types.ErrConnection, Cause: err}
	}

	c := &Conn{
		config:      config,
		conn:        tc,
		cache:       stmtcache.New(),
		logger:      config.Logger.With("transport", tr.Name()),
		middlewares: append([]Middleware(nil), config.Middleware...),
	}
	c.logger.Debug("connected")

	if config.MinServerVersion != "" {
		if err := c.checkServerVersion(ctx, config.MinServerVersion); err != nil {
			_ = tc.Close(ctx)
			return nil, err
		}
	}

	return c, nil
}

// Query runs query with args bound to $1, $2, ... in order. The statement is
// prepared on first use of the query text and reused afterwards.
//
// Supported parameter types are bool, int32, int64, int, float32, float64,
// string and types.Value; anything else fails before the server is contacted.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	return c.roundTrip(ctx, query, args, func(enc params.Encoded, event *QueryEvent) (transport.ResultSet, error) {
		id, hit, err := c.cache.IDFor(ctx, c.conn, query, enc.Tags)
		if err != nil {
			return nil, &types.QueryError{Operation: "prepare", Query: query, Kind: types.ErrExecution, Cause: err}
		}
		event.StatementID, event.CacheHit = id, hit

		if hit {
			c.logger.Debug("statement cache hit", "statement", id)
		} else {
			c.logger.Debug("prepared statement", "statement", id, "query", query)
		}

		rs, err := c.conn.ExecutePrepared(ctx, id, enc.Values)
		if err != nil {
			return rs, &types.QueryError{Operation: "execute", Query: query, StatementID: id, Kind: types.ErrExecution, Cause: err}
		}
		return rs, nil
	})
}

// Exec runs query without preparing it, so nothing is added to the statement
// cache. It suits statements that run once, such as DDL. Parameters work as
// for Query.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (*Result, error) {
	return c.roundTrip(ctx, query, args, func(enc params.Encoded, _ *QueryEvent) (transport.ResultSet, error) {
		rs, err := c.conn.Execute(ctx, query, enc.Tags, enc.Values)
		if err != nil {
			return rs, &types.QueryError{Operation: "execute", Query: query, Kind: types.ErrExecution, Cause: err}
		}
		return rs, nil
	})
}

// roundTrip encodes args, then runs exec through the middleware chain on a
// healthy connection.
func (c *Conn) roundTrip(ctx context.Context, query string, args []any, exec func(params.Encoded, *QueryEvent) (transport.ResultSet, error)) (*Result, error) {
	if c.closed {
		return nil, types.ErrConnClosed
	}

	enc, err := params.Encode(args)
	if err != nil {
		return nil, err
	}

	event := &QueryEvent{Query: query, Args: args}

	var rs transport.ResultSet
	err = c.executeWithMiddleware(ctx, event, func() error {
		if err := c.ensureHealthy(ctx); err != nil {
			return err
		}

		c.queries++
		var err error
		rs, err = exec(enc, event)
		return err
	})
	if err != nil {
		if rs != nil {
			_ = rs.Close()
		}
		return nil, err
	}

	return newResult(rs), nil
}

// QueryFunc runs query and passes the result to fn. The result is closed when
// fn returns.
func (c *Conn) QueryFunc(ctx context.Context, query string, fn func(*Result) error, args ...any) error {
	res, err := c.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer res.Close()

	return fn(res)
}

// ServerVersion returns the server's version, queried once per Conn.
func (c *Conn) ServerVersion(ctx context.Context) (*version.Version, error) {
	if c.version != nil {
		return c.version, nil
	}

	var raw *string
	err := c.QueryFunc(ctx, serverVersionQuery, func(res *Result) error {
		row, err := res.Row(0)
		if err != nil {
			return err
		}
		raw, err = row.GetText(0)
		return err
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("server reported no version")
	}

	v, err := ParseServerVersion(*raw)
	if err != nil {
		return nil, err
	}

	c.version = v
	return v, nil
}

// ParseServerVersion parses a server_version setting such as
// "16.2 (Debian 16.2-1.pgdg120+2)".
func ParseServerVersion(raw string) (*version.Version, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty server version")
	}

	v, err := version.NewVersion(fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid server version %q: %w", raw, err)
	}
	return v, nil
}

// Stats returns statement cache and connection counters.
func (c *Conn) Stats() Stats {
	s := c.cache.Stats()
	return Stats{
		Prepared:       s.Size,
		Hits:           s.Hits,
		Misses:         s.Misses,
		FailedPrepares: s.Failures,
		HitRate:        s.HitRate,
		Queries:        c.queries,
		Resets:         c.resets,
	}
}

// Close ends the session. Prepared statement ids die with it; results already
// returned stay readable until they are closed. Close is idempotent.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.cache.Reset()

	c.logger.Debug("closing connection")
	if err := c.conn.Close(ctx); err != nil {
		return &types.QueryError{Operation: "close", Kind: types.ErrConnection, Cause: err}
	}
	return nil
}

// ensureHealthy resets an unhealthy connection once. A successful reset is a
// new server session, so the statement cache is cleared with it.
func (c *Conn) ensureHealthy(ctx context.Context) error {
	if c.conn.Healthy() {
		return nil
	}

	c.resets++
	c.logger.Warn("connection unhealthy, resetting", "resets", c.resets)

	resetCtx, cancel := withTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	if err := c.conn.Reset(resetCtx); err != nil {
		return &types.QueryError{Operation: "reset", Kind: types.ErrConnection, Cause: err}
	}
	c.cache.Reset()

	if !c.conn.Healthy() {
		return &types.QueryError{Operation: "reset", Kind: types.ErrConnection, Cause: errStillUnhealthy}
	}
	return nil
}

func (c *Conn) checkServerVersion(ctx context.Context, minimum string) error {
	want, err := version.NewVersion(minimum)
	if err != nil {
		return fmt.Errorf("invalid minimum server version %q: %w", minimum, err)
	}

	got, err := c.ServerVersion(ctx)
	if err != nil {
		return err
	}

	if got.LessThan(want) {
		return fmt.Errorf("%w: server version %s is older than %s", types.ErrConnection, got, want)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
