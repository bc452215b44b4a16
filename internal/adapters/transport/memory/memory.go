// Package memory provides a scripted in-process transport for tests.
//
// Responses are registered per query text. Each connection keeps its own set
// of prepared statements, so a Reset loses them the way a new server session
// would.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/core/registry"
)

// Name is the configuration name of this transport.
const Name = "memory"

// Handler produces the result of one execution from its bound values.
type Handler func(values [][]byte) (*transport.Table, error)

// PrepareCall records a Prepare.
type PrepareCall struct {
	ID    string
	Query string
	Tags  []registry.Tag
}

// ExecCall records an execution. ID is empty for unprepared executions.
type ExecCall struct {
	ID     string
	Query  string
	Values [][]byte
}

// Transport is a scripted server plus its connections.
type Transport struct {
	mu sync.Mutex

	handlers    map[string]Handler
	prepareErrs map[string]error
	connectErr  error
	resetErr    error
	healAfter   bool

	conns      []*Conn
	prepares   []PrepareCall
	executions []ExecCall
	resets     int
	results    []*transport.Table
}

// New creates a transport with nothing scripted.
func New() *Transport {
	return &Transport{
		handlers:    make(map[string]Handler),
		prepareErrs: make(map[string]error),
		healAfter:   true,
	}
}

// Name implements transport.Transport.
func (t *Transport) Name() string { return Name }

// Handle registers h for query.
func (t *Transport) Handle(query string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[query] = h
}

// Respond registers a fixed result for query. Every execution gets its own copy.
func (t *Transport) Respond(query string, table *transport.Table) {
	t.Handle(query, func([][]byte) (*transport.Table, error) {
		return Clone(table), nil
	})
}

// Fail makes every execution of query return err.
func (t *Transport) Fail(query string, err error) {
	t.Handle(query, func([][]byte) (*transport.Table, error) {
		return nil, err
	})
}

// FailPrepare makes preparing query return err until cleared with a nil err.
func (t *Transport) FailPrepare(query string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.prepareErrs, query)
		return
	}
	t.prepareErrs[query] = err
}

// FailConnect makes Connect return err.
func (t *Transport) FailConnect(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connectErr = err
}

// FailReset makes Reset return err. When heal is false a reset also leaves
// the connection unhealthy without reporting an error.
func (t *Transport) FailReset(err error, heal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetErr = err
	t.healAfter = heal
}

// Connect implements transport.Transport.
func (t *Transport) Connect(ctx context.Context, url string) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connectErr != nil {
		return nil, t.connectErr
	}

	c := &Conn{t: t, url: url, healthy: true, stmts: make(map[string]string)}
	t.conns = append(t.conns, c)
	return c, nil
}

// Conns returns every connection opened so far.
func (t *Transport) Conns() []*Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Conn(nil), t.conns...)
}

// Prepares returns the recorded Prepare calls.
func (t *Transport) Prepares() []PrepareCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]PrepareCall(nil), t.prepares...)
}

// Executions returns the recorded executions.
func (t *Transport) Executions() []ExecCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ExecCall(nil), t.executions...)
}

// Resets returns how many times Reset was called.
func (t *Transport) Resets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}

// Results returns every result handed out, in order.
func (t *Transport) Results() []*transport.Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*transport.Table(nil), t.results...)
}

func (t *Transport) run(query, id string, values [][]byte) (transport.ResultSet, error) {
	t.mu.Lock()
	t.executions = append(t.executions, ExecCall{ID: id, Query: query, Values: cloneValues(values)})
	h, ok := t.handlers[query]
	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("memory: no response scripted for %q", query)
	}

	table, err := h(cloneValues(values))
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.results = append(t.results, table)
	t.mu.Unlock()
	return table, nil
}

// Conn is one scripted session.
type Conn struct {
	t       *Transport
	url     string
	healthy bool
	closed  bool
	stmts   map[string]string
}

var errClosed = errors.New("memory: connection closed")

// URL returns the url the connection was opened with.
func (c *Conn) URL() string { return c.url }

// Break marks the session unhealthy.
func (c *Conn) Break() {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.healthy = false
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.closed
}

// Statements returns the number of statements prepared on this session.
func (c *Conn) Statements() int {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return len(c.stmts)
}

// Healthy implements transport.Conn.
func (c *Conn) Healthy() bool {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.healthy && !c.closed
}

// Reset implements transport.Conn.
func (c *Conn) Reset(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()

	c.t.resets++
	if c.t.resetErr != nil {
		return c.t.resetErr
	}

	c.stmts = make(map[string]string)
	c.healthy = c.t.healAfter
	return nil
}

// Execute implements transport.Conn.
func (c *Conn) Execute(ctx context.Context, query string, _ []registry.Tag, values [][]byte) (transport.ResultSet, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	return c.t.run(query, "", values)
}

// Prepare implements transport.Conn.
func (c *Conn) Prepare(ctx context.Context, id, query string, tags []registry.Tag) error {
	if err := c.check(ctx); err != nil {
		return err
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()

	c.t.prepares = append(c.t.prepares, PrepareCall{ID: id, Query: query, Tags: append([]registry.Tag(nil), tags...)})

	if err, ok := c.t.prepareErrs[query]; ok {
		return err
	}
	if _, ok := c.t.handlers[query]; !ok {
		return fmt.Errorf("memory: no response scripted for %q", query)
	}
	if _, ok := c.stmts[id]; ok {
		return fmt.Errorf("memory: prepared statement %q already exists", id)
	}

	c.stmts[id] = query
	return nil
}

// ExecutePrepared implements transport.Conn.
func (c *Conn) ExecutePrepared(ctx context.Context, id string, values [][]byte) (transport.ResultSet, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	c.t.mu.Lock()
	query, ok := c.stmts[id]
	c.t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("memory: prepared statement %q does not exist", id)
	}
	return c.t.run(query, id, values)
}

// Close implements transport.Conn.
func (c *Conn) Close(_ context.Context) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.closed = true
	c.stmts = make(map[string]string)
	return nil
}

func (c *Conn) check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if c.closed {
		return errClosed
	}
	return nil
}

func cloneValues(values [][]byte) [][]byte {
	if values == nil {
		return nil
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = append([]byte{}, v...)
		}
	}
	return out
}
