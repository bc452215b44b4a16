package client

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/adapters/transport/memory"
	"github.com/satishbabariya/pgtyped/internal/core/registry"
	"github.com/satishbabariya/pgtyped/pkg/types"
)

func open(t *testing.T, tr *memory.Transport, opts ...Option) *Conn {
	t.Helper()

	conn, err := Open(context.Background(), "postgres://memory/test", append([]Option{withTransportImpl(tr)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

func query(t *testing.T, conn *Conn, q string, args ...any) *Result {
	t.Helper()

	res, err := conn.Query(context.Background(), q, args...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	return res
}

func firstRow(t *testing.T, res *Result) *Row {
	t.Helper()

	row, err := res.Iterator().Next()
	require.NoError(t, err)
	return row
}

func TestQuery_Booleans(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT true, false", memory.Rows(memory.Col("bool", 16), memory.Col("bool", 16)).Row("t", "f").Build())
	conn := open(t, tr)

	row := firstRow(t, query(t, conn, "SELECT true, false"))

	b, err := row.GetBool(0)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, *b)

	b, err = row.GetBool(1)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.False(t, *b)

	_, err = row.GetInt32(0)
	require.ErrorIs(t, err, ErrColumnWrongType)
}

func TestQuery_Integer(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 123::integer", memory.Rows(memory.Col("int4", 23)).Row("123").Build())
	conn := open(t, tr)

	row := firstRow(t, query(t, conn, "SELECT 123::integer"))

	i, err := row.GetInt32(0)
	require.NoError(t, err)
	require.NotNil(t, i)
	assert.Equal(t, int32(123), *i)

	_, err = row.GetInt64(0)
	require.ErrorIs(t, err, ErrColumnWrongType)
	assert.True(t, IsTypeMismatch(err))
}

func TestQuery_NullStillTypeChecked(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT null::text", memory.Rows(memory.Col("text", 25)).Row(nil).Build())
	conn := open(t, tr)

	row := firstRow(t, query(t, conn, "SELECT null::text"))

	s, err := row.GetText(0)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = row.GetInt32(0)
	require.ErrorIs(t, err, ErrColumnWrongType)
}

func TestQuery_NoRows(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1 WHERE 2 = 3", memory.Rows(memory.Col("?column?", 23)).Build())
	conn := open(t, tr)

	res := query(t, conn, "SELECT 1 WHERE 2 = 3")

	it := res.Iterator()
	assert.False(t, it.HasNext())
	_, err := it.Next()
	require.ErrorIs(t, err, ErrIteratorExhausted)

	assert.Equal(t, 0, res.RowCount())
	assert.Equal(t, 1, res.ColumnCount())
	_, ok := res.RowsAffected()
	assert.False(t, ok)
}

func TestQuery_RowsAffected(t *testing.T) {
	const insert = "INSERT INTO t(name) VALUES($1),($2)"

	tr := memory.New()
	tr.Respond(insert, memory.Command(2))
	conn := open(t, tr)

	res := query(t, conn, insert, "a", "b")

	n, ok := res.RowsAffected()
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 0, res.ColumnCount())

	require.Len(t, tr.Prepares(), 1)
	assert.Equal(t, []registry.Tag{25, 25}, tr.Prepares()[0].Tags)
}

func TestQuery_OutOfOrderPlaceholders(t *testing.T) {
	const q = "SELECT $2::int, $1::varchar"

	tr := memory.New()
	tr.Handle(q, func(values [][]byte) (*transport.Table, error) {
		return memory.Rows(memory.Col("int4", 23), memory.Col("varchar", 1043)).
			Row(values[1], values[0]).
			Build(), nil
	})
	conn := open(t, tr)

	row := firstRow(t, query(t, conn, q, "abc", int32(123)))

	i, err := row.GetInt32(0)
	require.NoError(t, err)
	assert.Equal(t, int32(123), *i)

	s, err := row.GetText(1)
	require.NoError(t, err)
	assert.Equal(t, "abc", *s)

	assert.Equal(t, []registry.Tag{25, 23}, tr.Prepares()[0].Tags)
}

func TestQuery_ReusesPreparedStatement(t *testing.T) {
	const q = "SELECT $1::int"

	tr := memory.New()
	tr.Handle(q, memory.Echo(memory.Col("int4", 23)))
	conn := open(t, tr)

	for _, want := range []int32{123, 456} {
		row := firstRow(t, query(t, conn, q, want))
		got, err := row.GetInt32(0)
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	}

	require.Len(t, tr.Prepares(), 1)
	execs := tr.Executions()
	require.Len(t, execs, 2)
	assert.Equal(t, "0", execs[0].ID)
	assert.Equal(t, "0", execs[1].ID)

	stats := conn.Stats()
	assert.Equal(t, 1, stats.Prepared)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.Queries)
}

func TestQuery_SequentialStatementIDs(t *testing.T) {
	tr := memory.New()
	for _, q := range []string{"SELECT 1", "SELECT 2"} {
		tr.Respond(q, memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	}
	conn := open(t, tr)

	query(t, conn, "SELECT 1")
	query(t, conn, "SELECT 2")
	query(t, conn, "SELECT 1")

	prepares := tr.Prepares()
	require.Len(t, prepares, 2)
	assert.Equal(t, "0", prepares[0].ID)
	assert.Equal(t, "1", prepares[1].ID)
}

func TestQuery_UnsupportedParameterFailsBeforeIO(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT $1", memory.Rows(memory.Col("text", 25)).Row("x").Build())
	conn := open(t, tr)
	tr.Conns()[0].Break()

	for _, arg := range []any{nil, uint8(1), []byte("x"), struct{}{}} {
		_, err := conn.Query(context.Background(), "SELECT $1", arg)
		require.ErrorIs(t, err, ErrUnsupportedParameterType)
	}

	assert.Empty(t, tr.Prepares())
	assert.Empty(t, tr.Executions())
	assert.Zero(t, tr.Resets())
}

func TestQuery_TypedNull(t *testing.T) {
	const q = "SELECT $1::bigint"

	tr := memory.New()
	tr.Handle(q, memory.Echo(memory.Col("int8", 20)))
	conn := open(t, tr)

	row := firstRow(t, query(t, conn, q, types.Null(types.Int64)))

	v, err := row.GetInt64(0)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, []registry.Tag{20}, tr.Prepares()[0].Tags)
	assert.Nil(t, tr.Executions()[0].Values[0])
}

func TestQuery_FailedPrepareIsRetried(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	tr.FailPrepare("SELECT 1", errors.New(`syntax error at or near "SELECT"`))
	conn := open(t, tr)

	_, err := conn.Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrExecution)
	assert.True(t, IsExecutionError(err))

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "prepare", qe.Operation)
	assert.Equal(t, "SELECT 1", qe.Query)

	tr.FailPrepare("SELECT 1", nil)
	query(t, conn, "SELECT 1")

	prepares := tr.Prepares()
	require.Len(t, prepares, 2)
	assert.Equal(t, "0", prepares[1].ID)
	assert.Equal(t, int64(1), conn.Stats().FailedPrepares)
}

func TestQuery_ExecuteFailure(t *testing.T) {
	cause := errors.New(`relation "t" does not exist`)
	tr := memory.New()
	tr.Fail("SELECT * FROM t", cause)
	conn := open(t, tr)

	_, err := conn.Query(context.Background(), "SELECT * FROM t")
	require.ErrorIs(t, err, ErrExecution)
	require.ErrorIs(t, err, cause)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "execute", qe.Operation)
	assert.Equal(t, "0", qe.StatementID)
}

func TestQuery_ResetsUnhealthyConnection(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	conn := open(t, tr)

	query(t, conn, "SELECT 1")
	tr.Conns()[0].Break()

	row := firstRow(t, query(t, conn, "SELECT 1"))
	v, err := row.GetInt32(0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), *v)

	assert.Equal(t, 1, tr.Resets())
	assert.Equal(t, 1, conn.Stats().Resets)

	// The new session has no statements, so the query is prepared again.
	require.Len(t, tr.Prepares(), 2)
	assert.Equal(t, "0", tr.Prepares()[1].ID)
}

func TestQuery_ResetFailure(t *testing.T) {
	boom := errors.New("connection refused")
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	conn := open(t, tr)

	tr.Conns()[0].Break()
	tr.FailReset(boom, false)

	_, err := conn.Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, boom)
	assert.True(t, IsConnectionError(err))
	assert.Empty(t, tr.Prepares())
}

func TestQuery_StillUnhealthyAfterReset(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	conn := open(t, tr)

	tr.Conns()[0].Break()
	tr.FailReset(nil, false)

	_, err := conn.Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 1, tr.Resets())
	assert.Empty(t, tr.Executions())
}

func TestOpen_ConnectFailure(t *testing.T) {
	boom := errors.New("no route to host")
	tr := memory.New()
	tr.FailConnect(boom)

	_, err := Open(context.Background(), "postgres://memory", withTransportImpl(tr))
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, boom)
}

func TestOpen_UnknownTransport(t *testing.T) {
	_, err := Open(context.Background(), "postgres://memory", WithTransport("carrier-pigeon"))
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	conn := open(t, tr)

	res := query(t, conn, "SELECT 1")

	require.NoError(t, conn.Close(context.Background()))
	require.NoError(t, conn.Close(context.Background()))
	assert.True(t, tr.Conns()[0].Closed())

	_, err := conn.Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, ErrConnClosed)

	// Results outlive their connection.
	v, err := firstRow(t, res).GetInt32(0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), *v)
}

func TestQueryFunc_ClosesResult(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	conn := open(t, tr)

	var kept *Row
	err := conn.QueryFunc(context.Background(), "SELECT 1", func(res *Result) error {
		kept = firstRow(t, res)
		return nil
	})
	require.NoError(t, err)

	_, err = kept.GetInt32(0)
	require.ErrorIs(t, err, ErrResultClosed)
	assert.True(t, tr.Results()[0].Closed())
}

func TestQueryFunc_ReturnsCallbackError(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	conn := open(t, tr)

	stop := errors.New("stop")
	err := conn.QueryFunc(context.Background(), "SELECT 1", func(*Result) error { return stop })
	require.ErrorIs(t, err, stop)
	assert.True(t, tr.Results()[0].Closed())
}

func TestMiddleware(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	tr.Fail("SELECT 2", errors.New("boom"))

	var order []string
	var events []QueryEvent
	var failed []string

	conn := open(t, tr, WithMiddleware(func(ctx context.Context, event *QueryEvent, next func() error) error {
		order = append(order, "outer")
		err := next()
		events = append(events, *event)
		return err
	}))
	conn.Use(func(ctx context.Context, event *QueryEvent, next func() error) error {
		order = append(order, "inner")
		return next()
	})
	conn.Use(ErrorMiddleware(func(query string, err error) { failed = append(failed, query) }))

	query(t, conn, "SELECT 1", 7)
	query(t, conn, "SELECT 1", 8)
	_, err := conn.Query(context.Background(), "SELECT 2")
	require.Error(t, err)

	assert.Equal(t, []string{"outer", "inner", "outer", "inner", "outer", "inner"}, order)
	require.Len(t, events, 3)

	assert.Equal(t, "SELECT 1", events[0].Query)
	assert.Equal(t, []any{7}, events[0].Args)
	assert.Equal(t, "0", events[0].StatementID)
	assert.False(t, events[0].CacheHit)
	assert.True(t, events[1].CacheHit)
	assert.False(t, events[0].End.Before(events[0].Start))

	assert.Equal(t, "1", events[2].StatementID)
	assert.Error(t, events[2].Error)
	assert.Equal(t, []string{"SELECT 2"}, failed)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())
	tr.Fail("SELECT 2", errors.New("boom"))
	conn := open(t, tr, WithLogger(logger), WithMiddleware(LoggingMiddleware(logger)))

	query(t, conn, "SELECT 1")
	_, err := conn.Query(context.Background(), "SELECT 2")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "query completed")
	assert.Contains(t, out, "prepared statement")
	assert.Contains(t, out, "query failed")
	assert.Contains(t, out, "transport=memory")
}

func TestTimingMiddleware(t *testing.T) {
	tr := memory.New()
	tr.Respond("SELECT 1", memory.Rows(memory.Col("?column?", 23)).Row("1").Build())

	var timed []string
	conn := open(t, tr, WithMiddleware(TimingMiddleware(func(query string, d time.Duration) {
		timed = append(timed, query)
		assert.GreaterOrEqual(t, d, time.Duration(0))
	})))

	query(t, conn, "SELECT 1")
	assert.Equal(t, []string{"SELECT 1"}, timed)
}

func TestServerVersion(t *testing.T) {
	tr := memory.New()
	tr.Respond(serverVersionQuery, memory.Rows(memory.Col("current_setting", 25)).Row("16.2 (Debian 16.2-1.pgdg120+2)").Build())
	conn := open(t, tr)

	v, err := conn.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{16, 2, 0}, v.Segments())

	_, err = conn.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Len(t, tr.Executions(), 1)
}

func TestOpen_MinServerVersion(t *testing.T) {
	tr := memory.New()
	tr.Respond(serverVersionQuery, memory.Rows(memory.Col("current_setting", 25)).Row("12.17").Build())

	_, err := Open(context.Background(), "postgres://memory", withTransportImpl(tr), WithMinServerVersion("13"))
	require.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "older than")
	assert.True(t, tr.Conns()[0].Closed())

	conn := open(t, tr, WithMinServerVersion("12.1"))
	assert.NotNil(t, conn)
}

func TestParseServerVersion(t *testing.T) {
	tests := map[string][]int{
		"16.2":                           {16, 2, 0},
		"9.6.24":                         {9, 6, 24},
		"15.4 (Ubuntu 15.4-1.pgdg22.04)": {15, 4, 0},
	}

	for raw, want := range tests {
		v, err := ParseServerVersion(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, v.Segments(), raw)
	}

	v, err := ParseServerVersion("17beta1")
	require.NoError(t, err)
	assert.Equal(t, "beta1", v.Prerelease())

	_, err = ParseServerVersion("")
	require.Error(t, err)

	_, err = ParseServerVersion("devel")
	require.Error(t, err)
}

func TestExec_BypassesStatementCache(t *testing.T) {
	tr := memory.New()
	tr.Respond("CREATE TABLE t (id int)", memory.Command(0))
	tr.Handle("SELECT $1::int4", memory.Echo(memory.Col("int4", 23)))
	conn := open(t, tr)
	ctx := context.Background()

	res, err := conn.Exec(ctx, "CREATE TABLE t (id int)")
	require.NoError(t, err)
	n, ok := res.RowsAffected()
	assert.True(t, ok)
	assert.Equal(t, int64(0), n)
	require.NoError(t, res.Close())

	res, err = conn.Exec(ctx, "SELECT $1::int4", int32(9))
	require.NoError(t, err)
	v, err := firstRow(t, res).GetInt32(0)
	require.NoError(t, err)
	assert.Equal(t, int32(9), *v)

	assert.Empty(t, tr.Prepares())
	execs := tr.Executions()
	require.Len(t, execs, 2)
	assert.Empty(t, execs[1].ID)
	assert.Equal(t, [][]byte{[]byte("9")}, execs[1].Values)
	assert.Equal(t, 0, conn.Stats().Prepared)
	assert.Equal(t, int64(2), conn.Stats().Queries)

	_, err = conn.Exec(ctx, "SELECT $1", uint8(1))
	require.ErrorIs(t, err, ErrUnsupportedParameterType)

	tr.Fail("DROP TABLE nope", errors.New(`table "nope" does not exist`))
	_, err = conn.Exec(ctx, "DROP TABLE nope")
	require.ErrorIs(t, err, ErrExecution)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "execute", qe.Operation)
	assert.Empty(t, qe.StatementID)
}
