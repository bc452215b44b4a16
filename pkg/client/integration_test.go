//go:build integration

package client

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/satishbabariya/pgtyped/pkg/types"
)

// IntegrationSuite runs the client against a live server.
type IntegrationSuite struct {
	suite.Suite
	transport string
	url       string
	conn      *Conn
	ctx       context.Context
	cancel    context.CancelFunc
}

// TestIntegration runs the suite once per transport. It needs PGTYPED_TEST_URL.
func TestIntegration(t *testing.T) {
	url := os.Getenv("PGTYPED_TEST_URL")
	if url == "" {
		t.Skip("PGTYPED_TEST_URL not provided")
	}

	for _, name := range []string{"pgwire", "libpq"} {
		t.Run(name, func(t *testing.T) {
			suite.Run(t, &IntegrationSuite{transport: name, url: url})
		})
	}
}

// SetupTest opens a fresh connection for each test
func (s *IntegrationSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 30*time.Second)

	conn, err := Open(s.ctx, s.url, WithTransport(s.transport), WithConnectTimeout(10*time.Second))
	require.NoError(s.T(), err)
	s.conn = conn
}

// TearDownTest closes the connection
func (s *IntegrationSuite) TearDownTest() {
	if s.conn != nil {
		s.NoError(s.conn.Close(s.ctx))
	}
	s.cancel()
}

func (s *IntegrationSuite) first(query string, args ...any) *Row {
	res, err := s.conn.Query(s.ctx, query, args...)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = res.Close() })

	row, err := res.Iterator().Next()
	s.Require().NoError(err)
	return row
}

func (s *IntegrationSuite) TestBooleans() {
	row := s.first("SELECT true, false")

	b, err := row.GetBool(0)
	s.Require().NoError(err)
	s.True(*b)

	b, err = row.GetBool(1)
	s.Require().NoError(err)
	s.False(*b)

	_, err = row.GetInt32(0)
	s.ErrorIs(err, ErrColumnWrongType)
}

func (s *IntegrationSuite) TestInteger() {
	row := s.first("SELECT 123::integer")

	i, err := row.GetInt32(0)
	s.Require().NoError(err)
	s.Equal(int32(123), *i)

	_, err = row.GetInt64(0)
	s.ErrorIs(err, ErrColumnWrongType)
}

func (s *IntegrationSuite) TestNullText() {
	row := s.first("SELECT null::text")

	v, err := row.GetText(0)
	s.Require().NoError(err)
	s.Nil(v)

	_, err = row.GetInt32(0)
	s.ErrorIs(err, ErrColumnWrongType)
}

func (s *IntegrationSuite) TestNoRows() {
	res, err := s.conn.Query(s.ctx, "SELECT 1 WHERE 2 = 3")
	s.Require().NoError(err)
	defer res.Close()

	s.False(res.Iterator().HasNext())
	_, ok := res.RowsAffected()
	s.False(ok)
}

func (s *IntegrationSuite) TestRowsAffected() {
	table := fmt.Sprintf("pgtyped_%s_%d", s.transport, time.Now().UnixNano())

	s.Require().NoError(s.conn.QueryFunc(s.ctx, "CREATE TEMP TABLE "+table+"(name text)", func(*Result) error { return nil }))

	res, err := s.conn.Query(s.ctx, "INSERT INTO "+table+"(name) VALUES($1),($2)", "a", "b")
	s.Require().NoError(err)
	defer res.Close()

	n, ok := res.RowsAffected()
	s.True(ok)
	s.Equal(int64(2), n)
}

func (s *IntegrationSuite) TestOutOfOrderPlaceholders() {
	row := s.first("SELECT $2::int, $1::varchar", "abc", int32(123))

	i, err := row.GetInt32(0)
	s.Require().NoError(err)
	s.Equal(int32(123), *i)

	v, err := row.GetText(1)
	s.Require().NoError(err)
	s.Equal("abc", *v)
}

func (s *IntegrationSuite) TestPreparedStatementReuse() {
	for _, want := range []int32{123, 456} {
		i, err := s.first("SELECT $1::int", want).GetInt32(0)
		s.Require().NoError(err)
		s.Equal(want, *i)
	}

	stats := s.conn.Stats()
	s.Equal(1, stats.Prepared)
	s.Equal(int64(1), stats.Hits)
}

func (s *IntegrationSuite) TestAllTypes() {
	row := s.first("SELECT $1::bool AS b, $2::int4 AS i4, $3::int8 AS i8, $4::float4 AS f4, $5::float8 AS f8, $6::text AS t",
		true, int32(-7), int64(5678901234), float32(12.34), 56.78, "héllo")

	b, err := row.GetBoolByName("b")
	s.Require().NoError(err)
	s.True(*b)

	i8, err := row.GetInt64ByName("i8")
	s.Require().NoError(err)
	s.Equal(int64(5678901234), *i8)

	f4, err := row.GetFloat32ByName("f4")
	s.Require().NoError(err)
	s.Equal(float32(12.34), *f4)

	f8, err := row.GetFloat64ByName("f8")
	s.Require().NoError(err)
	s.Equal(56.78, *f8)

	t, err := row.GetTextByName("t")
	s.Require().NoError(err)
	s.Equal("héllo", *t)
}

func (s *IntegrationSuite) TestTypedNullParameter() {
	v, err := s.first("SELECT $1::int8", types.Null(types.Int64)).GetInt64(0)
	s.Require().NoError(err)
	s.Nil(v)
}

func (s *IntegrationSuite) TestServerError() {
	_, err := s.conn.Query(s.ctx, "SELECT * FROM pgtyped_missing_table")
	s.ErrorIs(err, ErrExecution)
}

func (s *IntegrationSuite) TestServerVersion() {
	v, err := s.conn.ServerVersion(s.ctx)
	s.Require().NoError(err)
	s.GreaterOrEqual(v.Segments()[0], 9)
}

func (s *IntegrationSuite) TestResetAfterTermination() {
	if s.transport != "pgwire" {
		s.T().Skip("termination detection is only reliable on pgwire")
	}

	_, err := s.conn.Query(s.ctx, "SELECT pg_terminate_backend(pg_backend_pid())")
	s.Require().Error(err)

	i, err := s.first("SELECT 1::int4").GetInt32(0)
	s.Require().NoError(err)
	s.Equal(int32(1), *i)
	s.Equal(1, s.conn.Stats().Resets)
}
