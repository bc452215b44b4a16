package client

import (
	"log/slog"
	"time"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
)

// Config contains all connection options.
type Config struct {
	// Transport names the wire transport: "pgwire" or "libpq".
	// Default: "pgwire"
	Transport string

	// ConnectTimeout bounds connecting and resetting. Zero means no limit
	// beyond the caller's context.
	ConnectTimeout time.Duration

	// MinServerVersion rejects servers older than this version when set.
	MinServerVersion string

	// Logger receives connection and statement events.
	// Default: the process-wide debug logger
	Logger *slog.Logger

	// Middleware wraps every query.
	Middleware []Middleware

	transport transport.Transport
}

// Option is a function that configures a connection.
type Option func(*Config)

// WithTransport selects the wire transport by name.
func WithTransport(name string) Option {
	return func(c *Config) {
		c.Transport = name
	}
}

// WithConnectTimeout sets the connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

// WithMinServerVersion makes Open fail for servers older than v.
func WithMinServerVersion(v string) Option {
	return func(c *Config) {
		c.MinServerVersion = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMiddleware appends query middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(c *Config) {
		c.Middleware = append(c.Middleware, mw...)
	}
}

// withTransportImpl injects a transport directly.
func withTransportImpl(t transport.Transport) Option {
	return func(c *Config) {
		c.transport = t
	}
}
