package client

import (
	"context"
	"log/slog"
	"time"
)

// QueryEvent describes one query as it passes through the middleware chain.
// StatementID and CacheHit are filled in once the statement is resolved;
// End, Duration and Error once it has run.
type QueryEvent struct {
	Query       string
	Args        []any
	StatementID string
	CacheHit    bool
	Duration    time.Duration
	Error       error
	Start       time.Time
	End         time.Time
}

// Middleware is a function that intercepts queries
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// Use adds a middleware to the chain
func (c *Conn) Use(middleware Middleware) {
	c.middlewares = append(c.middlewares, middleware)
}

// executeWithMiddleware runs exec through the middleware chain
func (c *Conn) executeWithMiddleware(ctx context.Context, event *QueryEvent, exec func() error) error {
	event.Start = time.Now()

	var next func() error
	index := 0

	next = func() error {
		if index >= len(c.middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}

		middleware := c.middlewares[index]
		index++
		return middleware(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs every query at debug level and failures at error.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil {
			logger.ErrorContext(ctx, "query failed",
				"query", event.Query,
				"statement", event.StatementID,
				"duration", event.Duration,
				"error", err,
			)
			return err
		}

		logger.DebugContext(ctx, "query completed",
			"query", event.Query,
			"statement", event.StatementID,
			"cache_hit", event.CacheHit,
			"duration", event.Duration,
		)
		return nil
	}
}

// TimingMiddleware creates a middleware that measures query execution time
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware creates a middleware that handles errors
func ErrorMiddleware(onError func(query string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.Query, err)
		}
		return err
	}
}
