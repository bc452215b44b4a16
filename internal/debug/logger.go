// Package debug holds the process-wide log/slog logger used by pgtyped.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the log handler.
type Format string

const (
	// FormatText writes key=value lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// Options configures the logger.
type Options struct {
	// Level is one of debug, info, warn, error or off.
	Level string
	// Format is text or json.
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
}

// levelOff is above every level slog emits.
const levelOff = slog.LevelError + 4

var (
	// logger is the global logger instance
	logger *slog.Logger
	// level is the active minimum level
	level = new(slog.LevelVar)
	// mu protects logger
	mu sync.RWMutex
)

func init() {
	level.Set(levelOff)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Init replaces the global logger. Until it is called nothing is logged.
func Init(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch opts.Format {
	case "", FormatText:
		handler = slog.NewTextHandler(out, handlerOpts)
	case FormatJSON:
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		return fmt.Errorf("unknown log format: %s", opts.Format)
	}

	mu.Lock()
	defer mu.Unlock()

	level.Set(lvl)
	logger = slog.New(handler)
	return nil
}

// ParseLevel converts a level name to a slog level. An empty name or "off"
// disables logging.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "off", "none":
		return levelOff, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", name)
	}
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	return level.Level() <= slog.LevelDebug
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
