// Package factory selects a transport by its configured name.
package factory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/satishbabariya/pgtyped/internal/adapters/transport"
	"github.com/satishbabariya/pgtyped/internal/adapters/transport/libpq"
	"github.com/satishbabariya/pgtyped/internal/adapters/transport/pgwire"
)

// Default is the transport used when none is configured.
const Default = pgwire.Name

// Constructor creates a transport.
type Constructor func() transport.Transport

var (
	mu           sync.RWMutex
	constructors = map[string]Constructor{
		pgwire.Name: func() transport.Transport { return pgwire.New() },
		libpq.Name:  func() transport.Transport { return libpq.New() },
	}
)

// Register makes a transport selectable by name, replacing any previous
// registration.
func Register(name string, fn Constructor) {
	mu.Lock()
	defer mu.Unlock()
	constructors[name] = fn
}

// Names lists the registered transports in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the transport registered under name. An empty name selects
// Default.
func New(name string) (transport.Transport, error) {
	if name == "" {
		name = Default
	}

	mu.RLock()
	fn, ok := constructors[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transport: %s", name)
	}
	return fn(), nil
}
