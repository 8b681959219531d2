package backend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedDriver is returned when a backend token is not recognized.
	ErrUnsupportedDriver = errors.New("unsupported driver")

	// ErrDriverUnavailable is returned when the token is recognized but no
	// matching adapter is registered.
	ErrDriverUnavailable = errors.New("driver is not available")
)

// Registry holds the adapters available to the process.
type Registry struct {
	mu      sync.RWMutex
	drivers map[Kind]Driver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[Kind]Driver)}
}

var defaultRegistry = NewRegistry()

// Default returns the registry adapter packages register themselves on.
func Default() *Registry {
	return defaultRegistry
}

// Register makes d available on the default registry. It panics if d is nil
// or its kind is already registered.
func Register(d Driver) {
	defaultRegistry.Register(d)
}

// Register makes d available. It panics if d is nil or its kind is already
// registered.
func (r *Registry) Register(d Driver) {
	if d == nil {
		panic("backend: Register driver is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.drivers[d.Kind()]; dup {
		panic("backend: Register called twice for " + d.Kind().String())
	}
	r.drivers[d.Kind()] = d
}

// Lookup returns the driver registered for k.
func (r *Registry) Lookup(k Kind) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[k]
	return d, ok
}

// Resolve maps a connection-string backend token to a registered kind.
// The generic "mysql" token prefers the enhanced adapter over the legacy one.
func (r *Registry) Resolve(token string) (Kind, error) {
	token = strings.ToLower(token)

	var candidates []Kind
	switch token {
	case "mysql":
		candidates = []Kind{KindMySQLEnhanced, KindMySQLLegacy}
	case "mysqli":
		candidates = []Kind{KindMySQLEnhanced}
	case "postgresql":
		candidates = []Kind{KindPostgreSQL}
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDriver, token)
	}

	for _, k := range candidates {
		if _, ok := r.Lookup(k); ok {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrDriverUnavailable, token)
}

// Available lists the backend tokens that currently resolve.
func (r *Registry) Available() []string {
	var out []string
	for _, token := range []string{"mysql", "mysqli", "postgresql"} {
		if _, err := r.Resolve(token); err == nil {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out
}
