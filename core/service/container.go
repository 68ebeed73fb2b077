// Package service provides the lookup facility grids and models are wired
// through: a Locator answering Has/Get by name, and a Container holding shared
// instances and lazily invoked factories.
package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrServiceNotFound is returned by Get for names nothing is registered under.
var ErrServiceNotFound = errors.New("service not found")

// Locator looks services up by name.
type Locator interface {
	Has(name string) bool
	Get(name string) (any, error)
}

// Factory builds a service on first use. It receives the locator so it can
// pull its own dependencies.
type Factory func(Locator) (any, error)

// Container is the default Locator. Factories run at most once; their result
// is shared by later Get calls. A failed factory is retried on the next Get.
type Container struct {
	mu        sync.Mutex
	instances map[string]any
	factories map[string]Factory
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{
		instances: map[string]any{},
		factories: map[string]Factory{},
	}
}

// Set stores a ready instance under name, replacing any previous one.
func (c *Container) Set(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[name] = v
}

// Register adds a factory for name.
func (c *Container) Register(name string, f Factory) error {
	if f == nil {
		return fmt.Errorf("factory nil for %s", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[name]; ok {
		return fmt.Errorf("service %s already registered", name)
	}
	if _, ok := c.instances[name]; ok {
		return fmt.Errorf("service %s already registered", name)
	}
	c.factories[name] = f
	return nil
}

// Has reports whether name can be supplied.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.instances[name]; ok {
		return true
	}
	_, ok := c.factories[name]
	return ok
}

// Get returns the service registered under name.
func (c *Container) Get(name string) (any, error) {
	c.mu.Lock()
	if v, ok := c.instances[name]; ok {
		c.mu.Unlock()
		return v, nil
	}
	f, ok := c.factories[name]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	// The factory runs unlocked so it can Get its own dependencies.
	v, err := f(c)
	if err != nil {
		return nil, fmt.Errorf("create service %s: %w", name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[name]; ok {
		return existing, nil
	}
	c.instances[name] = v
	return v, nil
}

// Names lists every registered name in lexical order.
func (c *Container) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := map[string]bool{}
	for n := range c.instances {
		seen[n] = true
	}
	for n := range c.factories {
		seen[n] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup fetches name from l and asserts its type.
func Lookup[T any](l Locator, name string) (T, error) {
	var zero T
	v, err := l.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("service %s has type %T, want %T", name, v, zero)
	}
	return t, nil
}
