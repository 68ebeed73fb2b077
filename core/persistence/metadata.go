package persistence

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"sync"
)

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	typePattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ (),]*$`)
)

// Column maps one entity field to a storage column. Type is the column
// declaration used by schema tools, for example "TEXT NOT NULL UNIQUE".
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ClassMetadata describes how one entity class is stored.
type ClassMetadata struct {
	Name       string
	Table      string
	Identifier string
	Columns    []Column
	// New builds an empty entity. When nil, entities are *Record values.
	New func() Entity
}

// ColumnNames lists the mapped columns without the identifier.
func (m *ClassMetadata) ColumnNames() []string {
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = c.Name
	}
	return out
}

// NewEntity returns an empty entity of this class.
func (m *ClassMetadata) NewEntity() Entity {
	if m.New == nil {
		return NewRecord(m.Name)
	}
	return m.New()
}

func (m *ClassMetadata) normalize() error {
	if m.Name == "" {
		return fmt.Errorf("class name is required")
	}
	if m.Table == "" {
		m.Table = m.Name
	}
	if m.Identifier == "" {
		m.Identifier = "id"
	}
	for _, id := range []string{m.Table, m.Identifier} {
		if !identPattern.MatchString(id) {
			return fmt.Errorf("class %s: invalid identifier %q", m.Name, id)
		}
	}
	seen := map[string]bool{m.Identifier: true}
	for i := range m.Columns {
		c := &m.Columns[i]
		if !identPattern.MatchString(c.Name) {
			return fmt.Errorf("class %s: invalid column %q", m.Name, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("class %s: duplicate column %q", m.Name, c.Name)
		}
		seen[c.Name] = true
		if c.Type == "" {
			c.Type = "TEXT"
		}
		if !typePattern.MatchString(c.Type) {
			return fmt.Errorf("class %s: invalid type %q for column %s", m.Name, c.Type, c.Name)
		}
	}
	return nil
}

// Configuration is the mapping registry shared by every provider built on a
// connection. It is filled at startup and read afterwards.
type Configuration struct {
	mu      sync.RWMutex
	classes map[string]*ClassMetadata
	types   map[reflect.Type]string
}

// NewConfiguration returns an empty mapping registry.
func NewConfiguration() *Configuration {
	return &Configuration{
		classes: map[string]*ClassMetadata{},
		types:   map[reflect.Type]string{},
	}
}

// Register validates and adds class metadata.
func (c *Configuration) Register(meta ClassMetadata) error {
	if err := meta.normalize(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.classes[meta.Name]; ok {
		return fmt.Errorf("class %s already registered", meta.Name)
	}
	m := meta
	c.classes[m.Name] = &m
	if m.New != nil {
		c.types[reflect.TypeOf(m.New())] = m.Name
	}
	return nil
}

// Metadata returns the metadata registered for class.
func (c *Configuration) Metadata(class string) (*ClassMetadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return m, nil
}

// MetadataFor resolves the metadata of an entity value, by class name for
// Classed entities and by Go type otherwise.
func (c *Configuration) MetadataFor(e Entity) (*ClassMetadata, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entity", ErrUnknownClass)
	}
	if ce, ok := e.(Classed); ok {
		return c.Metadata(ce.EntityClass())
	}
	c.mu.RLock()
	name, ok := c.types[reflect.TypeOf(e)]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownClass, e)
	}
	return c.Metadata(name)
}

// Classes lists registered class names in lexical order.
func (c *Configuration) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.classes))
	for n := range c.classes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
