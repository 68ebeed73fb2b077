package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/datagrid/core/service"
)

// DefaultPrefix is the configuration key and service-name prefix handled by
// default.
const DefaultPrefix = "jqgrid"

// separators are trimmed from both ends of a grid type.
const separators = `\/`

var (
	// ErrConfigurationMissing is returned when the configuration has no
	// mapping under the prefix key.
	ErrConfigurationMissing = errors.New("grid configuration missing")
	// ErrInvalidOverride is returned when an override service supplies
	// something other than a mapping.
	ErrInvalidOverride = errors.New("override configuration is not a mapping")
)

// Resolution is the outcome of resolving a requested grid name.
type Resolution struct {
	GridType string
	Config   map[string]any
	// Applied lists the override services merged, in order.
	Applied []string
	// Skipped lists the override services the lookup could not supply.
	Skipped []string
}

// Resolver decides which service names it handles and builds their merged
// configuration. It keeps no state between calls.
type Resolver struct {
	prefix string
}

// NewResolver returns a resolver for prefix, or DefaultPrefix when empty.
func NewResolver(prefix string) *Resolver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Resolver{prefix: prefix}
}

// Prefix returns the handled prefix.
func (r *Resolver) Prefix() string { return r.prefix }

// CanHandle reports whether name starts with the prefix. The comparison is
// exact: no case folding, no trimming.
func (r *Resolver) CanHandle(name string) bool {
	return strings.HasPrefix(name, r.prefix)
}

// GridType strips the prefix and surrounding namespace separators from name:
// `jqgrid\odm` gives "odm" and "jqgridsomething" gives "something".
func (r *Resolver) GridType(name string) string {
	return strings.Trim(strings.TrimPrefix(name, r.prefix), separators)
}

// Resolve derives the grid type of name and merges the prefix sub-tree of
// base with every override named in its "factories" entry that lookup can
// supply, in listed order. base is not modified.
func (r *Resolver) Resolve(name string, base map[string]any, lookup service.Locator) (Resolution, error) {
	res := Resolution{GridType: r.GridType(name)}

	sub, ok := asMap(base[r.prefix])
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrConfigurationMissing, r.prefix)
	}
	cfg := Merge(sub, nil)

	names, err := overrideNames(cfg["factories"])
	if err != nil {
		return res, err
	}
	for _, alias := range names {
		if lookup == nil || !lookup.Has(alias) {
			res.Skipped = append(res.Skipped, alias)
			continue
		}
		v, err := lookup.Get(alias)
		if err != nil {
			return res, fmt.Errorf("load override %s: %w", alias, err)
		}
		add, ok := asMap(v)
		if !ok {
			return res, fmt.Errorf("%w: %s is %T", ErrInvalidOverride, alias, v)
		}
		cfg = Merge(cfg, add)
		res.Applied = append(res.Applied, alias)
	}
	res.Config = cfg
	return res, nil
}

// overrideNames reads the "factories" entry, a single name or a list of
// names. A missing entry means no overrides.
func overrideNames(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	items, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("factories entry has type %T, want a list of names", v)
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("factories entry %d has type %T, want a name", i, it)
		}
		out = append(out, s)
	}
	return out, nil
}
