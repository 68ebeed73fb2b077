package persistence

import (
	"fmt"

	"github.com/kilianp07/datagrid/core/factory"
)

// FieldsOf returns the column values of e for the mapped columns of meta.
// Columns the entity does not carry are stored as NULL.
func FieldsOf(meta *ClassMetadata, e Entity) (map[string]any, error) {
	var src map[string]any
	if r, ok := e.(*Record); ok {
		src = r.Fields
	} else {
		f, err := factory.Fields(e)
		if err != nil {
			return nil, fmt.Errorf("map %s fields: %w", meta.Name, err)
		}
		src = f
	}
	out := make(map[string]any, len(meta.Columns))
	for _, c := range meta.Columns {
		out[c.Name] = src[c.Name]
	}
	return out, nil
}

// Hydrate builds an entity of meta's class from stored column values.
func Hydrate(meta *ClassMetadata, id int64, values map[string]any) (Entity, error) {
	e := meta.NewEntity()
	if r, ok := e.(*Record); ok {
		for k, v := range values {
			r.Set(k, v)
		}
	} else if err := factory.DecodeWeak(values, e); err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", meta.Name, err)
	}
	e.SetEntityID(id)
	return e, nil
}
