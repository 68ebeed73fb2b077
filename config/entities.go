package config

import "github.com/kilianp07/datagrid/core/persistence"

// EntityConfig maps one entity class to its storage.
type EntityConfig struct {
	Table      string               `json:"table"`
	Identifier string               `json:"identifier"`
	Columns    []persistence.Column `json:"columns"`
}

// SetDefaults names the table after the class.
func (e *EntityConfig) SetDefaults(class string) {
	if e.Table == "" {
		e.Table = class
	}
}

// Mapping builds the mapping registry of every configured class. Entities of
// these classes are persistence.Record values.
func (c Config) Mapping() (*persistence.Configuration, error) {
	m := persistence.NewConfiguration()
	for class, e := range c.Entities {
		if err := m.Register(persistence.ClassMetadata{
			Name:       class,
			Table:      e.Table,
			Identifier: e.Identifier,
			Columns:    append([]persistence.Column(nil), e.Columns...),
		}); err != nil {
			return nil, err
		}
	}
	return m, nil
}
