package config

import (
	"fmt"

	"github.com/kilianp07/datagrid/core/grid"
)

// GridConfig names the configuration key grids are read from and the store
// whose entity managers back them.
type GridConfig struct {
	Prefix string `json:"prefix"`
	Store  string `json:"store"`
}

func (c *GridConfig) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = grid.DefaultPrefix
	}
	if c.Store == "" {
		c.Store = grid.DefaultStore
	}
}

func (c GridConfig) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("grid.prefix is required")
	}
	if c.Store == "" {
		return fmt.Errorf("grid.store is required")
	}
	return nil
}
