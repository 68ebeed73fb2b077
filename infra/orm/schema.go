package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilianp07/datagrid/core/persistence"
)

// SchemaTool creates and drops the tables of mapped classes.
type SchemaTool struct {
	conn *persistence.Connection
	cfg  *persistence.Configuration
}

// NewSchemaTool returns a schema tool for every class in cfg.
func NewSchemaTool(conn *persistence.Connection, cfg *persistence.Configuration) *SchemaTool {
	return &SchemaTool{conn: conn, cfg: cfg}
}

// CreateStatement returns the table declaration of meta for dialect d.
func CreateStatement(d persistence.Dialect, meta *persistence.ClassMetadata) string {
	defs := []string{d.Quote(meta.Identifier) + " " + d.IdentityColumn()}
	for _, c := range meta.Columns {
		defs = append(defs, d.Quote(c.Name)+" "+c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.Quote(meta.Table), strings.Join(defs, ", "))
}

// Create creates missing tables.
func (s *SchemaTool) Create(ctx context.Context) error {
	for _, class := range s.cfg.Classes() {
		meta, err := s.cfg.Metadata(class)
		if err != nil {
			return err
		}
		if _, err := s.conn.DB().ExecContext(ctx, CreateStatement(s.conn.Dialect(), meta)); err != nil {
			return fmt.Errorf("create table for %s: %w", class, err)
		}
	}
	return nil
}

// Drop removes the tables of every class.
func (s *SchemaTool) Drop(ctx context.Context) error {
	d := s.conn.Dialect()
	for _, class := range s.cfg.Classes() {
		meta, err := s.cfg.Metadata(class)
		if err != nil {
			return err
		}
		if _, err := s.conn.DB().ExecContext(ctx, "DROP TABLE IF EXISTS "+d.Quote(meta.Table)); err != nil {
			return fmt.Errorf("drop table for %s: %w", class, err)
		}
	}
	return nil
}
