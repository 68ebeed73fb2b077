package orm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kilianp07/datagrid/core/persistence"
)

// Repository reads entities of one class.
type Repository struct {
	conn *persistence.Connection
	meta *persistence.ClassMetadata
}

func (r *Repository) selectClause() string {
	d := r.conn.Dialect()
	cols := []string{d.Quote(r.meta.Identifier)}
	for _, c := range r.meta.ColumnNames() {
		cols = append(cols, d.Quote(c))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), d.Quote(r.meta.Table))
}

// Find returns the entity stored under id.
func (r *Repository) Find(ctx context.Context, id int64) (persistence.Entity, bool, error) {
	d := r.conn.Dialect()
	q := r.selectClause() + " WHERE " + d.Quote(r.meta.Identifier) + " = ?"
	rows, err := r.conn.DB().QueryContext(ctx, d.Rebind(q), id)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, false, rows.Err()
	}
	e, err := r.scan(rows)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// FindAll returns up to limit entities ordered by identity; limit <= 0
// returns all of them.
func (r *Repository) FindAll(ctx context.Context, limit int) ([]persistence.Entity, error) {
	d := r.conn.Dialect()
	q := r.selectClause() + " ORDER BY " + d.Quote(r.meta.Identifier)
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.conn.DB().QueryContext(ctx, d.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []persistence.Entity
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) scan(rows *sql.Rows) (persistence.Entity, error) {
	cols := r.meta.ColumnNames()
	var id int64
	raw := make([]any, len(cols))
	dest := make([]any, 0, len(cols)+1)
	dest = append(dest, &id)
	for i := range raw {
		dest = append(dest, &raw[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	values := make(map[string]any, len(cols))
	for i, c := range cols {
		// Text columns may come back as bytes depending on the driver.
		if b, ok := raw[i].([]byte); ok && !isBinary(r.meta.Columns[i].Type) {
			values[c] = string(b)
			continue
		}
		values[c] = raw[i]
	}
	return persistence.Hydrate(r.meta, id, values)
}

func isBinary(colType string) bool {
	t := strings.ToUpper(colType)
	return strings.HasPrefix(t, "BLOB") || strings.HasPrefix(t, "BYTEA")
}
