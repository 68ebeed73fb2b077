package odm

import (
	"context"
	"fmt"

	"github.com/kilianp07/datagrid/core/persistence"
)

// Repository reads the documents of one class.
type Repository struct {
	conn  *persistence.Connection
	meta  *persistence.ClassMetadata
	codec *Codec
}

func (r *Repository) Find(ctx context.Context, id int64) (persistence.Entity, bool, error) {
	d := r.conn.Dialect()
	q := fmt.Sprintf("SELECT id, body FROM %s WHERE id = ?", d.Quote(Collection(r.meta)))
	rows, err := r.conn.DB().QueryContext(ctx, d.Rebind(q), id)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, false, rows.Err()
	}
	e, err := r.scan(rows.Scan)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (r *Repository) FindAll(ctx context.Context, limit int) ([]persistence.Entity, error) {
	d := r.conn.Dialect()
	q := fmt.Sprintf("SELECT id, body FROM %s ORDER BY id", d.Quote(Collection(r.meta)))
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
		e, err := r.scan(rows.Scan)
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

func (r *Repository) scan(scan func(dest ...any) error) (persistence.Entity, error) {
	var id int64
	var body []byte
	if err := scan(&id, &body); err != nil {
		return nil, err
	}
	doc, err := r.codec.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s document %d: %w", r.meta.Name, id, err)
	}
	return persistence.Hydrate(r.meta, id, doc)
}
