// Package odm implements persistence.Provider as a document store: every
// entity is one CBOR document in the collection table of its class.
//
// Collection tables are named after the class table with a "_documents"
// suffix, so document and relational mappings can share a database.
package odm

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/datagrid/core/logger"
	"github.com/kilianp07/datagrid/core/persistence"
)

// CollectionSuffix is appended to class tables to name collections.
const CollectionSuffix = "_documents"

// Collection returns the collection table of meta.
func Collection(meta *persistence.ClassMetadata) string {
	return meta.Table + CollectionSuffix
}

// Option configures a DocumentManager.
type Option func(*DocumentManager)

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) Option {
	return func(m *DocumentManager) {
		if l != nil {
			m.log = l
		}
	}
}

type write struct {
	remove bool
	entity persistence.Entity
	meta   *persistence.ClassMetadata
}

// DocumentManager queues document writes and applies them on Flush. Like
// the relational manager it closes for good after a failed flush.
type DocumentManager struct {
	id    string
	conn  *persistence.Connection
	cfg   *persistence.Configuration
	codec *Codec
	log   logger.Logger

	mu      sync.Mutex
	pending []write
	closed  bool
}

// New opens a document session on conn.
func New(conn *persistence.Connection, cfg *persistence.Configuration, opts ...Option) (*DocumentManager, error) {
	if conn == nil {
		return nil, fmt.Errorf("odm: %w: nil connection", persistence.ErrProviderUnavailable)
	}
	if cfg == nil {
		return nil, fmt.Errorf("odm: nil mapping configuration")
	}
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	m := &DocumentManager{id: uuid.NewString(), conn: conn, cfg: cfg, codec: codec, log: logger.Nop{}}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Factory returns the persistence.ProviderFactory building document
// managers with opts.
func Factory(opts ...Option) persistence.ProviderFactory {
	return func(conn *persistence.Connection, cfg *persistence.Configuration) (persistence.Provider, error) {
		return New(conn, cfg, opts...)
	}
}

func (m *DocumentManager) ID() string                                { return m.id }
func (m *DocumentManager) Connection() *persistence.Connection       { return m.conn }
func (m *DocumentManager) Configuration() *persistence.Configuration { return m.cfg }

func (m *DocumentManager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *DocumentManager) ClassMetadata(class string) (*persistence.ClassMetadata, error) {
	return m.cfg.Metadata(class)
}

// Repository returns a reader over the collection of class.
func (m *DocumentManager) Repository(class string) (persistence.Repository, error) {
	meta, err := m.cfg.Metadata(class)
	if err != nil {
		return nil, err
	}
	return &Repository{conn: m.conn, meta: meta, codec: m.codec}, nil
}

func (m *DocumentManager) Persist(e persistence.Entity) error {
	return m.schedule(false, e)
}

func (m *DocumentManager) Remove(e persistence.Entity) error {
	if e != nil && e.EntityID() == 0 {
		return fmt.Errorf("remove: document %T has no identity", e)
	}
	return m.schedule(true, e)
}

func (m *DocumentManager) schedule(remove bool, e persistence.Entity) error {
	meta, err := m.cfg.MetadataFor(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return persistence.ErrProviderClosed
	}
	m.pending = append(m.pending, write{remove: remove, entity: e, meta: meta})
	return nil
}

// Flush writes queued documents in one transaction.
func (m *DocumentManager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return persistence.ErrProviderClosed
	}
	if len(m.pending) == 0 {
		return nil
	}
	ops := m.pending
	m.pending = nil
	if err := m.apply(ctx, ops); err != nil {
		m.closed = true
		m.log.Warnf("odm manager %s closed after failed flush: %v", m.id, err)
		return err
	}
	m.log.Debugf("odm manager %s flushed %d documents", m.id, len(ops))
	return nil
}

func (m *DocumentManager) apply(ctx context.Context, ops []write) error {
	tx, err := m.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	assigned := map[persistence.Entity]int64{}
	for _, op := range ops {
		id := op.entity.EntityID()
		if id == 0 {
			id = assigned[op.entity]
		}
		if op.remove {
			err = m.delete(ctx, tx, op.meta, id)
		} else {
			id, err = m.store(ctx, tx, op, id)
			if err == nil && op.entity.EntityID() == 0 {
				assigned[op.entity] = id
			}
		}
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for e, id := range assigned {
		e.SetEntityID(id)
	}
	return nil
}

func (m *DocumentManager) store(ctx context.Context, tx *sql.Tx, op write, id int64) (int64, error) {
	fields, err := persistence.FieldsOf(op.meta, op.entity)
	if err != nil {
		return 0, err
	}
	body, err := m.codec.Encode(fields)
	if err != nil {
		return 0, fmt.Errorf("encode %s document: %w", op.meta.Name, err)
	}
	d := m.conn.Dialect()
	table := d.Quote(Collection(op.meta))
	if id == 0 {
		q := fmt.Sprintf("INSERT INTO %s (body) VALUES (?) RETURNING id", table)
		err = tx.QueryRowContext(ctx, d.Rebind(q), body).Scan(&id)
		return id, err
	}
	q := fmt.Sprintf("UPDATE %s SET body = ? WHERE id = ?", table)
	res, err := tx.ExecContext(ctx, d.Rebind(q), body, id)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("update %s: no document with id %d", op.meta.Name, id)
	}
	return id, nil
}

func (m *DocumentManager) delete(ctx context.Context, tx *sql.Tx, meta *persistence.ClassMetadata, id int64) error {
	d := m.conn.Dialect()
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ?", d.Quote(Collection(meta)))
	_, err := tx.ExecContext(ctx, d.Rebind(q), id)
	return err
}
