// Package orm implements persistence.Provider over SQL tables, one table per
// mapped class with an auto-assigned integer identity.
package orm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/datagrid/core/logger"
	"github.com/kilianp07/datagrid/core/persistence"
)

type opKind int

const (
	opPersist opKind = iota
	opRemove
)

type pendingOp struct {
	kind   opKind
	entity persistence.Entity
	meta   *persistence.ClassMetadata
}

// Option configures an EntityManager.
type Option func(*EntityManager)

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) Option {
	return func(m *EntityManager) {
		if l != nil {
			m.log = l
		}
	}
}

// EntityManager is a unit-of-work session. Persist and Remove queue work;
// Flush applies it in a single transaction. A failed flush closes the
// manager for good.
type EntityManager struct {
	id   string
	conn *persistence.Connection
	cfg  *persistence.Configuration
	log  logger.Logger

	mu      sync.Mutex
	pending []pendingOp
	closed  bool
}

// New opens a session on conn using the mappings in cfg.
func New(conn *persistence.Connection, cfg *persistence.Configuration, opts ...Option) (*EntityManager, error) {
	if conn == nil {
		return nil, fmt.Errorf("orm: %w: nil connection", persistence.ErrProviderUnavailable)
	}
	if cfg == nil {
		return nil, fmt.Errorf("orm: nil mapping configuration")
	}
	m := &EntityManager{id: uuid.NewString(), conn: conn, cfg: cfg, log: logger.Nop{}}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Factory returns the persistence.ProviderFactory building managers with
// opts.
func Factory(opts ...Option) persistence.ProviderFactory {
	return func(conn *persistence.Connection, cfg *persistence.Configuration) (persistence.Provider, error) {
		return New(conn, cfg, opts...)
	}
}

func (m *EntityManager) ID() string                                { return m.id }
func (m *EntityManager) Connection() *persistence.Connection       { return m.conn }
func (m *EntityManager) Configuration() *persistence.Configuration { return m.cfg }

// IsOpen reports whether the manager still accepts work.
func (m *EntityManager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Repository returns a repository for class. Repositories read through the
// connection and stay usable after the manager closes.
func (m *EntityManager) Repository(class string) (persistence.Repository, error) {
	meta, err := m.cfg.Metadata(class)
	if err != nil {
		return nil, err
	}
	return &Repository{conn: m.conn, meta: meta}, nil
}

func (m *EntityManager) ClassMetadata(class string) (*persistence.ClassMetadata, error) {
	return m.cfg.Metadata(class)
}

// Persist schedules an insert when the entity has no identity yet and an
// update otherwise.
func (m *EntityManager) Persist(e persistence.Entity) error {
	return m.schedule(opPersist, e)
}

// Remove schedules a delete. Entities without identity cannot be removed.
func (m *EntityManager) Remove(e persistence.Entity) error {
	if e != nil && e.EntityID() == 0 {
		return fmt.Errorf("remove: entity %T has no identity", e)
	}
	return m.schedule(opRemove, e)
}

func (m *EntityManager) schedule(kind opKind, e persistence.Entity) error {
	meta, err := m.cfg.MetadataFor(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return persistence.ErrProviderClosed
	}
	m.pending = append(m.pending, pendingOp{kind: kind, entity: e, meta: meta})
	return nil
}

// Flush writes the queued work in one transaction. Driver errors are
// returned unchanged so their codes stay visible.
func (m *EntityManager) Flush(ctx context.Context) error {
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
		m.log.Warnf("orm manager %s closed after failed flush: %v", m.id, err)
		return err
	}
	m.log.Debugf("orm manager %s flushed %d operations", m.id, len(ops))
	return nil
}

func (m *EntityManager) apply(ctx context.Context, ops []pendingOp) error {
	tx, err := m.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// Identities are assigned only once the transaction commits.
	assigned := map[persistence.Entity]int64{}
	for _, op := range ops {
		switch {
		case op.kind == opRemove:
			err = m.delete(ctx, tx, op)
		case op.entity.EntityID() == 0 && assigned[op.entity] == 0:
			var id int64
			id, err = m.insert(ctx, tx, op)
			assigned[op.entity] = id
		default:
			err = m.update(ctx, tx, op, assigned[op.entity])
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

func (m *EntityManager) insert(ctx context.Context, tx *sql.Tx, op pendingOp) (int64, error) {
	d := m.conn.Dialect()
	fields, err := persistence.FieldsOf(op.meta, op.entity)
	if err != nil {
		return 0, err
	}
	cols := op.meta.ColumnNames()
	var q string
	args := make([]any, 0, len(cols))
	if len(cols) == 0 {
		q = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", d.Quote(op.meta.Table), d.Quote(op.meta.Identifier))
	} else {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = d.Quote(c)
			args = append(args, fields[c])
		}
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			d.Quote(op.meta.Table), strings.Join(quoted, ", "), placeholders(len(cols)), d.Quote(op.meta.Identifier))
	}
	var id int64
	if err := tx.QueryRowContext(ctx, d.Rebind(q), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (m *EntityManager) update(ctx context.Context, tx *sql.Tx, op pendingOp, id int64) error {
	if id == 0 {
		id = op.entity.EntityID()
	}
	cols := op.meta.ColumnNames()
	if len(cols) == 0 {
		return nil
	}
	d := m.conn.Dialect()
	fields, err := persistence.FieldsOf(op.meta, op.entity)
	if err != nil {
		return err
	}
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = d.Quote(c) + " = ?"
		args = append(args, fields[c])
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", d.Quote(op.meta.Table), strings.Join(sets, ", "), d.Quote(op.meta.Identifier))
	res, err := tx.ExecContext(ctx, d.Rebind(q), args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %s: no row with %s %d", op.meta.Name, op.meta.Identifier, id)
	}
	return nil
}

func (m *EntityManager) delete(ctx context.Context, tx *sql.Tx, op pendingOp) error {
	d := m.conn.Dialect()
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", d.Quote(op.meta.Table), d.Quote(op.meta.Identifier))
	_, err := tx.ExecContext(ctx, d.Rebind(q), op.entity.EntityID())
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
