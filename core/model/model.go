// Package model provides Model, the base type grids use to read and write one
// mapped entity class through a persistence provider.
//
// A provider is unusable after any failed write: the mapper closes its
// session the way transactional ORMs do. Model therefore replaces its
// provider with a fresh one, built from the same connection and mapping
// configuration, before it returns the failure. The failed operation is not
// retried; the replacement only keeps the model usable for the rest of the
// request, for example to persist an audit entry about the failure.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/datagrid/core/logger"
	"github.com/kilianp07/datagrid/core/metrics"
	"github.com/kilianp07/datagrid/core/monitoring"
	"github.com/kilianp07/datagrid/core/persistence"
)

// DefaultAlias is the query alias assigned by Bind.
const DefaultAlias = "e"

// ErrNotBound is returned by lookups on a model that has no entity class.
var ErrNotBound = errors.New("model is not bound to an entity class")

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for persistence events.
func WithLogger(l logger.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// WithSink sets the metrics sink.
func WithSink(s metrics.Sink) Option {
	return func(m *Model) {
		if s != nil {
			m.sink = s
		}
	}
}

// Model wraps a provider, repository and class metadata for one entity class.
// It is meant to be built per request and is not safe for concurrent use.
type Model struct {
	provider    persistence.Provider
	create      persistence.ProviderFactory
	repository  persistence.Repository
	entityClass string
	alias       string
	metadata    *persistence.ClassMetadata

	log  logger.Logger
	sink metrics.Sink
}

// New returns an unbound model. provider may be nil, in which case Bind fails
// until SetProvider is called. create rebuilds the provider after a failure.
func New(provider persistence.Provider, create persistence.ProviderFactory, opts ...Option) *Model {
	m := &Model{
		provider: provider,
		create:   create,
		log:      logger.Nop{},
		sink:     metrics.NopSink{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SetProvider replaces the provider handle.
func (m *Model) SetProvider(p persistence.Provider) *Model {
	m.provider = p
	return m
}

// Bind attaches the model to entityClass, fetching its repository and
// metadata from the provider.
func (m *Model) Bind(entityClass string) error {
	if m.provider == nil {
		return persistence.ErrProviderUnavailable
	}
	repo, err := m.provider.Repository(entityClass)
	if err != nil {
		return fmt.Errorf("bind %s: %w", entityClass, err)
	}
	meta, err := m.provider.ClassMetadata(entityClass)
	if err != nil {
		return fmt.Errorf("bind %s: %w", entityClass, err)
	}
	m.entityClass = entityClass
	m.repository = repo
	m.metadata = meta
	m.alias = DefaultAlias
	return nil
}

func (m *Model) Provider() persistence.Provider            { return m.provider }
func (m *Model) Repository() persistence.Repository        { return m.repository }
func (m *Model) EntityClass() string                       { return m.entityClass }
func (m *Model) Alias() string                             { return m.alias }
func (m *Model) ClassMetadata() *persistence.ClassMetadata { return m.metadata }

// FindByID returns the entity stored under id. An id of zero reports "not
// found" without a lookup.
func (m *Model) FindByID(ctx context.Context, id int64) (persistence.Entity, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	if m.repository == nil {
		return nil, false, ErrNotBound
	}
	start := time.Now()
	e, ok, err := m.repository.Find(ctx, id)
	m.record("find", start, err)
	return e, ok, err
}

// Save persists entity and flushes the unit of work. On failure the provider
// is recreated before the error is returned; the error is an
// *persistence.OperationError carrying the original message and code.
func (m *Model) Save(ctx context.Context, entity persistence.Entity) (persistence.Entity, error) {
	if m.provider == nil {
		return nil, persistence.ErrProviderUnavailable
	}
	start := time.Now()
	err := m.provider.Persist(entity)
	if err == nil {
		err = m.provider.Flush(ctx)
	}
	if err != nil {
		err = m.fail("save", err)
		m.record("save", start, err)
		return nil, err
	}
	m.record("save", start, nil)
	m.log.Debugw("entity saved", map[string]any{"class": m.entityClass, "id": entity.EntityID()})
	return entity, nil
}

// RemoveByID deletes the entity stored under id. It reports false without
// error when id is zero or no such entity exists.
func (m *Model) RemoveByID(ctx context.Context, id int64) (bool, error) {
	if id == 0 {
		return false, nil
	}
	if m.provider == nil {
		return false, persistence.ErrProviderUnavailable
	}
	e, ok, err := m.FindByID(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	start := time.Now()
	err = m.provider.Remove(e)
	if err == nil {
		err = m.provider.Flush(ctx)
	}
	if err != nil {
		err = m.fail("remove", err)
		m.record("remove", start, err)
		return false, err
	}
	m.record("remove", start, nil)
	m.log.Debugw("entity removed", map[string]any{"class": m.entityClass, "id": id})
	return true, nil
}

// fail wraps cause and replaces the provider. A failed replacement is joined
// to the returned error; the original failure always stays reachable through
// errors.As.
func (m *Model) fail(op string, cause error) error {
	opErr := persistence.NewOperationError(op, m.entityClass, cause)
	m.log.Errorw("persistence operation failed", map[string]any{
		"op":     op,
		"class":  m.entityClass,
		"code":   opErr.Code,
		"handle": m.provider.ID(),
		"error":  cause.Error(),
	})
	monitoring.CaptureException(opErr, map[string]string{"op": op, "class": m.entityClass, "code": opErr.Code})
	if err := m.recoverProvider(cause); err != nil {
		return errors.Join(opErr, err)
	}
	return opErr
}

// recoverProvider swaps the closed provider for a new one built on the same
// connection and configuration.
func (m *Model) recoverProvider(cause error) error {
	old := m.provider
	ev := metrics.RecoveryEvent{Class: m.entityClass, OldHandle: old.ID(), Cause: cause, Time: time.Now()}

	var err error
	if m.create == nil {
		err = errors.New("no provider factory configured")
	} else {
		var fresh persistence.Provider
		fresh, err = m.create(old.Connection(), old.Configuration())
		if err == nil {
			m.provider = fresh
			ev.NewHandle = fresh.ID()
			ev.RecoveryOK = true
		}
	}
	if err != nil {
		err = fmt.Errorf("recover persistence provider: %w", err)
		ev.Err = err
		m.log.Errorw("persistence provider recovery failed", map[string]any{
			"class": m.entityClass, "handle": old.ID(), "error": err.Error(),
		})
		monitoring.CaptureException(err, map[string]string{"op": "recover", "class": m.entityClass})
	} else {
		m.log.Infow("persistence provider recreated", map[string]any{
			"class": m.entityClass, "old_handle": ev.OldHandle, "new_handle": ev.NewHandle,
		})
	}
	if rr, ok := m.sink.(metrics.RecoveryRecorder); ok {
		if rerr := rr.RecordRecovery(ev); rerr != nil {
			m.log.Warnf("record recovery: %v", rerr)
		}
	}
	return err
}

func (m *Model) record(op string, start time.Time, err error) {
	ev := metrics.PersistenceEvent{Op: op, Class: m.entityClass, Duration: time.Since(start), Err: err, Time: time.Now()}
	if rerr := m.sink.RecordPersistence(ev); rerr != nil {
		m.log.Warnf("record %s: %v", op, rerr)
	}
}
