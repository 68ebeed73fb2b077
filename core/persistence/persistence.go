// Package persistence defines the contract between models and the object
// mappers that store them: entities, repositories, providers (entity or
// document managers) and the connection/configuration pair a provider is
// built from.
//
// A Provider behaves like a transactional session. Once a flush fails the
// provider is closed for good and every later write returns
// ErrProviderClosed; callers rebuild a provider from the same Connection and
// Configuration with the ProviderFactory of the mapper in use.
package persistence

import "context"

// Entity is a mapped domain object with an integer identity. An identity of
// zero means the entity has not been stored yet.
type Entity interface {
	EntityID() int64
	SetEntityID(id int64)
}

// Classed is implemented by entities that carry their class name instead of
// being identified by Go type.
type Classed interface {
	EntityClass() string
}

// Repository looks up entities of one class.
type Repository interface {
	// Find returns the entity stored under id. The boolean is false when no
	// such entity exists.
	Find(ctx context.Context, id int64) (Entity, bool, error)
	// FindAll returns up to limit entities ordered by identity. A limit of
	// zero or less returns every entity.
	FindAll(ctx context.Context, limit int) ([]Entity, error)
}

// Provider is a unit-of-work session over one Connection.
type Provider interface {
	// ID identifies the session, mostly for logs.
	ID() string
	Repository(class string) (Repository, error)
	ClassMetadata(class string) (*ClassMetadata, error)
	// Persist schedules an insert or update of entity.
	Persist(entity Entity) error
	// Remove schedules a delete of entity.
	Remove(entity Entity) error
	// Flush writes all scheduled work atomically.
	Flush(ctx context.Context) error
	// IsOpen reports whether the session still accepts work.
	IsOpen() bool
	Connection() *Connection
	Configuration() *Configuration
}

// ProviderFactory builds a new session from an existing connection and
// mapping configuration.
type ProviderFactory func(conn *Connection, cfg *Configuration) (Provider, error)
