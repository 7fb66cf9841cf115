package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup by primary key finds no row.
	ErrNotFound = errors.New("store: record not found")
	// ErrTxClosed is returned by every operation on a committed or rolled
	// back session.
	ErrTxClosed = errors.New("store: transaction already closed")
	// ErrUnknownRelationship is returned when a relationship name is not
	// declared on the parent model.
	ErrUnknownRelationship = errors.New("store: unknown relationship")
	// ErrMissingKey is returned when an object cannot be identified.
	ErrMissingKey = errors.New("store: object has no primary key")
)

// Session is the persistence contract the form engine consumes. A session is
// owned by exactly one request and is not safe for concurrent use.
type Session interface {
	// Get loads an instance by primary key. A missing row yields ErrNotFound.
	Get(ctx context.Context, model string, pk PK) (Object, error)
	// Add schedules obj for insertion.
	Add(ctx context.Context, obj Object) error
	// Delete schedules obj for deletion.
	Delete(ctx context.Context, obj Object) error
	// Expire drops cached relationship collections of obj so the next
	// Related call reads them again.
	Expire(ctx context.Context, obj Object) error
	// Flush writes pending changes into the open transaction.
	Flush(ctx context.Context) error
	// Related returns the collection held by parent under relationship in
	// its natural order.
	Related(ctx context.Context, parent Object, relationship string) ([]Object, error)
	// Append adds child to the collection held by parent under relationship.
	// The child's side of the relationship is set by the session.
	Append(ctx context.Context, parent Object, relationship string, child Object) error
}

// Tx is a request scoped session with transaction boundaries.
type Tx interface {
	Session
	// All returns every instance of model ordered by primary key.
	All(ctx context.Context, model string) ([]Object, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Provider opens request scoped transactions.
type Provider interface {
	Begin(ctx context.Context) (Tx, error)
}

// Backend is implemented by storage engines. The unit-of-work Session sits on
// top of it and handles identity, dirty tracking and relationship loading.
type Backend interface {
	Begin(ctx context.Context) (BackendTx, error)
}

// BackendTx is a raw storage transaction keyed by model and primary key.
type BackendTx interface {
	Load(ctx context.Context, model string, key PK) (map[string]any, bool, error)
	Scan(ctx context.Context, model string, fn func(attrs map[string]any) error) error
	NextID(ctx context.Context, model string) (int64, error)
	Put(ctx context.Context, model string, key PK, attrs map[string]any) error
	Delete(ctx context.Context, model string, key PK) error
	Commit() error
	Rollback() error
}
