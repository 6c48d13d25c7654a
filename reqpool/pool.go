// Package reqpool implements the durable request pool: a TTL'd key→value
// store of (RequestEntity, StatusWithContext) keyed by RequestKey, plus
// the separate id-store namespace backends use to remember remote job
// identifiers for cancellation.
package reqpool

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by UpdateStatus when the key is absent. Get,
// GetStatus, and Remove never return it; absence there is represented as
// (nil, false)/0; errors are reserved for transport and serialization
// faults.
var ErrNotFound = errors.New("reqpool: request key not found")

// Pool is the durable store the actor and worker share. Implementations
// must be cheap to clone; in Go that means a Pool value holds
// only references (a client handle, a map pointer guarded by a mutex) so
// that passing it by value never copies the underlying store.
type Pool interface {
	// Add upserts (entity, status) for key, refreshing its TTL.
	Add(ctx context.Context, key RequestKey, entity RequestEntity, status StatusWithContext) error
	// Get returns the stored (entity, status) for key, or ok=false if the
	// key was never stored or its TTL has expired.
	Get(ctx context.Context, key RequestKey) (entity RequestEntity, status StatusWithContext, ok bool, err error)
	// GetStatus returns just the status, or ok=false if absent.
	GetStatus(ctx context.Context, key RequestKey) (status StatusWithContext, ok bool, err error)
	// UpdateStatus overwrites the status for an existing key, returning the
	// previous status. Returns ErrNotFound if key is absent.
	UpdateStatus(ctx context.Context, key RequestKey, status StatusWithContext) (previous StatusWithContext, err error)
	// Remove deletes key and reports how many entries were removed (0 or
	// 1); never errors on absence.
	Remove(ctx context.Context, key RequestKey) (count int, err error)
	// List enumerates every live entry's status, keyed by Encode().
	List(ctx context.Context) (map[string]StatusWithContext, error)
}

// IDStorePool is implemented by Pool backends that also serve as the
// prover-side id store, a separate key namespace in the same store. Both
// backends in this package implement it.
type IDStorePool interface {
	Pool
	StoreID(ctx context.Context, key string, id string) error
	ReadID(ctx context.Context, key string) (string, error)
	RemoveID(ctx context.Context, key string) error
}

// clock lets tests substitute a fixed time without monkey-patching
// time.Now; defaults to the real clock in both backends.
type clock func() time.Time

func realClock() time.Time { return time.Now() }
