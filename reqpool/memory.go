package reqpool

import (
	"context"
	"sync"
	"time"
)

// memoryState is the actual storage a namespace maps to. Multiple
// MemoryPool handles constructed with the same namespace share one
// memoryState, mirroring how multiple Pool clones share one redis
// connection pool in the Remote backend.
type memoryState struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	ids  map[string]memoryEntry
}

type memoryEntry struct {
	value     any
	expiresAt time.Time
}

var (
	memoryRegistryMu sync.Mutex
	memoryRegistry   = map[string]*memoryState{}
)

func namespaceState(namespace string) *memoryState {
	memoryRegistryMu.Lock()
	defer memoryRegistryMu.Unlock()
	st, ok := memoryRegistry[namespace]
	if !ok {
		st = &memoryState{data: map[string]memoryEntry{}, ids: map[string]memoryEntry{}}
		memoryRegistry[namespace] = st
	}
	return st
}

// ResetMemoryNamespace drops all state for namespace. Exposed for tests
// that want a clean in-memory pool without a fresh random namespace.
func ResetMemoryNamespace(namespace string) {
	memoryRegistryMu.Lock()
	defer memoryRegistryMu.Unlock()
	delete(memoryRegistry, namespace)
}

// MemoryPool is the in-process Pool backend, parameterized by a namespace
// that isolates parallel test runs without sharing state across them.
type MemoryPool struct {
	namespace string
	ttl       time.Duration
	state     *memoryState
	now       clock
}

// NewMemoryPool returns a Pool backend scoped to namespace with entries
// expiring after ttl. Passing the same namespace to two MemoryPool values
// makes them share state, the in-memory analogue of two redis.Pool clones
// sharing a connection.
func NewMemoryPool(namespace string, ttl time.Duration) *MemoryPool {
	return &MemoryPool{namespace: namespace, ttl: ttl, state: namespaceState(namespace), now: realClock}
}

func (p *MemoryPool) Add(_ context.Context, key RequestKey, entity RequestEntity, status StatusWithContext) error {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	p.state.data[key.Encode()] = memoryEntry{
		value:     StoredValue{Entity: entity, Status: status},
		expiresAt: p.now().Add(p.ttl),
	}
	return nil
}

func (p *MemoryPool) Get(_ context.Context, key RequestKey) (RequestEntity, StatusWithContext, bool, error) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	e, ok := p.state.data[key.Encode()]
	if !ok || p.expired(e) {
		return nil, StatusWithContext{}, false, nil
	}
	sv := e.value.(StoredValue)
	return sv.Entity, sv.Status, true, nil
}

func (p *MemoryPool) GetStatus(ctx context.Context, key RequestKey) (StatusWithContext, bool, error) {
	_, status, ok, err := p.Get(ctx, key)
	return status, ok, err
}

func (p *MemoryPool) UpdateStatus(_ context.Context, key RequestKey, status StatusWithContext) (StatusWithContext, error) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	e, ok := p.state.data[key.Encode()]
	if !ok || p.expired(e) {
		return StatusWithContext{}, ErrNotFound
	}
	sv := e.value.(StoredValue)
	previous := sv.Status
	sv.Status = status
	p.state.data[key.Encode()] = memoryEntry{value: sv, expiresAt: p.now().Add(p.ttl)}
	return previous, nil
}

func (p *MemoryPool) Remove(_ context.Context, key RequestKey) (int, error) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	if _, ok := p.state.data[key.Encode()]; !ok {
		return 0, nil
	}
	delete(p.state.data, key.Encode())
	return 1, nil
}

func (p *MemoryPool) List(_ context.Context) (map[string]StatusWithContext, error) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	result := make(map[string]StatusWithContext, len(p.state.data))
	for k, e := range p.state.data {
		if p.expired(e) {
			continue
		}
		result[k] = e.value.(StoredValue).Status
	}
	return result, nil
}

func (p *MemoryPool) StoreID(_ context.Context, key string, id string) error {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	p.state.ids[key] = memoryEntry{value: id, expiresAt: p.now().Add(p.ttl)}
	return nil
}

func (p *MemoryPool) ReadID(_ context.Context, key string) (string, error) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	e, ok := p.state.ids[key]
	if !ok || p.expired(e) {
		return "", ErrNotFound
	}
	return e.value.(string), nil
}

func (p *MemoryPool) RemoveID(_ context.Context, key string) error {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	delete(p.state.ids, key)
	return nil
}

func (p *MemoryPool) expired(e memoryEntry) bool {
	return p.ttl > 0 && p.now().After(e.expiresAt)
}
