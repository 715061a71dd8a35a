package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("registry: entry not found")

type entry[T any] struct {
	mu       sync.Mutex
	value    T
	lastUsed time.Time
	gone     bool
}

// Registry owns values by generated id. Lookups of different ids never
// block each other; work on a single id is serialized by With.
type Registry[T any] struct {
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry[T]

	// OnEvict runs for entries removed by Sweep, outside any lock.
	OnEvict func(id string, v T)
}

// New builds a registry whose entries expire after ttl without use.
// A zero ttl keeps entries until deleted.
func New[T any](ttl time.Duration, now func() time.Time, logger *zap.Logger) *Registry[T] {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry[T]{
		ttl:     ttl,
		now:     now,
		logger:  logger,
		entries: make(map[string]*entry[T]),
	}
}

func (r *Registry[T]) Create(v T) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.entries[id] = &entry[T]{value: v, lastUsed: r.now()}
	r.mu.Unlock()
	return id
}

func (r *Registry[T]) lookup(id string) (*entry[T], bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	return e, ok
}

func (r *Registry[T]) expired(e *entry[T], now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.lastUsed) > r.ttl
}

// With runs fn with exclusive access to the value stored under id and
// refreshes its expiry.
func (r *Registry[T]) With(id string, fn func(v T) error) error {
	e, ok := r.lookup(id)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := r.now()
	if e.gone || r.expired(e, now) {
		return ErrNotFound
	}
	e.lastUsed = now
	return fn(e.value)
}

// Get returns the value without refreshing its expiry. The entry lock is
// only held for the lookup; callers that mutate the value must use With.
func (r *Registry[T]) Get(id string) (T, error) {
	var zero T
	e, ok := r.lookup(id)
	if !ok {
		return zero, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone || r.expired(e, r.now()) {
		return zero, ErrNotFound
	}
	return e.value, nil
}

// Delete removes id and returns its value. A call running inside With for
// the same id finishes first.
func (r *Registry[T]) Delete(id string) (T, error) {
	var zero T
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return zero, ErrNotFound
	}
	e.mu.Lock()
	e.gone = true
	v := e.value
	e.mu.Unlock()
	return v, nil
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep evicts expired entries and returns how many were removed. Entries
// that are busy are skipped until the next sweep.
func (r *Registry[T]) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	now := r.now()

	r.mu.RLock()
	candidates := make(map[string]*entry[T])
	for id, e := range r.entries {
		candidates[id] = e
	}
	r.mu.RUnlock()

	type evicted struct {
		id string
		v  T
	}
	var out []evicted
	for id, e := range candidates {
		if !e.mu.TryLock() {
			continue
		}
		if !e.gone && r.expired(e, now) {
			e.gone = true
			out = append(out, evicted{id: id, v: e.value})
		}
		e.mu.Unlock()
	}
	if len(out) == 0 {
		return 0
	}

	r.mu.Lock()
	for _, ev := range out {
		if cur, ok := r.entries[ev.id]; ok && cur == candidates[ev.id] {
			delete(r.entries, ev.id)
		}
	}
	r.mu.Unlock()

	for _, ev := range out {
		if r.OnEvict != nil {
			r.OnEvict(ev.id, ev.v)
		}
	}
	r.logger.Debug("registry_sweep", zap.Int("evicted", len(out)), zap.Int("remaining", r.Len()))
	return len(out)
}

// Run sweeps every interval until ctx is done.
func (r *Registry[T]) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
