package remote

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/plansync/internal/service"
	"github.com/google/uuid"
)

// MockRemote is an in-memory sync server for one collection.
type MockRemote[T service.Record[T]] struct {
	// Optional hooks; a non-nil error fails the call before it takes effect.
	PushFn   func(ctx context.Context, item T) error
	DeleteFn func(ctx context.Context, id uuid.UUID) error
	PullFn   func(ctx context.Context, after time.Time) (service.PullResult[T], error)

	items   map[uuid.UUID]T
	changed map[uuid.UUID]time.Time
	now     func() time.Time

	pushes  []T
	deletes []uuid.UUID
	pulls   []time.Time
	mu      sync.Mutex
}

// NewMockRemote creates an empty mock server.
func NewMockRemote[T service.Record[T]]() *MockRemote[T] {
	return &MockRemote[T]{
		items:   make(map[uuid.UUID]T),
		changed: make(map[uuid.UUID]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the time used to stamp changes.
func (m *MockRemote[T]) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Seed stores item as if another device had pushed it at the given time.
func (m *MockRemote[T]) Seed(item T, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.SyncKey()] = item
	m.changed[item.SyncKey()] = at
}

// Push implements service.RemoteService.
func (m *MockRemote[T]) Push(ctx context.Context, item T) error {
	m.mu.Lock()
	m.pushes = append(m.pushes, item)
	fn := m.PushFn
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, item); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.SyncKey()] = item
	m.changed[item.SyncKey()] = m.now()
	return nil
}

// Delete implements service.RemoteService.
func (m *MockRemote[T]) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, id)
	fn := m.DeleteFn
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, id); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	delete(m.changed, id)
	return nil
}

// Pull implements service.RemoteService. Records changed at or after the
// cursor are returned.
func (m *MockRemote[T]) Pull(ctx context.Context, after time.Time) (service.PullResult[T], error) {
	m.mu.Lock()
	m.pulls = append(m.pulls, after)
	fn := m.PullFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, after)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var result service.PullResult[T]
	for id, item := range m.items {
		if after.IsZero() || !m.changed[id].Before(after) {
			result.Items = append(result.Items, item)
		}
	}
	now := m.now().UTC()
	result.ServerTimestamp = &now
	return result, nil
}

// Item returns the stored record with the given id.
func (m *MockRemote[T]) Item(id uuid.UUID) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	return item, ok
}

// Pushes returns every record pushed so far, failed attempts included.
func (m *MockRemote[T]) Pushes() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.pushes...)
}

// Deletes returns every id a deletion was requested for.
func (m *MockRemote[T]) Deletes() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.deletes...)
}

// Pulls returns the cursor of every pull request.
func (m *MockRemote[T]) Pulls() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.pulls...)
}
