package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"clinic/internal/domain"
)

// MemoryStore keeps orders in memory. Values are copied on the way in
// and out so callers never alias stored maps.
type MemoryStore struct {
	mu         sync.RWMutex
	ordersByID map[string]domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ordersByID: make(map[string]domain.Order)}
}

var _ OrderRepository = (*MemoryStore)(nil)

// ErrDuplicateID is returned by Create when the id is already taken.
var ErrDuplicateID = fmt.Errorf("duplicate order id: %w", domain.ErrInvalidInput)

func (m *MemoryStore) Create(ctx context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		return fmt.Errorf("order without id: %w", domain.ErrInvalidInput)
	}
	if _, ok := m.ordersByID[o.ID]; ok {
		return ErrDuplicateID
	}
	m.ordersByID[o.ID] = o.Clone()
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.ordersByID[id]
	if !ok {
		return nil, fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	cp := o.Clone()
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ordersByID[o.ID]; !ok {
		return fmt.Errorf("order %q: %w", o.ID, ErrNotFound)
	}
	m.ordersByID[o.ID] = o.Clone()
	return nil
}

// List returns matching orders sorted by creation time, then id.
func (m *MemoryStore) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	m.mu.RLock()
	out := make([]domain.Order, 0, len(m.ordersByID))
	for _, o := range m.ordersByID {
		if f.match(o) {
			out = append(out, o.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MemoryTx hands out one mutex per order id. A lock lives only while some
// section holds or waits for it.
type MemoryTx struct {
	mu    sync.Mutex
	locks map[string]*orderLock
}

type orderLock struct {
	sync.Mutex
	refs int
}

func NewMemoryTx() *MemoryTx { return &MemoryTx{locks: make(map[string]*orderLock)} }

var _ TxManager = (*MemoryTx)(nil)

func (tx *MemoryTx) WithOrder(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	l := tx.acquire(id)
	l.Lock()
	defer tx.release(id, l)
	return fn(ctx)
}

func (tx *MemoryTx) acquire(id string) *orderLock {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	l, ok := tx.locks[id]
	if !ok {
		l = &orderLock{}
		tx.locks[id] = l
	}
	l.refs++
	return l
}

func (tx *MemoryTx) release(id string, l *orderLock) {
	l.Unlock()
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if l.refs--; l.refs == 0 {
		delete(tx.locks, id)
	}
}

// held reports how many ids currently have a lock entry.
func (tx *MemoryTx) held() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.locks)
}
