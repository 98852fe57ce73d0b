package backend

import (
	"context"
	"errors"
	"sync"

	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/utils"
)

var ErrConflict = errors.New("record already exists")

// Store is the persistence behind the development backend. Get and Delete
// return utils.ErrorRecordNotFound for unknown ids.
type Store interface {
	List(ctx context.Context, resource string) ([]record.Record, error)
	ListByFarm(ctx context.Context, resource, farmId string) ([]record.Record, error)
	Get(ctx context.Context, resource, id string) (record.Record, error)
	Create(ctx context.Context, resource string, rec record.Record) (record.Record, error)
	// Put replaces the record; created reports whether it did not exist.
	Put(ctx context.Context, resource, id string, rec record.Record) (stored record.Record, created bool, err error)
	Delete(ctx context.Context, resource, id string) error
}

type memoryCollection struct {
	order []string
	rows  map[string]record.Record
}

// MemoryStore keeps rows per resource in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) collection(resource string) *memoryCollection {
	col, ok := s.collections[resource]
	if !ok {
		col = &memoryCollection{rows: make(map[string]record.Record)}
		s.collections[resource] = col
	}
	return col
}

func (s *MemoryStore) List(ctx context.Context, resource string) ([]record.Record, error) {
	return s.filter(resource, func(record.Record) bool { return true }), nil
}

func (s *MemoryStore) ListByFarm(ctx context.Context, resource, farmId string) ([]record.Record, error) {
	return s.filter(resource, func(r record.Record) bool { return r.FarmId() == farmId }), nil
}

func (s *MemoryStore) filter(resource string, keep func(record.Record) bool) []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[resource]
	if !ok {
		return []record.Record{}
	}
	out := make([]record.Record, 0, len(col.order))
	for _, id := range col.order {
		if r := col.rows[id]; keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (s *MemoryStore) Get(ctx context.Context, resource, id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[resource]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	r, ok := col.rows[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context, resource string, rec record.Record) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collection(resource)
	id := rec.ID()
	if _, exists := col.rows[id]; exists {
		return nil, ErrConflict
	}
	col.order = append(col.order, id)
	col.rows[id] = rec.Clone()
	return rec.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, resource, id string, rec record.Record) (record.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collection(resource)
	_, exists := col.rows[id]
	if !exists {
		col.order = append(col.order, id)
	}
	col.rows[id] = rec.Clone()
	return rec.Clone(), !exists, nil
}

func (s *MemoryStore) Delete(ctx context.Context, resource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[resource]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	if _, ok := col.rows[id]; !ok {
		return utils.ErrorRecordNotFound
	}
	delete(col.rows, id)
	for i, v := range col.order {
		if v == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return nil
}
