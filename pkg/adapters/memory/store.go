package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.GraphStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[uuid.UUID]*domain.GraphDefinition
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[uuid.UUID]*domain.GraphDefinition),
	}
}

// Save persists a copy of the definition in memory.
func (s *Store) Save(ctx context.Context, def *domain.GraphDefinition) error {
	copied := clone(def)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[def.ID] = copied
	return nil
}

// Load retrieves the definition from memory.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*domain.GraphDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.data[id]
	if !ok {
		return nil, domain.ErrGraphNotFound
	}

	// Copy on read so the caller can't mutate the stored definition by pointer
	return clone(def), nil
}

// Delete removes the definition.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored IDs, sorted.
func (s *Store) List(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Graphs returns every stored definition, so the store doubles as a ports.GraphSource.
func (s *Store) Graphs(ctx context.Context) ([]*domain.GraphDefinition, error) {
	ids, _ := s.List(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]*domain.GraphDefinition, 0, len(ids))
	for _, id := range ids {
		if def, ok := s.data[id]; ok {
			defs = append(defs, clone(def))
		}
	}
	return defs, nil
}

// clone copies the definition and its node descriptions one level deep.
func clone(def *domain.GraphDefinition) *domain.GraphDefinition {
	ret := *def
	ret.Nodes = make([]domain.NodeDescription, len(def.Nodes))
	for i, desc := range def.Nodes {
		copied := make(domain.NodeDescription, len(desc))
		for k, v := range desc {
			copied[k] = v
		}
		ret.Nodes[i] = copied
	}
	return &ret
}
