package store

import (
	"context"
	"sort"
	"sync"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/migration"
)

// MemoryStore keeps records in process memory. It backs tests and
// single-process runs where graphs do not need to outlive the process.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	recs     map[string]Record
	versions *migration.Manager
}

// NewMemoryStore returns an empty in-memory store. A nil versions
// manager defaults to the builtin schema history.
func NewMemoryStore(versions *migration.Manager) *MemoryStore {
	if versions == nil {
		versions = migration.NewSchemaManager()
	}
	return &MemoryStore{
		recs:     make(map[string]Record),
		versions: versions,
	}
}

// Save stores the graph, replacing any stored graph with the same ID.
func (s *MemoryStore) Save(ctx context.Context, g *ir.Graph) error {
	rec, err := newRecord(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.GraphID] = rec
	return nil
}

// Get loads a stored graph by ID, migrating older schema versions
// forward before hydration.
func (s *MemoryStore) Get(ctx context.Context, id string) (*ir.Graph, error) {
	s.mu.RLock()
	rec, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "graph %s not found", id)
	}
	return rec.graph(s.versions)
}

// List returns the metadata records of all stored graphs, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	recs := make([]Record, 0, len(s.recs))
	for _, rec := range s.recs {
		rec.Envelope = nil
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].StoredAt.Equal(recs[j].StoredAt) {
			return recs[i].StoredAt.After(recs[j].StoredAt)
		}
		return recs[i].GraphID < recs[j].GraphID
	})
	return recs, nil
}

// Delete removes a stored graph.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[id]; !ok {
		return errors.New(errors.ErrCodeNotFound, "graph %s not found", id)
	}
	delete(s.recs, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
