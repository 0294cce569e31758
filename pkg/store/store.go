// Package store persists serialized graphs across runs.
//
// A Store holds graphs in their serialized envelope form, keyed by
// graph ID, alongside a small metadata record used for listings. Two
// backends are provided:
//
//   - MongoStore: MongoDB-backed, for the server where graphs outlive
//     a single process
//   - MemoryStore: in-process, for tests and one-shot pipelines
//
// Loading goes through the same version gate as file reads: a graph
// stored by an older build is migrated forward before hydration, so
// callers only ever see graphs at the current schema version.
//
// Usage:
//
//	s, err := store.NewMongoStore(ctx, store.Config{}, nil)
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	if err := s.Save(ctx, g); err != nil {
//		return err
//	}
//	loaded, err := s.Get(ctx, g.ID)
package store

import (
	"bytes"
	"context"
	"time"

	"github.com/recastops/recast/pkg/graphio"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/migration"
)

// Store persists serialized graphs.
type Store interface {
	// Save stores the graph, replacing any stored graph with the same ID.
	Save(ctx context.Context, g *ir.Graph) error

	// Get loads a stored graph by ID, migrating older schema versions
	// forward. Fails with NOT_FOUND when no graph has that ID.
	Get(ctx context.Context, id string) (*ir.Graph, error)

	// List returns the metadata records of all stored graphs, newest
	// first. The records carry no envelopes.
	List(ctx context.Context) ([]Record, error)

	// Delete removes a stored graph. Fails with NOT_FOUND when no graph
	// has that ID.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Record is the stored form of a graph: listing metadata plus the
// serialized envelope. Node IDs contain dots, which collide with
// Mongo's field-path syntax, so the graph travels as envelope bytes
// rather than a native nested document.
type Record struct {
	GraphID    string    `bson:"graph_id" json:"graph_id"`
	SourceType string    `bson:"source_type,omitempty" json:"source_type,omitempty"`
	TargetType string    `bson:"target_type,omitempty" json:"target_type,omitempty"`
	Version    string    `bson:"version" json:"version"`
	NodeCount  int       `bson:"node_count" json:"node_count"`
	StoredAt   time.Time `bson:"stored_at" json:"stored_at"`
	Envelope   []byte    `bson:"envelope,omitempty" json:"-"`
}

// newRecord serializes g into its stored form.
func newRecord(g *ir.Graph) (Record, error) {
	var buf bytes.Buffer
	if err := graphio.Write(g, &buf); err != nil {
		return Record{}, err
	}
	return Record{
		GraphID:    g.ID,
		SourceType: string(g.SourceType),
		TargetType: string(g.TargetType),
		Version:    g.Version,
		NodeCount:  g.Len(),
		StoredAt:   time.Now().UTC(),
		Envelope:   buf.Bytes(),
	}, nil
}

// graph hydrates the record's envelope, applying the version gate.
func (r Record) graph(versions *migration.Manager) (*ir.Graph, error) {
	return graphio.Read(bytes.NewReader(r.Envelope), versions)
}
