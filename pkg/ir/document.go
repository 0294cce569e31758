package ir

import (
	"encoding/json"
	"sort"

	"github.com/recastops/recast/pkg/errors"
)

// envelope is the serialized form of a graph: the sole representation
// used for persistence and transport. Nodes are keyed by ID, so node
// insertion order is not part of the format.
type envelope struct {
	GraphID    string           `json:"graph_id" bson:"graph_id"`
	SourceType SourceType       `json:"source_type" bson:"source_type"`
	TargetType TargetType       `json:"target_type" bson:"target_type"`
	Nodes      map[string]*Node `json:"nodes" bson:"nodes"`
	Metadata   map[string]any   `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt  string           `json:"created_at" bson:"created_at"`
	Version    string           `json:"version" bson:"version"`
}

// Document projects the graph onto its serialized form: a plain nested
// structure of maps, slices, and scalars, suitable for JSON encoding
// and for the migration engine's transforms. The result shares no data
// with the graph.
func (g *Graph) Document() (map[string]any, error) {
	env := envelope{
		GraphID:    g.ID,
		SourceType: g.SourceType,
		TargetType: g.TargetType,
		Nodes:      g.nodes,
		Metadata:   g.Metadata,
		CreatedAt:  g.CreatedAt,
		Version:    g.Version,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "serialize graph %s", g.ID)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "serialize graph %s", g.ID)
	}
	return doc, nil
}

// FromDocument hydrates a graph from its serialized form. The document
// must already carry the schema version this build understands; callers
// holding an older blob run it through the migration engine first.
//
// Nodes are inserted in lexicographic ID order, which fixes the
// iteration order used by TopologicalOrder for hydrated graphs. Fails
// with FORMAT_ERROR when the structure does not match the envelope,
// when a node key disagrees with its node_id, or when a type tag is
// outside its closed set.
func FromDocument(doc map[string]any) (*Graph, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "encode document")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "decode document")
	}

	if env.GraphID == "" {
		return nil, errors.New(errors.ErrCodeFormat, "document has no graph_id")
	}
	if env.SourceType != "" && !env.SourceType.Valid() {
		return nil, errors.New(errors.ErrCodeFormat, "unknown source type %q", env.SourceType)
	}
	if env.TargetType != "" && !env.TargetType.Valid() {
		return nil, errors.New(errors.ErrCodeFormat, "unknown target type %q", env.TargetType)
	}

	g := &Graph{
		ID:         env.GraphID,
		SourceType: env.SourceType,
		TargetType: env.TargetType,
		Metadata:   env.Metadata,
		CreatedAt:  env.CreatedAt,
		Version:    env.Version,
		nodes:      make(map[string]*Node, len(env.Nodes)),
	}
	if g.Metadata == nil {
		g.Metadata = make(map[string]any)
	}

	ids := make([]string, 0, len(env.Nodes))
	for id := range env.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := env.Nodes[id]
		if n == nil {
			return nil, errors.New(errors.ErrCodeFormat, "node %q is null", id)
		}
		if n.ID != id {
			return nil, errors.New(errors.ErrCodeFormat, "node key %q does not match node_id %q", id, n.ID)
		}
		if !n.Type.Valid() {
			return nil, errors.New(errors.ErrCodeFormat, "node %q has unknown node_type %q", id, n.Type)
		}
		g.AddNode(n)
	}
	return g, nil
}
