package ir

import (
	"time"

	"github.com/google/uuid"

	"github.com/recastops/recast/pkg/errors"
)

// Graph is the container for one parsed source: nodes keyed by ID plus
// graph-level provenance. Iteration order over nodes is the order they
// were added, which keeps traversals and generated output deterministic.
//
// The zero value is not usable - use NewGraph. Graph is not safe for
// concurrent use without external synchronization.
type Graph struct {
	ID         string
	SourceType SourceType
	TargetType TargetType
	Metadata   map[string]any
	CreatedAt  string // RFC 3339
	Version    string // serialized-form schema version

	nodes map[string]*Node
	order []string // node IDs in insertion order
}

// NewGraph creates an empty graph for the given source and target tools,
// stamped with a fresh ID, the current time, and the current schema
// version.
func NewGraph(source SourceType, target TargetType) *Graph {
	return &Graph{
		ID:         uuid.New().String(),
		SourceType: source,
		TargetType: target,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Version:    SchemaVersion,
		nodes:      make(map[string]*Node),
	}
}

// AddNode inserts n by its ID and returns the node it displaced, or nil
// if the ID was fresh. A duplicate ID replaces the previous node in
// full: the old node's outbound dependencies disappear with it, while
// other nodes' dependency entries now resolve to the new node. Callers
// that consider replacement a defect should check the return value.
//
// Nil nodes and nodes with an empty ID are ignored.
func (g *Graph) AddNode(n *Node) *Node {
	if n == nil || n.ID == "" {
		return nil
	}
	prev, exists := g.nodes[n.ID]
	g.nodes[n.ID] = n
	if !exists {
		g.order = append(g.order, n.ID)
		return nil
	}
	return prev
}

// Node returns the node with the given ID and true, or nil and false if
// no node has that ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order. The slice is freshly
// allocated but the pointers refer to the graph's actual nodes.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// ValidateDependencies returns, for each node with unresolved
// dependencies, the dependency IDs that do not name any node currently
// in the graph. An empty map means every dependency resolves. It never
// fails; callers decide whether unresolved entries are a warning or a
// hard error.
func (g *Graph) ValidateDependencies() map[string][]string {
	missing := make(map[string][]string)
	for _, id := range g.order {
		for _, dep := range g.nodes[id].Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				missing[id] = append(missing[id], dep)
			}
		}
	}
	return missing
}

// TopologicalOrder returns all node IDs ordered so that every node
// appears after the dependencies it resolves to. Dependency entries that
// do not resolve to a node are skipped (ValidateDependencies reports
// them). Roots are visited in insertion order, so the result is
// deterministic for a given construction sequence.
//
// Fails with a CIRCULAR_DEPENDENCY error naming one node on the cycle
// when the dependency edges are not acyclic. Runs in O(V+E).
func (g *Graph) TopologicalOrder() ([]string, error) {
	const (
		white = iota // unvisited
		gray         // on the current DFS path
		black        // finished
	)

	color := make(map[string]int, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, dep := range g.nodes[id].Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			switch color[dep] {
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			case gray:
				return &errors.CycleError{NodeID: dep}
			}
		}
		color[id] = black
		order = append(order, id)
		return nil
	}

	for _, id := range g.order {
		if color[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}
