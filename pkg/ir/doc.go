// Package ir defines the intermediate representation shared by every
// parser and generator: a typed node/action/guard/attribute entity set
// and the graph container that holds them.
//
// # Overview
//
// Recast normalizes infrastructure-as-code by parsing tool-specific
// sources (Chef recipes, Puppet manifests, Terraform configurations)
// into one neutral graph, then emitting that graph for a target tool.
// This package is the neutral middle: parsers produce a [Graph],
// generators consume one, and everything in between (validation,
// migration, persistence) works on the same entities.
//
// # Basic Usage
//
// Create a graph with [NewGraph], build nodes with [NewNode], and add
// them with [Graph.AddNode]. Dependencies are recorded as node IDs on
// the depending node and resolved lazily:
//
//	g := ir.NewGraph(ir.SourceChef, ir.TargetAnsible)
//	web := ir.NewNode("pkg.nginx", ir.NodePackage, "nginx")
//	conf := ir.NewNode("tpl.nginx.conf", ir.NodeTemplate, "nginx.conf")
//	conf.AddDependency(web.ID)
//	g.AddNode(web)
//	g.AddNode(conf)
//	order, err := g.TopologicalOrder()
//
// Dependency entries are not required to resolve at insertion time.
// [Graph.ValidateDependencies] reports unresolved entries without
// failing; [Graph.TopologicalOrder] skips them and fails only on
// cycles.
//
// # Identity
//
// Node IDs are unique within a graph by construction: adding a node
// with an existing ID replaces the previous node in full, and
// [Graph.AddNode] returns the displaced node so callers can decide
// whether that replacement was intentional.
//
// # Serialization
//
// [Graph.Document] projects a graph onto the versioned document form
// used for persistence and transport, and [FromDocument] hydrates it
// back. Documents tagged with an older schema version are migrated
// forward before hydration; that gate lives in the graphio package,
// not here.
//
// # Concurrency
//
// Graphs are not safe for concurrent use. The package assumes a single
// writer building or consuming one graph at a time; callers must
// synchronize any sharing themselves.
package ir
