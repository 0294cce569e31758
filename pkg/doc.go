// Package pkg provides the core libraries for recast infrastructure-as-code
// conversion.
//
// # Overview
//
// Recast normalizes infrastructure code from one configuration tool into a
// tool-neutral intermediate representation (IR) and re-emits it for another
// tool. The pkg directory is organized into four main areas:
//
//  1. The IR core - the data model and its invariants ([ir], [version],
//     [migration], [plugin], [errors])
//  2. Plugins - concrete parsers and generators ([parsers], [generators],
//     [plugins])
//  3. Infrastructure - serialization, caching, persistence ([graphio],
//     [cache], [store], [config], [observability])
//  4. Orchestration - the conversion pipeline and visualization
//     ([pipeline], [render])
//
// # Architecture
//
// The typical data flow through recast:
//
//	Chef / Puppet / Terraform source
//	         ↓
//	    [parsers] package (scrape or parse into IR nodes)
//	         ↓
//	    [ir] package (graph structure, validation, ordering)
//	         ↓
//	    [generators] package (emit target-tool output)
//	         ↓
//	    Ansible playbook / Terraform configuration
//
// Serialized graphs cross process boundaries as a versioned JSON envelope;
// [graphio] gates every read through [migration] so the rest of the system
// only ever sees the current schema version.
//
// # Quick Start
//
// Convert a Chef recipe to an Ansible playbook:
//
//	import (
//	    "context"
//	    "github.com/recastops/recast/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil, nil, nil)
//	res, err := runner.Execute(context.Background(), pipeline.Options{
//	    Source:     "chef",
//	    InputPath:  "default.rb",
//	    Target:     "ansible",
//	    OutputPath: "playbook.yml",
//	})
//
// Or drive the core directly:
//
//	parser, _ := plugins.DefaultRegistry().Parser("chef")
//	g, _ := parser.Parse("default.rb", nil)
//	order, _ := g.TopologicalOrder()
//
// # Main Packages
//
// ## IR Core
//
// [ir] - The IR entities (Node, Action, Guard, Attribute, Metadata) and the
// Graph container: insertion-ordered node map, dependency validation,
// cycle-detecting topological order, and the envelope projection.
//
// [version] - Semantic version triples with the major-equality
// compatibility rule.
//
// [migration] - Single-step transforms between schema versions and the
// Manager that composes them, plus the builtin IR schema history.
//
// [plugin] - The SourceParser and TargetGenerator capability contracts and
// the Registry binding each tag to exactly one implementation.
//
// [errors] - The structured error taxonomy shared by every package.
//
// ## Plugins
//
// [parsers/chef], [parsers/puppet] - Regex scrapers for Ruby- and
// Puppet-DSL sources.
//
// [parsers/terraform] - Real HCL parsing via hashicorp/hcl.
//
// [generators/ansible] - Playbook YAML emission in topological order.
//
// [generators/terraform] - HCL emission via hclwrite.
//
// [plugins] - The fully populated default registry.
//
// ## Infrastructure
//
// [graphio] - Reads and writes the serialized envelope with schema
// validation and the migration version gate.
//
// [cache] - Parse-result caching with file, Redis, and null backends.
//
// [store] - Graph persistence with MongoDB and in-memory backends.
//
// [config] - recast.toml loading with defaults.
//
// [observability] - Hook interfaces for pipeline, cache, and store events.
//
// ## Orchestration
//
// [pipeline] - The parse → validate → generate runner shared by the CLI
// and the HTTP API.
//
// [render] - DOT/SVG/PNG/PDF visualization of IR graphs via Graphviz.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/ir/...       # Specific package
//	go test -run Example       # Examples only
//
// [ir]: https://pkg.go.dev/github.com/recastops/recast/pkg/ir
// [version]: https://pkg.go.dev/github.com/recastops/recast/pkg/version
// [migration]: https://pkg.go.dev/github.com/recastops/recast/pkg/migration
// [plugin]: https://pkg.go.dev/github.com/recastops/recast/pkg/plugin
// [errors]: https://pkg.go.dev/github.com/recastops/recast/pkg/errors
// [parsers]: https://pkg.go.dev/github.com/recastops/recast/pkg/parsers
// [parsers/chef]: https://pkg.go.dev/github.com/recastops/recast/pkg/parsers/chef
// [parsers/puppet]: https://pkg.go.dev/github.com/recastops/recast/pkg/parsers/puppet
// [parsers/terraform]: https://pkg.go.dev/github.com/recastops/recast/pkg/parsers/terraform
// [generators]: https://pkg.go.dev/github.com/recastops/recast/pkg/generators
// [generators/ansible]: https://pkg.go.dev/github.com/recastops/recast/pkg/generators/ansible
// [generators/terraform]: https://pkg.go.dev/github.com/recastops/recast/pkg/generators/terraform
// [plugins]: https://pkg.go.dev/github.com/recastops/recast/pkg/plugins
// [graphio]: https://pkg.go.dev/github.com/recastops/recast/pkg/graphio
// [cache]: https://pkg.go.dev/github.com/recastops/recast/pkg/cache
// [store]: https://pkg.go.dev/github.com/recastops/recast/pkg/store
// [config]: https://pkg.go.dev/github.com/recastops/recast/pkg/config
// [observability]: https://pkg.go.dev/github.com/recastops/recast/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/recastops/recast/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/recastops/recast/pkg/render
package pkg
