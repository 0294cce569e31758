package plugin

import (
	"sort"

	"github.com/recastops/recast/pkg/errors"
)

// ParserFactory constructs a fresh SourceParser instance.
type ParserFactory func() SourceParser

// GeneratorFactory constructs a fresh TargetGenerator instance.
type GeneratorFactory func() TargetGenerator

// Binding describes one registry entry for listings.
type Binding struct {
	Tag      string   `json:"tag"`
	Kind     string   `json:"kind"` // "parser" or "generator"
	Versions []string `json:"versions,omitempty"`
}

// Registry binds source-tool tags to parser factories and target-tool
// tags to generator factories. Each tag can be bound at most once per
// kind; re-binding fails with DUPLICATE_REGISTRATION.
//
// A Registry is an explicit dependency - construct one with NewRegistry
// and pass it where it is needed. Registration happens during startup;
// the registry is not synchronized for concurrent mutation.
type Registry struct {
	parsers    map[string]ParserFactory
	generators map[string]GeneratorFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers:    make(map[string]ParserFactory),
		generators: make(map[string]GeneratorFactory),
	}
}

// RegisterParser binds a parser factory to a source-tool tag. Fails with
// INVALID_INPUT for a malformed tag or nil factory, and with
// DUPLICATE_REGISTRATION when the tag is already bound to a parser.
func (r *Registry) RegisterParser(tag string, factory ParserFactory) error {
	if err := errors.ValidateTag(tag); err != nil {
		return err
	}
	if factory == nil {
		return errors.New(errors.ErrCodeInvalidInput, "parser factory for %q is nil", tag)
	}
	if _, exists := r.parsers[tag]; exists {
		return errors.New(errors.ErrCodeDuplicateRegistration, "parser %q is already registered", tag)
	}
	r.parsers[tag] = factory
	return nil
}

// RegisterGenerator binds a generator factory to a target-tool tag. Fails
// with INVALID_INPUT for a malformed tag or nil factory, and with
// DUPLICATE_REGISTRATION when the tag is already bound to a generator.
func (r *Registry) RegisterGenerator(tag string, factory GeneratorFactory) error {
	if err := errors.ValidateTag(tag); err != nil {
		return err
	}
	if factory == nil {
		return errors.New(errors.ErrCodeInvalidInput, "generator factory for %q is nil", tag)
	}
	if _, exists := r.generators[tag]; exists {
		return errors.New(errors.ErrCodeDuplicateRegistration, "generator %q is already registered", tag)
	}
	r.generators[tag] = factory
	return nil
}

// Parser constructs a fresh parser for the tag and reports whether the
// tag is bound.
func (r *Registry) Parser(tag string) (SourceParser, bool) {
	factory, ok := r.parsers[tag]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// Generator constructs a fresh generator for the tag and reports whether
// the tag is bound.
func (r *Registry) Generator(tag string) (TargetGenerator, bool) {
	factory, ok := r.generators[tag]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// ParserTags returns the bound source-tool tags in sorted order.
func (r *Registry) ParserTags() []string {
	return sortedKeys(r.parsers)
}

// GeneratorTags returns the bound target-tool tags in sorted order.
func (r *Registry) GeneratorTags() []string {
	return sortedKeys(r.generators)
}

// Info describes every binding, parsers first, each kind sorted by tag.
// Supported versions are read from a freshly constructed instance.
func (r *Registry) Info() []Binding {
	out := make([]Binding, 0, len(r.parsers)+len(r.generators))
	for _, tag := range r.ParserTags() {
		p := r.parsers[tag]()
		out = append(out, Binding{Tag: tag, Kind: "parser", Versions: p.SupportedVersions()})
	}
	for _, tag := range r.GeneratorTags() {
		g := r.generators[tag]()
		out = append(out, Binding{Tag: tag, Kind: "generator", Versions: g.SupportedVersions()})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
