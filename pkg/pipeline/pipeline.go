// Package pipeline provides the core conversion pipeline.
//
// This package implements the complete parse → migrate → validate →
// generate flow that can be used by CLI and API components. By
// centralizing this logic, we ensure consistent behavior across all
// entry points and avoid code duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: Read a source file through its registered parser, or load
//     an already-serialized graph (migrating old schema versions).
//  2. Validate: Check the graph's dependencies and the target
//     generator's compatibility before anything is written.
//  3. Generate: Emit the target format through its registered generator.
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(nil, nil, cache, nil, logger)
//	opts := pipeline.Options{
//	    Source:     "chef",
//	    InputPath:  "recipes/default.rb",
//	    Target:     "ansible",
//	    OutputPath: "site.yml",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Run individual stages:
//
//	// Parse only
//	g, err := runner.Parse(ctx, opts)
//
//	// Generate with an existing graph
//	err := runner.Generate(ctx, g, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

// SourceIR is the pseudo source tag for graphs already serialized by
// graphio. Parsing it loads the envelope instead of running a parser,
// migrating old schema versions on the way in.
const SourceIR = "ir"

// Options contains all configuration for the conversion pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Parse options
	Source     string         `json:"source"`
	InputPath  string         `json:"input_path"`
	ParserOpts plugin.Options `json:"parser_opts,omitempty"`
	Refresh    bool           `json:"refresh,omitempty"`

	// Generate options
	Target        string         `json:"target,omitempty"`
	OutputPath    string         `json:"output_path,omitempty"`
	GeneratorOpts plugin.Options `json:"generator_opts,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the parsed graph.
	Graph *ir.Graph

	// GraphHash is the content hash of the serialized graph.
	GraphHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	Warnings     int
	ParseTime    time.Duration
	GenerateTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ParseHit bool // Whether the parse result came from cache
}

// ValidateAndSetDefaults checks required fields and applies defaults for
// the full pipeline. This method is idempotent - calling it multiple
// times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForParse(); err != nil {
		return err
	}
	if err := o.ValidateForGenerate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForParse checks required fields for parsing.
func (o *Options) ValidateForParse() error {
	if o.Source == "" {
		return errors.New(errors.ErrCodeInvalidInput, "source is required")
	}
	if o.InputPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "input_path is required")
	}
	o.setLoggerDefault()
	return nil
}

// ValidateForGenerate checks required fields for generation.
func (o *Options) ValidateForGenerate() error {
	if o.Target == "" {
		return errors.New(errors.ErrCodeInvalidInput, "target is required")
	}
	if o.OutputPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "output_path is required")
	}
	o.setLoggerDefault()
	return nil
}

func (o *Options) setLoggerDefault() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// countEdges sums resolved dependency edges over the whole graph.
func countEdges(g *ir.Graph) int {
	edges := 0
	for _, n := range g.Nodes() {
		for _, dep := range n.Dependencies {
			if _, ok := g.Node(dep); ok {
				edges++
			}
		}
	}
	return edges
}
