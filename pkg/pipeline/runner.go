package pipeline

import (
	"bytes"
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/recastops/recast/pkg/cache"
	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/graphio"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/migration"
	"github.com/recastops/recast/pkg/observability"
	"github.com/recastops/recast/pkg/plugin"
	"github.com/recastops/recast/pkg/plugins"
)

// Runner encapsulates pipeline execution with parse-result caching.
// Both CLI and API can use this to avoid duplicating conversion logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Registry *plugin.Registry
	Versions *migration.Manager
	Cache    cache.Cache
	Keyer    cache.Keyer
	Logger   *log.Logger

	// TTL bounds cached parse results. Zero or negative means no expiry.
	TTL time.Duration
}

// NewRunner creates a runner with the given registry, schema manager,
// and cache. Nil arguments fall back to the built-in plugin set, the
// current schema history, a disabled cache, the default keyer, and the
// default logger.
func NewRunner(registry *plugin.Registry, versions *migration.Manager, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if registry == nil {
		registry = plugins.DefaultRegistry()
	}
	if versions == nil {
		versions = migration.NewSchemaManager()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Registry: registry,
		Versions: versions,
		Cache:    c,
		Keyer:    keyer,
		Logger:   logger,
	}
}

// Execute runs the complete parse → validate → generate pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Parse
	parseStart := time.Now()
	g, parseHit, err := r.ParseWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.ParseTime = time.Since(parseStart)
	result.Stats.NodeCount = g.Len()
	result.Stats.EdgeCount = countEdges(g)
	result.CacheInfo.ParseHit = parseHit

	// Content hash for cache keys and API responses
	var buf bytes.Buffer
	if err := graphio.Write(g, &buf); err == nil {
		result.GraphHash = cache.Hash(buf.Bytes())
	}

	opts.Logger.Info("parsed source",
		"source", opts.Source,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"cache_hit", parseHit,
		"duration", result.Stats.ParseTime)

	// Stage 2: Validate
	result.Stats.Warnings = r.reportFindings(g, opts.Logger)

	// Stage 3: Generate
	generateStart := time.Now()
	if err := r.Generate(ctx, g, opts); err != nil {
		return nil, err
	}
	result.Stats.GenerateTime = time.Since(generateStart)

	opts.Logger.Info("generated output",
		"target", opts.Target,
		"path", opts.OutputPath,
		"duration", result.Stats.GenerateTime)

	return result, nil
}

// ParseWithCacheInfo parses the source with caching and returns cache
// hit info. Cached envelopes are re-read through graphio, so its version
// gate migrates stale schema versions transparently.
func (r *Runner) ParseWithCacheInfo(ctx context.Context, opts Options) (*ir.Graph, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForParse(); err != nil {
		return nil, false, err
	}

	// Serialized graphs skip parsing and caching entirely
	if opts.Source == SourceIR {
		g, err := graphio.ReadFile(opts.InputPath, r.Versions)
		return g, false, err
	}

	parser, ok := r.Registry.Parser(opts.Source)
	if !ok {
		return nil, false, errors.New(errors.ErrCodeNotFound, "no parser registered for source %q", opts.Source)
	}

	content, err := os.ReadFile(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, errors.Wrap(errors.ErrCodeNotFound, err, "source %s", opts.InputPath)
		}
		return nil, false, errors.Wrap(errors.ErrCodeIO, err, "read source %s", opts.InputPath)
	}
	key := r.Keyer.ParseKey(opts.Source, content, opts.ParserOpts)

	obs := observability.Pipeline()
	obs.OnParseStart(ctx, opts.Source, opts.InputPath)
	start := time.Now()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if g, err := graphio.Read(bytes.NewReader(data), r.Versions); err == nil {
				observability.Cache().OnCacheHit(ctx, "parse")
				obs.OnParseComplete(ctx, opts.Source, opts.InputPath, g.Len(), time.Since(start), nil)
				return g, true, nil
			}
			// unreadable entries fall through to a fresh parse
		}
		observability.Cache().OnCacheMiss(ctx, "parse")
	}

	g, err := parser.Parse(opts.InputPath, opts.ParserOpts)
	if err != nil {
		obs.OnParseComplete(ctx, opts.Source, opts.InputPath, 0, time.Since(start), err)
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := graphio.Write(g, &buf); err == nil {
		err := cache.RetryWithBackoff(ctx, func() error {
			return r.Cache.Set(ctx, key, buf.Bytes(), r.TTL)
		})
		if err != nil {
			opts.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "parse", buf.Len())
		}
	}
	obs.OnParseComplete(ctx, opts.Source, opts.InputPath, g.Len(), time.Since(start), nil)
	return g, false, nil
}

// Parse is a convenience wrapper that calls ParseWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Parse(ctx context.Context, opts Options) (*ir.Graph, error) {
	g, _, err := r.ParseWithCacheInfo(ctx, opts)
	return g, err
}

// Generate validates the graph against the target generator and writes
// the output. Incompatibilities fail before anything is written; lossy
// conversions are logged as warnings.
func (r *Runner) Generate(ctx context.Context, g *ir.Graph, opts Options) error {
	r.applyLogger(&opts)
	if err := opts.ValidateForGenerate(); err != nil {
		return err
	}

	generator, ok := r.Registry.Generator(opts.Target)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no generator registered for target %q", opts.Target)
	}

	check := generator.ValidateIR(g)
	for _, warning := range check.Warnings {
		opts.Logger.Warn("lossy conversion", "target", opts.Target, "detail", warning)
	}
	if !check.Compatible {
		return errors.New(errors.ErrCodeIncompatibleIR, "graph %s cannot target %s: %s",
			g.ID, opts.Target, strings.Join(check.Issues, "; "))
	}

	obs := observability.Pipeline()
	obs.OnGenerateStart(ctx, opts.Target, g.Len())
	start := time.Now()
	err := generator.Generate(g, opts.OutputPath, opts.GeneratorOpts)
	obs.OnGenerateComplete(ctx, opts.Target, time.Since(start), err)
	return err
}

// ValidateSource runs the parser's syntax check without building a graph.
func (r *Runner) ValidateSource(source, path string) (plugin.ValidationResult, error) {
	parser, ok := r.Registry.Parser(source)
	if !ok {
		return plugin.ValidationResult{}, errors.New(errors.ErrCodeNotFound, "no parser registered for source %q", source)
	}
	return parser.Validate(path), nil
}

// reportFindings logs unresolved dependencies and nodes flagged for
// review, returning the number of warnings raised.
func (r *Runner) reportFindings(g *ir.Graph, logger *log.Logger) int {
	warnings := 0

	unresolved := g.ValidateDependencies()
	ids := make([]string, 0, len(unresolved))
	for id := range unresolved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		logger.Warn("unresolved dependencies", "node", id, "missing", unresolved[id])
		warnings++
	}

	for _, n := range g.Nodes() {
		if n.Metadata.RequiresReview {
			logger.Warn("node needs review",
				"node", n.ID,
				"confidence", n.Metadata.ConfidenceScore,
				"notes", strings.Join(n.Metadata.Notes, "; "))
			warnings++
		}
	}
	return warnings
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
