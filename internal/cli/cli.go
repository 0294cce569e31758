// Package cli implements the recast command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/buildinfo"
	"github.com/recastops/recast/pkg/cache"
	"github.com/recastops/recast/pkg/config"
	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/graphio"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/pipeline"
	"github.com/recastops/recast/pkg/plugin"
	"github.com/recastops/recast/pkg/plugins"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "recast"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the explicit config file location from --config.
	// Empty means the standard lookup order.
	ConfigPath string

	cfg *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Recast converts infrastructure code between configuration tools",
		Long:         `Recast parses Chef, Puppet, and Terraform sources into a tool-neutral dependency graph and generates Ansible or Terraform output from it.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default: recast.toml lookup order)")

	// Register all subcommands
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.parseCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.graphsCommand())
	root.AddCommand(c.pluginsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Runner Factory
// =============================================================================

// config loads the configuration once and reuses it across commands.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newRunner creates a conversion runner wired to the configured cache
// backend. Closing the runner closes the cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	backend := c.newCache(ctx, cfg, noCache)
	return pipeline.NewRunner(plugins.DefaultRegistry(), nil, backend, nil, c.Logger), nil
}

// newCache selects the cache backend from the config. Backend failures
// degrade to the null cache so a broken cache never blocks a conversion.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) cache.Cache {
	if noCache || cfg.Cache.Backend == "none" {
		return cache.NewNullCache()
	}
	if cfg.Cache.Backend == "redis" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, continuing without cache", "addr", cfg.Cache.Redis.Addr, "err", err)
			return cache.NewNullCache()
		}
		return rc
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable, continuing without cache", "dir", cfg.Cache.Dir, "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Input Helpers
// =============================================================================

// looksLikeGraph reports whether path names a serialized graph envelope
// rather than tool source.
func looksLikeGraph(path string) bool {
	return strings.HasSuffix(path, ".json")
}

// loadGraph reads input either as a graph envelope or as tool source.
// Source files go through the parse pipeline with the given source tag.
func (c *CLI) loadGraph(ctx context.Context, input, source string, noCache bool) (*ir.Graph, error) {
	if looksLikeGraph(input) {
		return graphio.ReadFile(input, nil)
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()
	return runner.Parse(ctx, pipeline.Options{Source: source, InputPath: input})
}

// graphEdges counts dependency edges across all nodes.
func graphEdges(g *ir.Graph) int {
	n := 0
	for _, node := range g.Nodes() {
		n += len(node.Dependencies)
	}
	return n
}

// parseKVOpts parses repeated key=value flags into plugin options.
func parseKVOpts(pairs []string) (plugin.Options, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(plugin.Options, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "option %q is not key=value", pair)
		}
		switch value {
		case "true":
			opts[key] = true
		case "false":
			opts[key] = false
		default:
			opts[key] = value
		}
	}
	return opts, nil
}

// defaultOutput returns the conventional output file for a target tag.
func defaultOutput(target string) string {
	switch target {
	case "ansible":
		return "playbook.yml"
	case "terraform":
		return "main.tf"
	default:
		return fmt.Sprintf("%s.out", target)
	}
}
