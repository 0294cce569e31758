package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/recastops/recast/internal/api"
	"github.com/recastops/recast/pkg/config"
	"github.com/recastops/recast/pkg/store"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string // listen address
	noCache bool   // disable the parse cache
}

// serveCommand creates the serve command, which runs the dashboard API
// until interrupted. Graphs persist to MongoDB when [store] uri is
// configured and to process memory otherwise.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parse cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.addr == "" {
		opts.addr = cfg.Server.Addr
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	st, err := c.newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	return api.NewServer(opts.addr, runner, st, c.Logger).Serve(ctx)
}

// newStore selects the graph store from the config: MongoDB when a URI
// is configured, otherwise in-memory.
func (c *CLI) newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.URI == "" {
		c.Logger.Info("no store uri configured, graphs persist in memory only")
		return store.NewMemoryStore(nil), nil
	}
	done := newProgress(c.Logger, "connect store")
	defer done()
	return store.NewMongoStore(ctx, store.Config{
		URI:      cfg.Store.URI,
		Database: cfg.Store.Database,
	}, nil)
}
