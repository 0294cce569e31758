package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/graphio"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/store"
)

// graphsCommand creates the graphs command for browsing the configured
// graph store. Without arguments it opens an interactive browser;
// subcommands operate on a graph ID directly.
func (c *CLI) graphsCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "graphs",
		Short: "Browse and manage stored graphs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraphsBrowse(cmd.Context(), plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print a plain listing instead of the browser")

	cmd.AddCommand(c.graphsSaveCommand())
	cmd.AddCommand(c.graphsExportCommand())
	cmd.AddCommand(c.graphsDeleteCommand())

	return cmd
}

func (c *CLI) runGraphsBrowse(ctx context.Context, plain bool) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	records, err := st.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printInfo("No stored graphs")
		return nil
	}

	if plain {
		for _, r := range records {
			printKeyValue(shortID(r.GraphID),
				fmt.Sprintf("%s %s %s · %d nodes · %s",
					r.SourceType, iconArrow, r.TargetType, r.NodeCount, formatRelativeTime(r.StoredAt)))
		}
		return nil
	}

	model, err := tea.NewProgram(NewGraphListModel(records)).Run()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "graph browser")
	}
	fm, ok := model.(GraphListModel)
	if !ok || fm.Selected == nil {
		return nil
	}

	g, err := st.Get(ctx, fm.Selected.Record.GraphID)
	if err != nil {
		return err
	}
	printGraphSummary(g)
	return nil
}

// graphsSaveCommand creates the "graphs save" subcommand, which parses
// or reads the input and persists it to the configured store.
func (c *CLI) graphsSaveCommand() *cobra.Command {
	var source string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "save [input]",
		Short: "Parse input and persist the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if source == "" {
				source = cfg.Defaults.Source
			}

			g, err := c.loadGraph(ctx, args[0], source, noCache)
			if err != nil {
				return err
			}

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			if err := st.Save(ctx, g); err != nil {
				return err
			}
			printSuccess("Stored graph %s", StyleHighlight.Render(g.ID))
			printStats(g.Len(), graphEdges(g), 0, false)
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "source tool (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the parse cache")

	return cmd
}

// graphsExportCommand creates the "graphs export" subcommand.
func (c *CLI) graphsExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Write a stored graph's envelope to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			g, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}

			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()

			if err := graphio.Write(g, out); err != nil {
				return err
			}
			if !writingToStdout(output) {
				printSuccess("Exported %s", StyleHighlight.Render(g.ID))
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	return cmd
}

// graphsDeleteCommand creates the "graphs delete" subcommand.
func (c *CLI) graphsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove a stored graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}

// openStore opens the configured graph store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return c.newStore(ctx, cfg)
}

// printGraphSummary prints the key facts of a graph.
func printGraphSummary(g *ir.Graph) {
	fmt.Println(StyleTitle.Render("Graph " + g.ID))
	printKeyValue("source", string(g.SourceType))
	printKeyValue("target", string(g.TargetType))
	printKeyValue("schema", g.Version)
	printKeyValue("created", g.CreatedAt)
	printKeyValue("nodes", fmt.Sprintf("%d", g.Len()))
	printKeyValue("edges", fmt.Sprintf("%d", graphEdges(g)))
}
