package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/ir"
)

// inspectOpts holds the command-line flags for the inspect command.
type inspectOpts struct {
	source  string // source tool tag when input is tool source
	order   bool   // print the full topological order
	noCache bool   // disable the parse cache
}

// inspectCommand creates the inspect command, a terminal summary of a
// graph: provenance, node type distribution, execution order, and the
// findings a conversion would warn about.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect [input]",
		Short: "Summarize a dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "source tool (default from config)")
	cmd.Flags().BoolVar(&opts.order, "order", false, "print the full execution order")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parse cache")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, opts inspectOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.source == "" {
		opts.source = cfg.Defaults.Source
	}

	g, err := c.loadGraph(ctx, input, opts.source, opts.noCache)
	if err != nil {
		return err
	}

	printGraphSummary(g)
	printNewline()

	printTypeBreakdown(g)
	printFindings(g)

	order, err := g.TopologicalOrder()
	if err != nil {
		printError("no execution order: %v", err)
		return err
	}
	if opts.order {
		fmt.Println(StyleTitle.Render("Execution order"))
		for i, id := range order {
			printDetail("%3d. %s", i+1, id)
		}
	} else if len(order) > 0 {
		printInfo("executes %s first, %s last",
			StyleHighlight.Render(order[0]), StyleHighlight.Render(order[len(order)-1]))
	}
	return nil
}

// printTypeBreakdown prints node counts per type, most common first.
func printTypeBreakdown(g *ir.Graph) {
	counts := make(map[ir.NodeType]int)
	for _, n := range g.Nodes() {
		counts[n.Type]++
	}
	types := make([]ir.NodeType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	for _, t := range types {
		printKeyValue(string(t), fmt.Sprintf("%d", counts[t]))
	}
	if len(types) > 0 {
		printNewline()
	}
}

// printFindings prints unresolved dependencies and review flags.
func printFindings(g *ir.Graph) {
	unresolved := g.ValidateDependencies()
	ids := make([]string, 0, len(unresolved))
	for id := range unresolved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printWarning("%s depends on missing: %s", id, strings.Join(unresolved[id], ", "))
	}

	for _, n := range g.Nodes() {
		if n.Metadata.RequiresReview {
			printWarning("%s needs review (confidence %.2f)", n.ID, n.Metadata.ConfidenceScore)
		}
	}
}
