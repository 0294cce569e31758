package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/render"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	source   string  // source tool tag when input is tool source
	format   string  // dot, svg, png, or pdf
	output   string  // output path, defaults per format
	detailed bool    // include actions and dependency counts in labels
	scale    float64 // raster scale for png
	noCache  bool    // disable the parse cache
}

// graphCommand creates the graph command, which renders the dependency
// graph as a diagram. Input is either a serialized graph (.json) or
// tool source, which is parsed first.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph [input]",
		Short: "Render the dependency graph as DOT, SVG, PNG, or PDF",
		Long: `Graph renders the intermediate dependency graph as a diagram: boxes
colored by node type, solid arrows for dependencies, dashed arrows for
notifications. Nodes flagged for manual review get dashed outlines.

DOT output can be piped into external Graphviz tooling; SVG renders
in-process. PNG and PDF additionally require librsvg (rsvg-convert).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "source tool (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "svg", "output format: dot, svg, png, pdf")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default graph.<format>)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include actions and counts in node labels")
	cmd.Flags().Float64Var(&opts.scale, "scale", 2.0, "raster scale for png output")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parse cache")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input string, opts graphOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.source == "" {
		opts.source = cfg.Defaults.Source
	}
	if opts.output == "" {
		opts.output = "graph." + opts.format
	}

	g, err := c.loadGraph(ctx, input, opts.source, opts.noCache)
	if err != nil {
		return err
	}

	dot := render.ToDOT(g, render.Options{Detailed: opts.detailed})

	var out []byte
	switch strings.ToLower(opts.format) {
	case "dot":
		out = []byte(dot)
	case "svg":
		out, err = render.RenderSVG(dot)
	case "png":
		out, err = render.RenderPNG(dot, opts.scale)
	case "pdf":
		out, err = render.RenderPDF(dot)
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"unknown format %q, expected dot, svg, png, or pdf", opts.format)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", opts.output)
	}

	printSuccess("Rendered %s", StyleHighlight.Render(strings.ToUpper(opts.format)))
	printStats(g.Len(), graphEdges(g), 0, false)
	printFile(opts.output)
	if opts.format == "svg" {
		printNewline()
		printNextStep("Open it", fmt.Sprintf("open %s", opts.output))
	}
	return nil
}
