package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/graphio"
	"github.com/recastops/recast/pkg/pipeline"
)

// parseOpts holds the command-line flags for the parse command.
type parseOpts struct {
	source     string   // source tool tag
	output     string   // output path, "-" for stdout
	refresh    bool     // bypass the parse cache
	noCache    bool     // disable caching entirely
	parserOpts []string // key=value options passed to the parser
}

// parseCommand creates the parse command. It runs only the front half of
// the pipeline and writes the intermediate graph as JSON, which the
// graph, inspect, and migrate commands accept as input.
func (c *CLI) parseCommand() *cobra.Command {
	var opts parseOpts

	cmd := &cobra.Command{
		Use:   "parse [input]",
		Short: "Parse infrastructure source into a dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "source tool (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-parse even when cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parse cache")
	cmd.Flags().StringArrayVar(&opts.parserOpts, "parser-opt", nil, "parser option key=value (repeatable)")

	return cmd
}

func (c *CLI) runParse(ctx context.Context, input string, opts parseOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.source == "" {
		opts.source = cfg.Defaults.Source
	}

	parserOpts, err := parseKVOpts(opts.parserOpts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Parsing %s...", input))
	spinner.Start()
	g, cached, err := runner.ParseWithCacheInfo(ctx, pipeline.Options{
		Source:     opts.source,
		InputPath:  input,
		ParserOpts: parserOpts,
		Refresh:    opts.refresh,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := graphio.Write(g, out); err != nil {
		return err
	}

	// Decorations would interleave with the JSON on stdout.
	if !writingToStdout(opts.output) {
		printSuccess("Parsed %s", StyleHighlight.Render(input))
		printStats(g.Len(), graphEdges(g), 0, cached)
		printFile(opts.output)
	}

	return nil
}

// writingToStdout reports whether the output flag targets stdout.
func writingToStdout(path string) bool {
	return path == "" || path == "-"
}

// nopCloser wraps an io.Writer with a no-op Close.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput opens the output destination, stdout when path is "" or "-".
func openOutput(path string) (io.WriteCloser, error) {
	if writingToStdout(path) {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
