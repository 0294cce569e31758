package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/pipeline"
)

// convertOpts holds the command-line flags for the convert command.
type convertOpts struct {
	source        string   // source tool tag (chef, puppet, terraform)
	target        string   // target tool tag (ansible, terraform)
	output        string   // output file path
	refresh       bool     // bypass the parse cache
	noCache       bool     // disable caching entirely
	parserOpts    []string // key=value options passed to the parser
	generatorOpts []string // key=value options passed to the generator
}

// convertCommand creates the convert command, the end-to-end pipeline
// from tool source to generated output.
//
// Source and target default to the config file's [defaults] section;
// the output path defaults to the target's conventional file name
// (playbook.yml for ansible, main.tf for terraform).
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert [input]",
		Short: "Convert infrastructure source to another tool",
		Long: `Convert parses the input with the source tool's parser, builds the
intermediate dependency graph, and generates output for the target tool.

Parse results are cached by content hash, so re-converting an unchanged
input skips the parse step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "source tool (default from config)")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "target tool (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default per target)")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-parse even when cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the parse cache")
	cmd.Flags().StringArrayVar(&opts.parserOpts, "parser-opt", nil, "parser option key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.generatorOpts, "generator-opt", nil, "generator option key=value (repeatable)")

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, input string, opts convertOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if opts.source == "" {
		opts.source = cfg.Defaults.Source
	}
	if opts.target == "" {
		opts.target = cfg.Defaults.Target
	}
	if opts.output == "" {
		opts.output = defaultOutput(opts.target)
	}

	parserOpts, err := parseKVOpts(opts.parserOpts)
	if err != nil {
		return err
	}
	generatorOpts, err := parseKVOpts(opts.generatorOpts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Converting %s to %s...", opts.source, opts.target))
	spinner.Start()
	res, err := runner.Execute(ctx, pipeline.Options{
		Source:        opts.source,
		InputPath:     input,
		ParserOpts:    parserOpts,
		Refresh:       opts.refresh,
		Target:        opts.target,
		OutputPath:    opts.output,
		GeneratorOpts: generatorOpts,
	})
	spinner.Stop()
	if err != nil {
		return err
	}

	printSuccess("Converted %s %s %s",
		StyleHighlight.Render(opts.source), iconArrow, StyleHighlight.Render(opts.target))
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.Stats.Warnings, res.CacheInfo.ParseHit)
	printFile(opts.output)
	if res.Stats.Warnings > 0 {
		printDetail("%d findings flagged for manual review", res.Stats.Warnings)
	}
	printNewline()
	printNextStep("Inspect the graph", fmt.Sprintf("%s inspect %s --source %s", appName, input, opts.source))

	return nil
}
