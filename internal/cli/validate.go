package cli

import (
	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/plugins"
)

// validateCommand creates the validate command, a syntax check of tool
// source without building a graph. The command exits non-zero when the
// source has errors; warnings alone do not fail it.
func (c *CLI) validateCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "validate [input]",
		Short: "Check infrastructure source for syntax problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args[0], source)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "source tool (default from config)")

	return cmd
}

func (c *CLI) runValidate(input, source string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if source == "" {
		source = cfg.Defaults.Source
	}

	registry := plugins.DefaultRegistry()
	parser, ok := registry.Parser(source)
	if !ok {
		return errors.New(errors.ErrCodeInvalidSource, "no parser registered for source %q", source)
	}

	result := parser.Validate(input)

	for _, w := range result.Warnings {
		printWarning("%s", w)
	}
	for _, e := range result.Errors {
		printError("%s", e)
	}

	if !result.Valid {
		return errors.New(errors.ErrCodeInvalidInput, "%s has %d validation errors", input, len(result.Errors))
	}

	printSuccess("%s is valid %s", StyleHighlight.Render(input), source)
	if len(result.Warnings) > 0 {
		printDetail("%d warnings", len(result.Warnings))
	}
	return nil
}
