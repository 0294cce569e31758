package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/graphio"
	"github.com/recastops/recast/pkg/migration"
	"github.com/recastops/recast/pkg/version"
)

// migrateOpts holds the command-line flags for the migrate command.
type migrateOpts struct {
	to     string // target schema version
	output string // output path, "-" for stdout
}

// migrateCommand creates the migrate command. It upgrades a serialized
// graph file across schema versions by chaining the registered
// single-step migrations, without hydrating the graph.
//
// Reading a graph through parse/convert/inspect migrates transparently;
// this command exists to rewrite stored envelopes in place so older
// files stop needing migration on every read.
func (c *CLI) migrateCommand() *cobra.Command {
	var opts migrateOpts

	cmd := &cobra.Command{
		Use:   "migrate [graph.json]",
		Short: "Upgrade a serialized graph to a newer schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMigrate(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.to, "to", migration.CurrentSchemaVersion, "target schema version")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file, - for stdout")

	return cmd
}

func (c *CLI) runMigrate(input string, opts migrateOpts) error {
	to, err := version.Parse(opts.to)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.ErrCodeNotFound, "graph file not found: %s", input)
		}
		return errors.Wrap(errors.ErrCodeIO, err, "read %s", input)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(errors.ErrCodeFormat, err, "decode %s", input)
	}
	if err := graphio.ValidateDocument(doc); err != nil {
		return err
	}

	raw, _ := doc["version"].(string)
	from, err := version.Parse(raw)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFormat, err, "document version %q", raw)
	}

	if from.Equal(to) {
		if !writingToStdout(opts.output) {
			printInfo("%s is already at schema version %s", input, to)
		}
	} else {
		doc, err = graphio.Upgrade(doc, from, to, migration.NewSchemaManager())
		if err != nil {
			return err
		}
	}

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "encode document")
	}

	if !writingToStdout(opts.output) && !from.Equal(to) {
		printSuccess("Migrated %s %s %s",
			StyleHighlight.Render(from.String()), iconArrow, StyleHighlight.Render(to.String()))
		printFile(opts.output)
	}
	return nil
}
