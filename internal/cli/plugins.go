package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recastops/recast/pkg/plugin"
	"github.com/recastops/recast/pkg/plugins"
)

// pluginsCommand creates the plugins command, which lists every parser
// and generator in the built-in registry with the tool versions each
// one supports.
func (c *CLI) pluginsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered parsers and generators",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := plugins.DefaultRegistry().Info()

			fmt.Println(StyleTitle.Render("Parsers"))
			printBindings(info, "parser")
			printNewline()
			fmt.Println(StyleTitle.Render("Generators"))
			printBindings(info, "generator")
			return nil
		},
	}
}

// printBindings prints the registry entries of one kind.
func printBindings(info []plugin.Binding, kind string) {
	for _, b := range info {
		if b.Kind != kind {
			continue
		}
		versions := strings.Join(b.Versions, ", ")
		if versions == "" {
			versions = "any"
		}
		printKeyValue(b.Tag, versions)
	}
}
