package render

import (
	"bytes"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/recastops/recast/pkg/ir"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes type, provenance, and actions in node labels.
	// When false, only the node ID is shown.
	Detailed bool
}

// fillColors keys node fill on type so a converted graph reads at a
// glance: containers gold, packages blue, services salmon, files green.
var fillColors = map[ir.NodeType]string{
	ir.NodeRecipe:    "gold",
	ir.NodePackage:   "lightblue",
	ir.NodeService:   "lightsalmon",
	ir.NodeFile:      "palegreen",
	ir.NodeTemplate:  "palegreen",
	ir.NodeUser:      "plum",
	ir.NodeGroup:     "plum",
	ir.NodeResource:  "lightsteelblue",
	ir.NodeVariable:  "lightyellow",
	ir.NodeAttribute: "lightyellow",
	ir.NodeAction:    "khaki",
}

// ToDOT converts a graph to Graphviz DOT format. The resulting DOT
// string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Solid arrows are dependencies (prerequisite first), dashed arrows are
// notifications. Nodes flagged for review render with dashed outlines.
func ToDOT(g *ir.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes() {
		for _, dep := range n.Dependencies {
			if _, ok := g.Node(dep); ok {
				fmt.Fprintf(&buf, "  %q -> %q;\n", dep, n.ID)
			}
		}
		for _, action := range n.Actions {
			for _, target := range action.Notifies {
				if _, ok := g.Node(target); ok {
					fmt.Fprintf(&buf, "  %q -> %q [style=dashed, label=\"notify\"];\n", n.ID, target)
				}
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *ir.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}

	parts := []string{string(n.Type)}
	if n.Metadata.SourceFile != "" {
		parts = append(parts, fmt.Sprintf("%s:%d", filepath.Base(n.Metadata.SourceFile), n.Metadata.SourceLine))
	}
	if names := actionNames(n); len(names) > 0 {
		parts = append(parts, "actions: "+strings.Join(names, ", "))
	}
	for _, k := range slices.Sorted(maps.Keys(n.Tags)) {
		parts = append(parts, fmt.Sprintf("%s: %s", k, n.Tags[k]))
	}

	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *ir.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if shape := shapeFor(n.Type); shape != "" {
		attrs = append(attrs, "shape="+shape)
	}
	if color, ok := fillColors[n.Type]; ok {
		attrs = append(attrs, "fillcolor="+color)
	}
	if n.Metadata.RequiresReview {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return attrs
}

func shapeFor(t ir.NodeType) string {
	switch t {
	case ir.NodeRecipe:
		return "folder"
	case ir.NodeVariable, ir.NodeAttribute:
		return "ellipse"
	case ir.NodeCustom:
		return "note"
	default:
		return ""
	}
}

func actionNames(n *ir.Node) []string {
	names := make([]string, 0, len(n.Actions))
	for _, action := range n.Actions {
		names = append(names, action.Name)
	}
	return names
}
