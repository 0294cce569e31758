// Package render visualizes graphs as node-link diagrams.
//
// # Overview
//
// This package produces directed graph visualizations using Graphviz:
// nodes appear as boxes colored by type, solid arrows are dependencies,
// and dashed arrows are notifications. It also provides generic format
// conversion from SVG to PDF and PNG.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := render.ToDOT(g, render.Options{Detailed: false})
//	svg, err := render.RenderSVG(dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := render.RenderPDF(dot)
//	png, err := render.RenderPNG(dot, 2.0)  // 2x scale
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// The generated DOT uses top-to-bottom layout (rankdir=TB), so a
// converted recipe reads in execution order: prerequisites sit above
// the nodes that depend on them. Nodes whose extraction is flagged for
// review render with dashed outlines.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package render
