// Package terraform parses Terraform configurations into graphs.
//
// Unlike the chef and puppet scrapers this parser reads real HCL:
// resource, data, variable, output, module, provider, and locals blocks
// become nodes, and both depends_on and implicit expression references
// become dependency edges. Expressions that cannot be statically
// evaluated are kept as raw source text.
package terraform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

// Tag is the registry tag for this parser.
const Tag = "terraform"

// Parser reads Terraform configuration files (.tf).
type Parser struct{}

// New returns a Terraform configuration parser.
func New() *Parser { return &Parser{} }

func (p *Parser) SourceType() ir.SourceType { return ir.SourceTerraform }

// SupportedVersions lists the Terraform language versions the parser
// understands.
func (p *Parser) SupportedVersions() []string {
	return []string{"1.5", "1.6", "1.7", "1.8", "1.9"}
}

// Parse reads the configuration at path and returns its graph.
func (p *Parser) Parse(path string, opts plugin.Options) (*ir.Graph, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "configuration %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read configuration %s", path)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.New(errors.ErrCodeFormat, "parse %s: %s", path, diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, errors.New(errors.ErrCodeFormat, "%s is not native HCL syntax", path)
	}

	g := ir.NewGraph(ir.SourceTerraform, ir.TargetType(opts.String("target", "")))
	g.Metadata["source_file"] = path

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	config := ir.NewNode("config."+name, ir.NodeRecipe, name)
	config.SourceType = ir.SourceTerraform
	config.Metadata = ir.NewMetadata(ir.SourceTerraform, path, 1)
	g.AddNode(config)

	w := &walker{graph: g, config: config, path: path, src: file.Bytes}
	for _, block := range body.Blocks {
		w.walkBlock(block)
	}
	return g, nil
}

// Validate parses the configuration and reports HCL diagnostics as
// errors. An empty configuration produces a warning.
func (p *Parser) Validate(path string) plugin.ValidationResult {
	result := plugin.NewValidationResult()

	if _, err := os.Stat(path); err != nil {
		result.AddError(fmt.Sprintf("cannot read configuration: %v", err))
		return result
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	for _, diag := range diags {
		if diag.Severity == hcl.DiagError {
			result.AddError(diag.Error())
		} else {
			result.AddWarning(diag.Error())
		}
	}
	if result.Valid && file != nil {
		if body, ok := file.Body.(*hclsyntax.Body); ok && len(body.Blocks) == 0 && len(body.Attributes) == 0 {
			result.AddWarning("no blocks found")
		}
	}
	return result
}

type walker struct {
	graph  *ir.Graph
	config *ir.Node
	path   string
	src    []byte
}

func (w *walker) walkBlock(block *hclsyntax.Block) {
	switch block.Type {
	case "resource":
		if len(block.Labels) == 2 {
			w.addResource(block.Labels[0]+"."+block.Labels[1], block, "")
			return
		}
	case "data":
		if len(block.Labels) == 2 {
			w.addResource("data."+block.Labels[0]+"."+block.Labels[1], block, "data")
			return
		}
	case "variable":
		if len(block.Labels) == 1 {
			w.addVariable(block)
			return
		}
	case "output":
		if len(block.Labels) == 1 {
			w.addOutput(block)
			return
		}
	case "module":
		if len(block.Labels) == 1 {
			w.addModule(block)
			return
		}
	case "provider":
		if len(block.Labels) == 1 {
			w.addProvider(block)
			return
		}
	case "locals":
		w.addLocals(block)
		return
	case "terraform":
		w.addSettings(block)
		return
	default:
		w.config.Metadata.AddNote(fmt.Sprintf("skipped %s block at line %d", block.Type, blockLine(block)))
		return
	}
	w.config.Metadata.AddNote(fmt.Sprintf("malformed %s block at line %d", block.Type, blockLine(block)))
}

// addResource handles resource and data blocks. The block's labels give
// terraform's own address (aws_instance.web, data.aws_ami.ubuntu),
// which doubles as the node ID.
func (w *walker) addResource(id string, block *hclsyntax.Block, mode string) {
	tfType := block.Labels[0]

	node := ir.NewNode(id, ir.NodeResource, block.Labels[1])
	node.SourceType = ir.SourceTerraform
	node.ParentID = w.config.ID
	node.Metadata = ir.NewMetadata(ir.SourceTerraform, w.path, blockLine(block))
	node.SetTag("tf_type", tfType)
	if mode != "" {
		node.SetTag("tf_mode", mode)
	}

	w.fillAttributes(node, block.Body, map[string]bool{"depends_on": true})
	w.linkReferences(node, block.Body)

	action := ir.NewAction("apply", tfType)
	action.Metadata = ir.NewMetadata(ir.SourceTerraform, w.path, blockLine(block))
	node.AddAction(action)

	w.graph.AddNode(node)
}

// addVariable turns a variable block into a variable node carrying a
// single "value" attribute: its declared type, default, and
// description.
func (w *walker) addVariable(block *hclsyntax.Block) {
	name := block.Labels[0]
	node := ir.NewNode("var."+name, ir.NodeVariable, name)
	node.SourceType = ir.SourceTerraform
	node.ParentID = w.config.ID
	node.Metadata = ir.NewMetadata(ir.SourceTerraform, w.path, blockLine(block))

	attr := ir.NewAttribute("value", nil)
	attr.Required = true
	if a, ok := block.Body.Attributes["type"]; ok {
		attr.TypeHint = w.exprSource(a.Expr)
	}
	if a, ok := block.Body.Attributes["default"]; ok {
		if v, ok := w.staticValue(a.Expr); ok {
			attr.DefaultValue = v
		} else {
			attr.DefaultValue = w.exprSource(a.Expr)
		}
		attr.Required = false
	}
	if a, ok := block.Body.Attributes["description"]; ok {
		if v, diags := a.Expr.Value(nil); !diags.HasErrors() && v.Type() == cty.String {
			attr.Description = v.AsString()
		}
	}
	node.AddAttribute(attr)

	w.graph.AddNode(node)
}

func (w *walker) addOutput(block *hclsyntax.Block) {
	name := block.Labels[0]
	node := ir.NewNode("output."+name, ir.NodeAttribute, name)
	node.SourceType = ir.SourceTerraform
	node.ParentID = w.config.ID
	node.Metadata = ir.NewMetadata(ir.SourceTerraform, w.path, blockLine(block))
	node.SetTag("tf_block", "output")

	w.fillAttributes(node, block.Body, nil)
	w.linkReferences(node, block.Body)

	w.graph.AddNode(node)
}

func (w *walker) addModule(block *hclsyntax.Block) {
	name := block.Labels[0]
	node := ir.NewNode("module."+name, ir.NodeRecipe, name)
	node.SourceType = ir.SourceTerraform
	node.ParentID = w.config.ID
	node.Metadata = ir.NewMetadata(ir.SourceTerraform, w.path, blockLine(block))
	node.SetTag("tf_block", "module")

	w.fillAttributes(node, block.Body, map[string]bool{"depends_on": true})
	w.linkReferences(node, block.Body)

	w.graph.AddNode(node)
}

func (w *walker) addProvider(block *hclsyntax.Block) {
	name := block.Labels[0]
	node := ir.NewNode("provider."+name, ir.NodeCustom, name)
	node.SourceType = ir.SourceTerraform
	node.ParentID = w.config.ID
	node.Metadata = ir.NewMetadata(ir.SourceTerraform, w.path, blockLine(block))
	node.SetTag("tf_block", "provider")

	w.fillAttributes(node, block.Body, nil)

	w.graph.AddNode(node)
}

// addLocals stores each local as a variable on the config node.
func (w *walker) addLocals(block *hclsyntax.Block) {
	for _, name := range sortedAttrNames(block.Body.Attributes) {
		attr := block.Body.Attributes[name]
		if v, ok := w.staticValue(attr.Expr); ok {
			w.config.SetVariable(name, v)
		} else {
			w.config.SetVariable(name, w.exprSource(attr.Expr))
		}
	}
}

// addSettings records terraform-block settings as graph metadata.
func (w *walker) addSettings(block *hclsyntax.Block) {
	if a, ok := block.Body.Attributes["required_version"]; ok {
		if v, diags := a.Expr.Value(nil); !diags.HasErrors() && v.Type() == cty.String {
			w.graph.Metadata["required_version"] = v.AsString()
		}
	}
	for _, inner := range block.Body.Blocks {
		if inner.Type != "required_providers" {
			continue
		}
		providers := make(map[string]any)
		for _, name := range sortedAttrNames(inner.Body.Attributes) {
			if v, ok := w.staticValue(inner.Body.Attributes[name].Expr); ok {
				providers[name] = v
			}
		}
		if len(providers) > 0 {
			w.graph.Metadata["required_providers"] = providers
		}
	}
}

// fillAttributes copies the body's attributes onto the node. Statically
// evaluable expressions become Go values; everything else keeps its raw
// source hinted as an expression. Nested blocks are kept whole as raw
// source under the block type's name.
func (w *walker) fillAttributes(node *ir.Node, body *hclsyntax.Body, skip map[string]bool) {
	for _, name := range sortedAttrNames(body.Attributes) {
		if skip[name] {
			continue
		}
		expr := body.Attributes[name].Expr
		attr := ir.NewAttribute(name, nil)
		if v, ok := w.staticValue(expr); ok {
			attr.Value = v
			attr.TypeHint = hintFor(v)
		} else {
			attr.Value = w.exprSource(expr)
			attr.TypeHint = "expression"
		}
		node.AddAttribute(attr)
	}

	for _, inner := range body.Blocks {
		attr := ir.NewAttribute(inner.Type, w.blockSource(inner))
		attr.TypeHint = "block"
		node.AddAttribute(attr)
	}
}

// linkReferences adds a dependency for every resolvable reference in
// the body, depends_on and implicit alike.
func (w *walker) linkReferences(node *ir.Node, body *hclsyntax.Body) {
	for _, name := range sortedAttrNames(body.Attributes) {
		for _, traversal := range body.Attributes[name].Expr.Variables() {
			if ref := refFromTraversal(traversal); ref != "" && ref != node.ID {
				node.AddDependency(ref)
			}
		}
	}
	for _, inner := range body.Blocks {
		w.linkReferences(node, inner.Body)
	}
}

// refFromTraversal maps an expression traversal to the node ID it
// refers to, or empty when the root is not addressable (locals,
// functions arguments, loop variables).
func refFromTraversal(t hcl.Traversal) string {
	if len(t) < 2 {
		return ""
	}
	root := t.RootName()
	switch root {
	case "local", "each", "count", "path", "terraform", "self", "provider":
		return ""
	case "data":
		if len(t) < 3 {
			return ""
		}
		typeAttr, ok1 := t[1].(hcl.TraverseAttr)
		nameAttr, ok2 := t[2].(hcl.TraverseAttr)
		if !ok1 || !ok2 {
			return ""
		}
		return "data." + typeAttr.Name + "." + nameAttr.Name
	case "var", "module":
		if attr, ok := t[1].(hcl.TraverseAttr); ok {
			return root + "." + attr.Name
		}
		return ""
	default:
		// bare resource reference: <type>.<name>
		if attr, ok := t[1].(hcl.TraverseAttr); ok {
			return root + "." + attr.Name
		}
		return ""
	}
}

// staticValue evaluates the expression without a context and converts
// the result to a Go value. References and function calls fail and the
// caller falls back to raw source.
func (w *walker) staticValue(expr hcl.Expression) (any, bool) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, false
	}
	return ctyToGo(val)
}

// ctyToGo converts a known cty value to plain Go types: strings, bools,
// ints or floats, []any, and map[string]any.
func ctyToGo(val cty.Value) (any, bool) {
	if !val.IsKnown() || val.IsNull() {
		return nil, true
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), true
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return int(i), true
		}
		f, _ := bf.Float64()
		return f, true
	case ty == cty.Bool:
		return val.True(), true
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			converted, ok := ctyToGo(v)
			if !ok {
				return nil, false
			}
			out = append(out, converted)
		}
		return out, true
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			converted, ok := ctyToGo(v)
			if !ok {
				return nil, false
			}
			out[k.AsString()] = converted
		}
		return out, true
	}
	return nil, false
}

func hintFor(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int:
		return "integer"
	case float64:
		return "float"
	case []any:
		return "array"
	case map[string]any:
		return "hash"
	default:
		return "any"
	}
}

func (w *walker) exprSource(expr hcl.Expression) string {
	return strings.TrimSpace(string(rangeBytes(w.src, expr.Range())))
}

func (w *walker) blockSource(block *hclsyntax.Block) string {
	return strings.TrimSpace(string(rangeBytes(w.src, block.Range())))
}

func rangeBytes(src []byte, rng hcl.Range) []byte {
	if rng.Start.Byte < 0 || rng.End.Byte > len(src) || rng.Start.Byte > rng.End.Byte {
		return nil
	}
	return src[rng.Start.Byte:rng.End.Byte]
}

func blockLine(block *hclsyntax.Block) int {
	return block.TypeRange.Start.Line
}

func sortedAttrNames(attrs hclsyntax.Attributes) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
