// Package terraform generates Terraform configurations from graphs.
//
// Resource nodes become resource and data blocks, variable nodes become
// variable blocks, and dependencies surface as depends_on entries unless
// an attribute expression already references the target. Attribute
// values stored as raw expression source are emitted verbatim, so a
// parse-generate round trip keeps references intact.
package terraform

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

// Tag is the registry tag for this generator.
const Tag = "terraform"

// Generator writes Terraform configuration files.
type Generator struct{}

// New returns a Terraform configuration generator.
func New() *Generator { return &Generator{} }

func (g *Generator) TargetType() ir.TargetType { return ir.TargetTerraform }

// SupportedVersions lists the Terraform language versions the emitted
// syntax targets.
func (g *Generator) SupportedVersions() []string {
	return []string{"1.5", "1.6", "1.7", "1.8", "1.9"}
}

// ValidateIR reports whether the graph can be generated. Terraform is
// declarative, so node types describing imperative steps (packages,
// services, commands) are issues, and guards cannot be carried over.
func (g *Generator) ValidateIR(graph *ir.Graph) plugin.IRValidationResult {
	result := plugin.NewIRValidationResult()

	for _, node := range graph.Nodes() {
		switch node.Type {
		case ir.NodeResource, ir.NodeVariable, ir.NodeRecipe, ir.NodeAttribute:
		case ir.NodeCustom:
			if node.Tags["tf_block"] != "provider" {
				result.AddIssue(fmt.Sprintf("node %s: custom node has no terraform equivalent", node.ID))
				continue
			}
		default:
			result.AddIssue(fmt.Sprintf("node %s: type %q has no terraform equivalent", node.ID, node.Type))
			continue
		}
		if node.Metadata.RequiresReview {
			result.AddWarning(fmt.Sprintf("node %s is flagged for review", node.ID))
		}
		for _, action := range node.Actions {
			for _, guard := range action.Guards {
				result.AddWarning(fmt.Sprintf("node %s: guard %q dropped, terraform has no conditional execution", node.ID, guard.Condition))
			}
		}
	}
	for id, missing := range graph.ValidateDependencies() {
		result.AddWarning(fmt.Sprintf("node %s depends on unknown nodes %v", id, missing))
	}
	return result
}

// Generate writes the configuration for the graph to outputPath. Blocks
// are grouped the way a hand-written root module lays them out:
// settings, providers, variables, locals, data sources, resources,
// modules, outputs.
func (g *Generator) Generate(graph *ir.Graph, outputPath string, opts plugin.Options) error {
	if v := g.ValidateIR(graph); !v.Compatible {
		return errors.New(errors.ErrCodeIncompatibleIR, "graph %s: %s", graph.ID, strings.Join(v.Issues, "; "))
	}
	if _, err := graph.TopologicalOrder(); err != nil {
		return err
	}

	file := hclwrite.NewEmptyFile()
	body := file.Body()

	writeSettings(body, graph)

	var providers, variables, configs, datas, resources, modules, outputs []*ir.Node
	for _, node := range graph.Nodes() {
		switch node.Type {
		case ir.NodeCustom:
			providers = append(providers, node)
		case ir.NodeVariable:
			variables = append(variables, node)
		case ir.NodeRecipe:
			if node.Tags["tf_block"] == "module" {
				modules = append(modules, node)
			} else {
				configs = append(configs, node)
			}
		case ir.NodeResource:
			if node.Tags["tf_mode"] == "data" {
				datas = append(datas, node)
			} else {
				resources = append(resources, node)
			}
		case ir.NodeAttribute:
			outputs = append(outputs, node)
		}
	}

	for _, node := range providers {
		block := appendBlock(body, "provider", node.Name)
		writeAttributes(block.Body(), node)
	}
	for _, node := range variables {
		writeVariable(body, node)
	}
	writeLocals(body, configs)
	for _, node := range datas {
		block := appendBlock(body, "data", resourceType(node), node.Name)
		writeAttributes(block.Body(), node)
		writeDependsOn(block.Body(), graph, node)
	}
	for _, node := range resources {
		block := appendBlock(body, "resource", resourceType(node), node.Name)
		writeAttributes(block.Body(), node)
		writeDependsOn(block.Body(), graph, node)
	}
	for _, node := range modules {
		block := appendBlock(body, "module", node.Name)
		writeAttributes(block.Body(), node)
		writeDependsOn(block.Body(), graph, node)
	}
	for _, node := range outputs {
		block := appendBlock(body, "output", node.Name)
		writeAttributes(block.Body(), node)
	}

	if err := os.WriteFile(outputPath, hclwrite.Format(file.Bytes()), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", outputPath)
	}
	return nil
}

// writeSettings emits the terraform block when the graph carries
// version or provider requirements.
func writeSettings(body *hclwrite.Body, graph *ir.Graph) {
	version, _ := graph.Metadata["required_version"].(string)
	providers, _ := graph.Metadata["required_providers"].(map[string]any)
	if version == "" && len(providers) == 0 {
		return
	}

	block := body.AppendNewBlock("terraform", nil)
	if version != "" {
		block.Body().SetAttributeValue("required_version", cty.StringVal(version))
	}
	if len(providers) > 0 {
		inner := block.Body().AppendNewBlock("required_providers", nil)
		for _, name := range sortedKeys(providers) {
			inner.Body().SetAttributeValue(name, ctyFrom(providers[name]))
		}
	}
	body.AppendNewline()
}

// writeVariable emits a variable block from the node's single "value"
// attribute: type hint, default, and description.
func writeVariable(body *hclwrite.Body, node *ir.Node) {
	block := appendBlock(body, "variable", node.Name)
	attr := node.Attributes["value"]
	if attr == nil {
		return
	}
	if attr.TypeHint != "" {
		block.Body().SetAttributeRaw("type", rawTokens(attr.TypeHint))
	}
	if !attr.Required {
		block.Body().SetAttributeValue("default", ctyFrom(attr.DefaultValue))
	}
	if attr.Description != "" {
		block.Body().SetAttributeValue("description", cty.StringVal(attr.Description))
	}
}

// writeLocals merges the variables of every container node into one
// locals block, sorted by name.
func writeLocals(body *hclwrite.Body, configs []*ir.Node) {
	merged := map[string]any{}
	for _, node := range configs {
		for name, value := range node.Variables {
			merged[name] = value
		}
	}
	if len(merged) == 0 {
		return
	}
	block := body.AppendNewBlock("locals", nil)
	for _, name := range sortedKeys(merged) {
		block.Body().SetAttributeValue(name, ctyFrom(merged[name]))
	}
	body.AppendNewline()
}

// writeAttributes emits the node's attributes in sorted order.
// Expression-hinted values are written as raw source, block-hinted
// values as nested blocks, and everything else as literals.
func writeAttributes(body *hclwrite.Body, node *ir.Node) {
	names := sortedKeys(node.Attributes)
	for _, name := range names {
		attr := node.Attributes[name]
		switch attr.TypeHint {
		case "expression":
			if src, ok := attr.Value.(string); ok {
				body.SetAttributeRaw(name, rawTokens(src))
				continue
			}
			body.SetAttributeValue(name, ctyFrom(attr.Value))
		case "block":
		default:
			body.SetAttributeValue(name, ctyFrom(attr.Value))
		}
	}
	for _, name := range names {
		attr := node.Attributes[name]
		if attr.TypeHint != "block" {
			continue
		}
		if src, ok := attr.Value.(string); ok {
			body.AppendUnstructuredTokens(rawTokens(src + "\n"))
		}
	}
}

// writeDependsOn emits a depends_on list for dependencies no attribute
// expression already references. Parsed graphs carry implicit references
// as dependencies too, and terraform derives those on its own.
func writeDependsOn(body *hclwrite.Body, graph *ir.Graph, node *ir.Node) {
	var explicit []string
	for _, dep := range node.Dependencies {
		if dep == node.ParentID || strings.HasPrefix(dep, "config.") {
			continue
		}
		if referencedInAttributes(node, dep) {
			continue
		}
		explicit = append(explicit, dep)
	}
	if len(explicit) == 0 {
		return
	}

	elems := make([]hclwrite.Tokens, 0, len(explicit))
	for _, dep := range explicit {
		elems = append(elems, hclwrite.TokensForTraversal(traversalFor(dep)))
	}
	body.SetAttributeRaw("depends_on", hclwrite.TokensForTuple(elems))
}

// referencedInAttributes reports whether the dependency's address
// appears in any expression or block attribute of the node.
func referencedInAttributes(node *ir.Node, dep string) bool {
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(dep) + `\b`)
	for _, attr := range node.Attributes {
		if attr.TypeHint != "expression" && attr.TypeHint != "block" {
			continue
		}
		if src, ok := attr.Value.(string); ok && pattern.MatchString(src) {
			return true
		}
	}
	return false
}

// resourceType returns the terraform type label for a resource node,
// preferring the tag the parser set and falling back to the node ID.
func resourceType(node *ir.Node) string {
	if t := node.Tags["tf_type"]; t != "" {
		return t
	}
	parts := strings.Split(strings.TrimPrefix(node.ID, "data."), ".")
	return parts[0]
}

func appendBlock(body *hclwrite.Body, typ string, labels ...string) *hclwrite.Block {
	block := body.AppendNewBlock(typ, labels)
	body.AppendNewline()
	return block
}

func traversalFor(address string) hcl.Traversal {
	parts := strings.Split(address, ".")
	traversal := hcl.Traversal{hcl.TraverseRoot{Name: parts[0]}}
	for _, part := range parts[1:] {
		traversal = append(traversal, hcl.TraverseAttr{Name: part})
	}
	return traversal
}

// rawTokens wraps expression source in a single opaque token; the final
// hclwrite.Format pass normalizes its layout.
func rawTokens(src string) hclwrite.Tokens {
	return hclwrite.Tokens{{Type: hclsyntax.TokenIdent, Bytes: []byte(src)}}
}

// ctyFrom converts a plain Go value to cty, the reverse of the parser's
// conversion. Unknown kinds degrade to their string form.
func ctyFrom(v any) cty.Value {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case string:
		return cty.StringVal(val)
	case bool:
		return cty.BoolVal(val)
	case int:
		return cty.NumberIntVal(int64(val))
	case int64:
		return cty.NumberIntVal(val)
	case float64:
		return cty.NumberFloatVal(val)
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal
		}
		elems := make([]cty.Value, len(val))
		for i, e := range val {
			elems[i] = ctyFrom(e)
		}
		return cty.TupleVal(elems)
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, e := range val {
			attrs[k] = ctyFrom(e)
		}
		return cty.ObjectVal(attrs)
	default:
		return cty.StringVal(fmt.Sprintf("%v", val))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
