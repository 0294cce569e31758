package ir

// SchemaVersion is the serialized-form schema version this build of the
// entity set produces. The migration package owns the history of prior
// versions and the transforms between them.
const SchemaVersion = "1.2.0"

// NodeType classifies what a node represents. The set is closed: parsers
// map tool-specific constructs onto these types and fall back to
// NodeCustom for anything without a neutral equivalent.
type NodeType string

const (
	NodeRecipe    NodeType = "recipe"
	NodeResource  NodeType = "resource"
	NodeAttribute NodeType = "attribute"
	NodeVariable  NodeType = "variable"
	NodeGuard     NodeType = "guard"
	NodeHandler   NodeType = "handler"
	NodeAction    NodeType = "action"
	NodePolicy    NodeType = "policy"
	NodeTemplate  NodeType = "template"
	NodeFile      NodeType = "file"
	NodePackage   NodeType = "package"
	NodeService   NodeType = "service"
	NodeUser      NodeType = "user"
	NodeGroup     NodeType = "group"
	NodeCustom    NodeType = "custom"
)

// nodeTypes lists every valid NodeType in declaration order.
var nodeTypes = []NodeType{
	NodeRecipe, NodeResource, NodeAttribute, NodeVariable, NodeGuard,
	NodeHandler, NodeAction, NodePolicy, NodeTemplate, NodeFile,
	NodePackage, NodeService, NodeUser, NodeGroup, NodeCustom,
}

// Valid reports whether t is a member of the closed node type set.
func (t NodeType) Valid() bool {
	for _, nt := range nodeTypes {
		if t == nt {
			return true
		}
	}
	return false
}

// NodeTypes returns all valid node types in declaration order.
func NodeTypes() []NodeType {
	out := make([]NodeType, len(nodeTypes))
	copy(out, nodeTypes)
	return out
}

// SourceType identifies the tool a graph (or an entity's provenance)
// was parsed from.
type SourceType string

const (
	SourceChef      SourceType = "chef"
	SourcePuppet    SourceType = "puppet"
	SourceTerraform SourceType = "terraform"
	SourceCustom    SourceType = "custom"
)

// Valid reports whether s is a member of the closed source type set.
func (s SourceType) Valid() bool {
	switch s {
	case SourceChef, SourcePuppet, SourceTerraform, SourceCustom:
		return true
	}
	return false
}

// TargetType identifies the tool a graph is destined for.
type TargetType string

const (
	TargetAnsible   TargetType = "ansible"
	TargetTerraform TargetType = "terraform"
	TargetCustom    TargetType = "custom"
)

// Valid reports whether t is a member of the closed target type set.
func (t TargetType) Valid() bool {
	switch t {
	case TargetAnsible, TargetTerraform, TargetCustom:
		return true
	}
	return false
}

// GuardType classifies how a guard condition is evaluated.
type GuardType string

const (
	// GuardBoolean is a plain truthy expression in the source language.
	GuardBoolean GuardType = "boolean"
	// GuardShell runs a shell command; exit status decides the guard.
	GuardShell GuardType = "shell"
	// GuardInterpreter evaluates the condition in a named interpreter.
	GuardInterpreter GuardType = "interpreter"
)

// Valid reports whether g is a member of the closed guard type set.
func (g GuardType) Valid() bool {
	switch g {
	case GuardBoolean, GuardShell, GuardInterpreter:
		return true
	}
	return false
}
