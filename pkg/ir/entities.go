package ir

import "slices"

// Metadata records where an entity came from and how trustworthy the
// extraction was. Parsers attach one to most entities they produce so
// reviewers can trace generated output back to source lines.
type Metadata struct {
	SourceType      SourceType `json:"source_type,omitempty" bson:"source_type,omitempty"`
	SourceFile      string     `json:"source_file,omitempty" bson:"source_file,omitempty"`
	SourceLine      int        `json:"source_line,omitempty" bson:"source_line,omitempty"`
	OriginalID      string     `json:"original_id,omitempty" bson:"original_id,omitempty"`
	ConfidenceScore float64    `json:"confidence_score" bson:"confidence_score"` // extraction confidence in [0,1]
	RequiresReview  bool       `json:"requires_review" bson:"requires_review"`
	Notes           []string   `json:"notes,omitempty" bson:"notes,omitempty"`
}

// NewMetadata returns provenance metadata for an entity extracted from
// the given location, with full confidence. Parsers lower the score (and
// set RequiresReview) when an extraction is a guess.
func NewMetadata(source SourceType, file string, line int) Metadata {
	return Metadata{
		SourceType:      source,
		SourceFile:      file,
		SourceLine:      line,
		ConfidenceScore: 1.0,
	}
}

// AddNote appends a free-form provenance note.
func (m *Metadata) AddNote(note string) {
	m.Notes = append(m.Notes, note)
}

// Attribute is a single named value on a node or action. Value holds a
// scalar, mapping, sequence, or nil; TypeHint describes the intended
// type when the source declares one ("any" otherwise).
type Attribute struct {
	Name         string `json:"name" bson:"name"`
	Value        any    `json:"value" bson:"value"`
	TypeHint     string `json:"type_hint" bson:"type_hint"`
	Required     bool   `json:"required" bson:"required"`
	DefaultValue any    `json:"default_value,omitempty" bson:"default_value,omitempty"`
	Description  string `json:"description,omitempty" bson:"description,omitempty"`
}

// NewAttribute returns an attribute with the default "any" type hint.
func NewAttribute(name string, value any) *Attribute {
	return &Attribute{Name: name, Value: value, TypeHint: "any"}
}

// Guard is a condition attached to an action that decides whether the
// action runs. Negated inverts the condition (Chef's not_if, Puppet's
// unless).
type Guard struct {
	Condition string    `json:"condition" bson:"condition"`
	Type      GuardType `json:"type" bson:"type"`
	Negated   bool      `json:"negated" bson:"negated"`
	Metadata  Metadata  `json:"metadata" bson:"metadata"`
}

// NewGuard returns a guard over the given condition.
func NewGuard(condition string, guardType GuardType) *Guard {
	return &Guard{Condition: condition, Type: guardType}
}

// Action is one operation a node performs: install, start, create, and
// so on. Requires and Notifies carry node IDs for ordering and
// notification edges that generators translate into the target tool's
// equivalents.
type Action struct {
	Name       string                `json:"name" bson:"name"`
	Type       string                `json:"type" bson:"type"`
	Attributes map[string]*Attribute `json:"attributes,omitempty" bson:"attributes,omitempty"`
	Guards     []*Guard              `json:"guards,omitempty" bson:"guards,omitempty"`
	Requires   []string              `json:"requires,omitempty" bson:"requires,omitempty"`
	Notifies   []string              `json:"notifies,omitempty" bson:"notifies,omitempty"`
	Metadata   Metadata              `json:"metadata" bson:"metadata"`
}

// NewAction returns an action with an initialized attribute map.
func NewAction(name, actionType string) *Action {
	return &Action{
		Name:       name,
		Type:       actionType,
		Attributes: make(map[string]*Attribute),
	}
}

// AddAttribute sets the attribute under its name, replacing any previous
// value unconditionally.
func (a *Action) AddAttribute(attr *Attribute) {
	if a.Attributes == nil {
		a.Attributes = make(map[string]*Attribute)
	}
	a.Attributes[attr.Name] = attr
}

// AddGuard appends a guard. Guards keep insertion order; generators emit
// them in the order the source declared them.
func (a *Action) AddGuard(g *Guard) {
	a.Guards = append(a.Guards, g)
}

// Node is a vertex in the IR graph: one configuration unit (a package,
// a service, a file, a recipe, ...) with its actions, attributes, and
// the IDs of the nodes it depends on.
//
// The zero value is not usable; construct nodes with [NewNode] so the
// maps are initialized.
type Node struct {
	ID           string                `json:"node_id" bson:"node_id"`
	Type         NodeType              `json:"node_type" bson:"node_type"`
	Name         string                `json:"name" bson:"name"`
	SourceType   SourceType            `json:"source_type,omitempty" bson:"source_type,omitempty"`
	Actions      []*Action             `json:"actions,omitempty" bson:"actions,omitempty"`
	Attributes   map[string]*Attribute `json:"attributes,omitempty" bson:"attributes,omitempty"`
	Variables    map[string]any        `json:"variables,omitempty" bson:"variables,omitempty"`
	Dependencies []string              `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
	ParentID     string                `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Metadata     Metadata              `json:"metadata" bson:"metadata"`
	Tags         map[string]string     `json:"tags,omitempty" bson:"tags,omitempty"`
}

// NewNode returns a node with initialized maps and an empty dependency
// list. The ID must be unique within the graph the node is added to.
func NewNode(id string, nodeType NodeType, name string) *Node {
	return &Node{
		ID:         id,
		Type:       nodeType,
		Name:       name,
		Attributes: make(map[string]*Attribute),
		Variables:  make(map[string]any),
		Tags:       make(map[string]string),
	}
}

// AddAction appends an action. Actions keep insertion order.
func (n *Node) AddAction(a *Action) {
	n.Actions = append(n.Actions, a)
}

// AddAttribute sets the attribute under its name, replacing any previous
// value unconditionally.
func (n *Node) AddAttribute(attr *Attribute) {
	if n.Attributes == nil {
		n.Attributes = make(map[string]*Attribute)
	}
	n.Attributes[attr.Name] = attr
}

// SetVariable records a named value in the node's variable scope.
func (n *Node) SetVariable(name string, value any) {
	if n.Variables == nil {
		n.Variables = make(map[string]any)
	}
	n.Variables[name] = value
}

// AddDependency records that this node depends on the node with the
// given ID. Duplicates are ignored; first-seen order is kept. The ID is
// not required to resolve to an existing node at insertion time.
func (n *Node) AddDependency(id string) {
	if id == "" || slices.Contains(n.Dependencies, id) {
		return
	}
	n.Dependencies = append(n.Dependencies, id)
}

// SetTag records a free-form classification label on the node.
func (n *Node) SetTag(key, value string) {
	if n.Tags == nil {
		n.Tags = make(map[string]string)
	}
	n.Tags[key] = value
}
