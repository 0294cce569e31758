// Package chef parses Chef recipes into graphs.
//
// The parser is a line scraper, not a Ruby interpreter: it recognizes
// resource blocks, actions, guards, notifications, and include_recipe
// lines by pattern. Anything it cannot read with confidence is kept as
// a raw string and flagged for review in the node's provenance
// metadata.
package chef

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

// Tag is the registry tag for this parser.
const Tag = "chef"

// resourceTypes maps Chef resource words to graph node types. Words not
// listed here still parse, as custom nodes flagged for review.
var resourceTypes = map[string]ir.NodeType{
	"package":       ir.NodePackage,
	"apt_package":   ir.NodePackage,
	"yum_package":   ir.NodePackage,
	"gem_package":   ir.NodePackage,
	"service":       ir.NodeService,
	"systemd_unit":  ir.NodeService,
	"file":          ir.NodeFile,
	"cookbook_file": ir.NodeFile,
	"remote_file":   ir.NodeFile,
	"directory":     ir.NodeFile,
	"link":          ir.NodeFile,
	"template":      ir.NodeTemplate,
	"user":          ir.NodeUser,
	"group":         ir.NodeGroup,
	"execute":       ir.NodeAction,
	"bash":          ir.NodeAction,
	"script":        ir.NodeAction,
}

// defaultActions gives the implied action when a resource block has no
// action property, per the Chef resource reference.
var defaultActions = map[string]string{
	"package":       "install",
	"apt_package":   "install",
	"yum_package":   "install",
	"gem_package":   "install",
	"service":       "start",
	"systemd_unit":  "create",
	"file":          "create",
	"cookbook_file": "create",
	"remote_file":   "create",
	"directory":     "create",
	"link":          "create",
	"template":      "create",
	"user":          "create",
	"group":         "create",
	"execute":       "run",
	"bash":          "run",
	"script":        "run",
}

var (
	resourcePattern  = regexp.MustCompile(`^([a-z][a-z0-9_]*)\s+['"]([^'"]+)['"](\s+do)?\s*$`)
	actionPattern    = regexp.MustCompile(`^action\s+(.+)$`)
	guardPattern     = regexp.MustCompile(`^(not_if|only_if)\s+(.+)$`)
	notifyPattern    = regexp.MustCompile(`^(notifies|subscribes)\s+:([a-z_]+)\s*,\s*['"]([a-z_]+)\[([^\]]+)\]['"](?:\s*,\s*:([a-z_]+))?`)
	includePattern   = regexp.MustCompile(`^include_recipe\s+['"]([^'"]+)['"]`)
	variablePattern  = regexp.MustCompile(`^([a-z_][a-zA-Z0-9_]*)\s*=\s*(.+)$`)
	attributePattern = regexp.MustCompile(`^([a-z_][a-zA-Z0-9_]*)\s+(.+)$`)
	symbolPattern    = regexp.MustCompile(`:([a-z_]+)`)
	blockOpenPattern = regexp.MustCompile(`\bdo(\s*\|[^|]*\|)?\s*$`)
	heredocPattern   = regexp.MustCompile(`<<[-~]?['"]?([A-Z_]+)['"]?`)
)

// Parser reads Chef recipe files (.rb).
type Parser struct{}

// New returns a Chef recipe parser.
func New() *Parser { return &Parser{} }

func (p *Parser) SourceType() ir.SourceType { return ir.SourceChef }

// SupportedVersions lists the chef-client major versions the scraped
// syntax is known from.
func (p *Parser) SupportedVersions() []string {
	return []string{"15", "16", "17", "18"}
}

// Parse reads the recipe at path and returns its graph. Resources keep
// recipe order via insertion order; only subscriptions and includes add
// dependency edges.
func (p *Parser) Parse(path string, opts plugin.Options) (*ir.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "recipe %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open recipe %s", path)
	}
	defer f.Close()

	g := ir.NewGraph(ir.SourceChef, ir.TargetType(opts.String("target", "")))
	g.Metadata["source_file"] = path

	if err := scrapeRecipe(f, path, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the recipe without building a graph: the file must be
// readable and its do/end blocks balanced. Unknown resource words and
// empty recipes produce warnings.
func (p *Parser) Validate(path string) plugin.ValidationResult {
	result := plugin.NewValidationResult()

	f, err := os.Open(path)
	if err != nil {
		result.AddError(fmt.Sprintf("cannot open recipe: %v", err))
		return result
	}
	defer f.Close()

	var (
		depth     int
		resources int
		heredoc   string
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if heredoc != "" {
			if line == heredoc {
				heredoc = ""
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := heredocPattern.FindStringSubmatch(line); m != nil {
			heredoc = m[1]
		}
		if depth == 0 {
			if m := resourcePattern.FindStringSubmatch(line); m != nil {
				resources++
				if _, known := resourceTypes[m[1]]; !known && m[1] != "include_recipe" {
					result.AddWarning(fmt.Sprintf("unknown resource type %q", m[1]))
				}
			}
		}
		if blockOpenPattern.MatchString(line) {
			depth++
		} else if line == "end" {
			depth--
		}
	}
	if err := scanner.Err(); err != nil {
		result.AddError(fmt.Sprintf("read recipe: %v", err))
		return result
	}
	if depth != 0 {
		result.AddError("unbalanced do/end blocks")
	}
	if resources == 0 {
		result.AddWarning("no resources found")
	}
	return result
}

// notification is a pending notifies/subscribes edge, resolved when the
// resource block closes.
type notification struct {
	verb   string // restart, reload, ...
	target string // node ID of the referenced resource
	timing string // delayed, immediately, or empty
	invert bool   // true for subscribes
}

// resourceState accumulates one open resource block.
type resourceState struct {
	word     string
	node     *ir.Node
	actions  string // raw action property value, empty when implied
	guards   []*ir.Guard
	notices  []notification
	depth    int
	startLn  int
}

// scrapeRecipe scans the recipe line by line, building nodes under a
// recipe node named after the file.
func scrapeRecipe(r io.Reader, path string, g *ir.Graph) error {
	recipeName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	recipe := ir.NewNode("recipe."+recipeName, ir.NodeRecipe, recipeName)
	recipe.SourceType = ir.SourceChef
	recipe.Metadata = ir.NewMetadata(ir.SourceChef, path, 1)
	g.AddNode(recipe)

	var (
		res       *resourceState
		skipDepth int    // depth of non-resource blocks (if/each/ruby_block)
		heredoc   string // terminator of an open heredoc, empty otherwise
		lineNo    int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if heredoc != "" {
			if line == heredoc {
				heredoc = ""
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := heredocPattern.FindStringSubmatch(line); m != nil {
			heredoc = m[1]
		}

		if res != nil {
			if done := scanResourceLine(res, line, lineNo, path); done {
				closeResource(res, g)
				res = nil
			}
			continue
		}

		if skipDepth > 0 {
			if blockOpenPattern.MatchString(line) {
				skipDepth++
			} else if line == "end" {
				skipDepth--
			}
			continue
		}

		if m := includePattern.FindStringSubmatch(line); m != nil {
			recipe.AddDependency("recipe." + m[1])
			continue
		}
		if m := resourcePattern.FindStringSubmatch(line); m != nil {
			res = openResource(m[1], m[2], lineNo, path, recipe.ID)
			if m[3] == "" {
				closeResource(res, g)
				res = nil
			}
			continue
		}
		if m := variablePattern.FindStringSubmatch(line); m != nil {
			value, _ := parseRubyValue(m[2])
			recipe.SetVariable(m[1], value)
			continue
		}
		if blockOpenPattern.MatchString(line) {
			skipDepth++
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read recipe %s", path)
	}
	if res != nil || skipDepth != 0 {
		return errors.New(errors.ErrCodeFormat, "unbalanced do/end blocks in %s", path)
	}
	return nil
}

func openResource(word, name string, line int, path, parentID string) *resourceState {
	nodeType, known := resourceTypes[word]
	if !known {
		nodeType = ir.NodeCustom
	}

	node := ir.NewNode(word+"."+name, nodeType, name)
	node.SourceType = ir.SourceChef
	node.ParentID = parentID
	node.Metadata = ir.NewMetadata(ir.SourceChef, path, line)
	node.SetTag("chef_resource", word)
	if !known {
		node.Metadata.ConfidenceScore = 0.5
		node.Metadata.RequiresReview = true
		node.Metadata.AddNote(fmt.Sprintf("unknown resource type %q", word))
	}

	return &resourceState{word: word, node: node, depth: 1, startLn: line}
}

// scanResourceLine consumes one line inside an open resource block and
// reports whether the block closed.
func scanResourceLine(res *resourceState, line string, lineNo int, path string) bool {
	if line == "end" {
		res.depth--
		return res.depth == 0
	}
	if res.depth > 1 {
		if blockOpenPattern.MatchString(line) {
			res.depth++
		}
		return false
	}

	if m := actionPattern.FindStringSubmatch(line); m != nil {
		res.actions = m[1]
		return false
	}
	if m := guardPattern.FindStringSubmatch(line); m != nil {
		res.addGuard(m[1], m[2], lineNo, path)
		if blockOpenPattern.MatchString(m[2]) {
			res.depth++
		}
		return false
	}
	if m := notifyPattern.FindStringSubmatch(line); m != nil {
		res.notices = append(res.notices, notification{
			verb:   m[2],
			target: m[3] + "." + m[4],
			timing: m[5],
			invert: m[1] == "subscribes",
		})
		return false
	}
	if m := attributePattern.FindStringSubmatch(line); m != nil {
		value, hint := parseRubyValue(m[2])
		attr := ir.NewAttribute(m[1], value)
		attr.TypeHint = hint
		res.node.AddAttribute(attr)
		if hint == "expression" || hint == "heredoc" {
			res.node.Metadata.AddNote(fmt.Sprintf("attribute %q kept as raw %s", m[1], hint))
		}
		if blockOpenPattern.MatchString(m[2]) {
			res.depth++
		}
		return false
	}
	if blockOpenPattern.MatchString(line) {
		res.depth++
		res.node.Metadata.AddNote(fmt.Sprintf("unparsed block at line %d", lineNo))
		res.node.Metadata.RequiresReview = true
	}
	return false
}

func (res *resourceState) addGuard(kind, raw string, lineNo int, path string) {
	raw = strings.TrimSpace(raw)
	md := ir.NewMetadata(ir.SourceChef, path, lineNo)

	var guard *ir.Guard
	switch {
	case strings.HasPrefix(raw, "'"), strings.HasPrefix(raw, `"`):
		guard = ir.NewGuard(strings.Trim(raw, `'"`), ir.GuardShell)
	case strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}"):
		cond := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(raw, "{"), "}"))
		guard = ir.NewGuard(cond, ir.GuardInterpreter)
	case raw == "true", raw == "false":
		guard = ir.NewGuard(raw, ir.GuardBoolean)
	default:
		guard = ir.NewGuard(raw, ir.GuardInterpreter)
		md.ConfidenceScore = 0.5
		md.RequiresReview = true
		res.node.Metadata.RequiresReview = true
		res.node.Metadata.AddNote(fmt.Sprintf("%s guard at line %d kept as raw ruby", kind, lineNo))
	}
	guard.Negated = kind == "not_if"
	guard.Metadata = md
	res.guards = append(res.guards, guard)
}

// closeResource materializes the accumulated block: one action per verb
// (implied default when the block declared none), with the block's
// guards and notifications attached to each.
func closeResource(res *resourceState, g *ir.Graph) {
	verbs := parseActionVerbs(res.actions)
	if len(verbs) == 0 {
		verb := defaultActions[res.word]
		if verb == "" {
			verb = "apply"
		}
		verbs = []string{verb}
	}

	for _, verb := range verbs {
		action := ir.NewAction(verb, res.word)
		action.Metadata = ir.NewMetadata(res.node.SourceType, res.node.Metadata.SourceFile, res.startLn)
		for _, guard := range res.guards {
			action.AddGuard(guard)
		}
		for _, n := range res.notices {
			if n.invert {
				res.node.AddDependency(n.target)
				action.Metadata.AddNote(fmt.Sprintf("subscribes to %s (%s)", n.target, n.verb))
				continue
			}
			action.Notifies = append(action.Notifies, n.target)
			if n.timing == "immediately" {
				action.Metadata.AddNote(fmt.Sprintf("notifies %s immediately", n.target))
			}
		}
		res.node.AddAction(action)
	}

	if displaced := g.AddNode(res.node); displaced != nil {
		res.node.Metadata.AddNote(fmt.Sprintf("replaced earlier %s", displaced.ID))
	}
}

// parseActionVerbs reads an action property value: a single symbol or a
// symbol array.
func parseActionVerbs(raw string) []string {
	if raw == "" {
		return nil
	}
	var verbs []string
	for _, m := range symbolPattern.FindAllStringSubmatch(raw, -1) {
		verbs = append(verbs, m[1])
	}
	return verbs
}

// parseRubyValue coerces a property value literal to a Go value and a
// type hint. Non-literals (node attributes, method calls, heredocs)
// stay raw strings hinted as expressions.
func parseRubyValue(raw string) (any, string) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ","))

	switch {
	case raw == "true":
		return true, "boolean"
	case raw == "false":
		return false, "boolean"
	case raw == "nil":
		return nil, "any"
	}
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			s := raw[1 : len(raw)-1]
			if strings.Contains(s, "#{") {
				return s, "expression"
			}
			return s, "string"
		}
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i, "integer"
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, "float"
	}
	if strings.HasPrefix(raw, ":") && !strings.ContainsAny(raw, " ,") {
		return strings.TrimPrefix(raw, ":"), "symbol"
	}
	if strings.HasPrefix(raw, "[") {
		return raw, "array"
	}
	if strings.HasPrefix(raw, "{") {
		return raw, "hash"
	}
	if heredocPattern.MatchString(raw) {
		return raw, "heredoc"
	}
	return raw, "expression"
}
