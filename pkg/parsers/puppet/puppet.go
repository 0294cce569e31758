// Package puppet parses Puppet manifests into graphs.
//
// Like the chef parser this is a pattern scraper: resource declarations,
// parameters, metaparameters, classes, and variables are recognized line
// by line. Puppet's ordering metaparameters map onto the graph directly:
// require and subscribe become dependencies of the declaring node, before
// and notify become dependencies of the referenced node.
package puppet

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
const Tag = "puppet"

var resourceTypes = map[string]ir.NodeType{
	"package": ir.NodePackage,
	"service": ir.NodeService,
	"file":    ir.NodeFile,
	"user":    ir.NodeUser,
	"group":   ir.NodeGroup,
	"exec":    ir.NodeAction,
	"cron":    ir.NodeCustom,
	"mount":   ir.NodeCustom,
	"notify":  ir.NodeCustom,
}

var defaultActions = map[string]string{
	"package": "install",
	"service": "start",
	"file":    "create",
	"user":    "create",
	"group":   "create",
	"exec":    "run",
}

var (
	resourcePattern = regexp.MustCompile(`^([a-z][a-z0-9_]*)\s*\{\s*['"]([^'"]+)['"]\s*:\s*$`)
	paramPattern    = regexp.MustCompile(`^([a-z_][a-zA-Z0-9_]*)\s*=>\s*(.+?),?\s*$`)
	classPattern    = regexp.MustCompile(`^class\s+([a-z][a-zA-Z0-9_:]*)(\s*\([^)]*\))?\s*(inherits\s+[a-zA-Z0-9_:]+\s*)?\{\s*$`)
	variablePattern = regexp.MustCompile(`^\$([a-z_][a-zA-Z0-9_]*)\s*=\s*(.+)$`)
	includePattern  = regexp.MustCompile(`^(?:include|contain)\s+([a-z][a-zA-Z0-9_:]*)\s*$`)
	refPattern      = regexp.MustCompile(`([A-Z][A-Za-z0-9_:]*)\[['"]([^'"]+)['"]\]`)
)

// Parser reads Puppet manifest files (.pp).
type Parser struct{}

// New returns a Puppet manifest parser.
func New() *Parser { return &Parser{} }

func (p *Parser) SourceType() ir.SourceType { return ir.SourcePuppet }

// SupportedVersions lists the Puppet major versions the scraped syntax
// is known from.
func (p *Parser) SupportedVersions() []string {
	return []string{"6", "7", "8"}
}

// Parse reads the manifest at path and returns its graph. Resources
// keep manifest order via insertion order; ordering metaparameters add
// explicit dependency edges on top.
func (p *Parser) Parse(path string, opts plugin.Options) (*ir.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "manifest %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open manifest %s", path)
	}
	defer f.Close()

	g := ir.NewGraph(ir.SourcePuppet, ir.TargetType(opts.String("target", "")))
	g.Metadata["source_file"] = path

	if err := scrapeManifest(f, path, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that the manifest is readable and its braces are
// balanced. Unknown resource words and empty manifests produce
// warnings.
func (p *Parser) Validate(path string) plugin.ValidationResult {
	result := plugin.NewValidationResult()

	f, err := os.Open(path)
	if err != nil {
		result.AddError(fmt.Sprintf("cannot open manifest: %v", err))
		return result
	}
	defer f.Close()

	depth := 0
	resources := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := resourcePattern.FindStringSubmatch(line); m != nil {
			resources++
			if _, known := resourceTypes[m[1]]; !known {
				result.AddWarning(fmt.Sprintf("unknown resource type %q", m[1]))
			}
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
	}
	if err := scanner.Err(); err != nil {
		result.AddError(fmt.Sprintf("read manifest: %v", err))
		return result
	}
	if depth != 0 {
		result.AddError("unbalanced braces")
	}
	if resources == 0 {
		result.AddWarning("no resources found")
	}
	return result
}

// reverseEdge is a before/notify metaparameter waiting for its target
// node: target ends up depending on source.
type reverseEdge struct {
	target string
	source string
	notify bool
}

type resourceState struct {
	word    string
	node    *ir.Node
	ensure  string
	enable  bool
	guards  []*ir.Guard
	reverse []reverseEdge
	startLn int
}

type manifestScanner struct {
	graph   *ir.Graph
	path    string
	scopes  []*ir.Node // manifest node, then enclosing classes
	skip    int        // depth of non-resource blocks (if/case/unless)
	pending []reverseEdge
}

func scrapeManifest(r io.Reader, path string, g *ir.Graph) error {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	manifest := ir.NewNode("manifest."+name, ir.NodeRecipe, name)
	manifest.SourceType = ir.SourcePuppet
	manifest.Metadata = ir.NewMetadata(ir.SourcePuppet, path, 1)
	g.AddNode(manifest)

	ms := &manifestScanner{graph: g, path: path, scopes: []*ir.Node{manifest}}

	var (
		res    *resourceState
		lineNo int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if res != nil {
			if strings.HasPrefix(line, "}") {
				ms.finishResource(res)
				res = nil
				continue
			}
			scanParam(res, line, lineNo, path, ms)
			continue
		}

		if ms.skip > 0 {
			ms.skip += strings.Count(line, "{") - strings.Count(line, "}")
			if ms.skip < 0 {
				ms.skip = 0
			}
			continue
		}

		switch {
		case classPattern.MatchString(line):
			m := classPattern.FindStringSubmatch(line)
			ms.openClass(m[1], lineNo)
		case resourcePattern.MatchString(line):
			m := resourcePattern.FindStringSubmatch(line)
			res = ms.openResource(m[1], m[2], lineNo)
		case variablePattern.MatchString(line):
			m := variablePattern.FindStringSubmatch(line)
			value, _ := parsePuppetValue(m[2])
			ms.scope().SetVariable(m[1], value)
		case includePattern.MatchString(line):
			m := includePattern.FindStringSubmatch(line)
			ms.scope().AddDependency("class." + m[1])
		case line == "}":
			ms.closeBrace()
		default:
			if delta := strings.Count(line, "{") - strings.Count(line, "}"); delta > 0 {
				ms.skip += delta
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read manifest %s", path)
	}
	if res != nil || len(ms.scopes) > 1 || ms.skip != 0 {
		return errors.New(errors.ErrCodeFormat, "unbalanced braces in %s", path)
	}

	ms.resolveReverseEdges()
	return nil
}

func (ms *manifestScanner) scope() *ir.Node {
	return ms.scopes[len(ms.scopes)-1]
}

func (ms *manifestScanner) openClass(name string, lineNo int) {
	class := ir.NewNode("class."+name, ir.NodeRecipe, name)
	class.SourceType = ir.SourcePuppet
	class.ParentID = ms.scope().ID
	class.Metadata = ir.NewMetadata(ir.SourcePuppet, ms.path, lineNo)
	ms.graph.AddNode(class)
	ms.scopes = append(ms.scopes, class)
}

func (ms *manifestScanner) openResource(word, title string, lineNo int) *resourceState {
	nodeType, known := resourceTypes[word]
	if !known {
		nodeType = ir.NodeCustom
	}

	node := ir.NewNode(word+"."+title, nodeType, title)
	node.SourceType = ir.SourcePuppet
	node.ParentID = ms.scope().ID
	node.Metadata = ir.NewMetadata(ir.SourcePuppet, ms.path, lineNo)
	node.SetTag("puppet_type", word)
	if !known {
		node.Metadata.ConfidenceScore = 0.5
		node.Metadata.RequiresReview = true
		node.Metadata.AddNote(fmt.Sprintf("unknown resource type %q", word))
	}
	if strings.Contains(title, "$") {
		node.Metadata.RequiresReview = true
		node.Metadata.AddNote("title contains unresolved interpolation")
	}

	return &resourceState{word: word, node: node, startLn: lineNo}
}

func (ms *manifestScanner) closeBrace() {
	if len(ms.scopes) > 1 {
		ms.scopes = ms.scopes[:len(ms.scopes)-1]
	}
}

// scanParam consumes one parameter line inside a resource body.
func scanParam(res *resourceState, line string, lineNo int, path string, ms *manifestScanner) {
	m := paramPattern.FindStringSubmatch(line)
	if m == nil {
		res.node.Metadata.AddNote(fmt.Sprintf("unparsed line %d", lineNo))
		res.node.Metadata.RequiresReview = true
		return
	}
	key, raw := m[1], strings.TrimSpace(m[2])

	switch key {
	case "ensure":
		value, _ := parsePuppetValue(raw)
		if s, ok := value.(string); ok {
			res.ensure = s
		}
	case "enable":
		value, _ := parsePuppetValue(raw)
		if b, ok := value.(bool); ok {
			res.enable = b
		}
	case "require", "subscribe":
		for _, ref := range parseRefs(raw) {
			res.node.AddDependency(ref)
		}
		if key == "subscribe" {
			res.node.Metadata.AddNote(fmt.Sprintf("refreshes on %s", raw))
		}
	case "before", "notify":
		for _, ref := range parseRefs(raw) {
			res.reverse = append(res.reverse, reverseEdge{
				target: ref,
				source: res.node.ID,
				notify: key == "notify",
			})
		}
	case "onlyif", "unless":
		guard := ir.NewGuard(strings.Trim(raw, `'"`), ir.GuardShell)
		guard.Negated = key == "unless"
		guard.Metadata = ir.NewMetadata(ir.SourcePuppet, path, lineNo)
		res.guards = append(res.guards, guard)
	case "creates":
		guard := ir.NewGuard("test -e "+strings.Trim(raw, `'"`), ir.GuardShell)
		guard.Negated = true
		guard.Metadata = ir.NewMetadata(ir.SourcePuppet, path, lineNo)
		guard.Metadata.AddNote("from creates parameter")
		res.guards = append(res.guards, guard)
	default:
		value, hint := parsePuppetValue(raw)
		attr := ir.NewAttribute(key, value)
		attr.TypeHint = hint
		res.node.AddAttribute(attr)
	}
}

// finishResource materializes the resource: an action derived from its
// ensure parameter (plus enable for services), guards attached, and
// reverse edges queued for resolution at end of scan.
func (ms *manifestScanner) finishResource(res *resourceState) {
	verbs := []string{actionForEnsure(res.word, res.ensure)}
	if res.word == "service" && res.enable {
		verbs = append(verbs, "enable")
	}

	for _, verb := range verbs {
		action := ir.NewAction(verb, res.word)
		action.Metadata = ir.NewMetadata(ir.SourcePuppet, ms.path, res.startLn)
		for _, guard := range res.guards {
			action.AddGuard(guard)
		}
		for _, e := range res.reverse {
			if e.notify {
				action.Notifies = append(action.Notifies, e.target)
			}
		}
		res.node.AddAction(action)
	}

	ms.pending = append(ms.pending, res.reverse...)
	if displaced := ms.graph.AddNode(res.node); displaced != nil {
		res.node.Metadata.AddNote(fmt.Sprintf("replaced earlier %s", displaced.ID))
	}
}

// resolveReverseEdges applies before/notify edges once every node is
// known. References to nodes outside this manifest stay unresolved and
// are noted on the source node.
func (ms *manifestScanner) resolveReverseEdges() {
	for _, e := range ms.pending {
		target, ok := ms.graph.Node(e.target)
		if !ok {
			if source, ok := ms.graph.Node(e.source); ok {
				source.Metadata.AddNote(fmt.Sprintf("orders before unknown node %s", e.target))
			}
			continue
		}
		target.AddDependency(e.source)
	}
}

// parseRefs extracts node IDs from resource references like
// Package['nginx'] or [File['a'], File['b']].
func parseRefs(raw string) []string {
	var refs []string
	for _, m := range refPattern.FindAllStringSubmatch(raw, -1) {
		refs = append(refs, strings.ToLower(m[1])+"."+m[2])
	}
	return refs
}

func actionForEnsure(word, ensure string) string {
	switch ensure {
	case "installed", "present", "latest":
		if word == "package" {
			return "install"
		}
		return "create"
	case "running":
		return "start"
	case "stopped":
		return "stop"
	case "absent", "purged":
		return "remove"
	case "file", "directory", "link":
		return "create"
	}
	if verb := defaultActions[word]; verb != "" {
		return verb
	}
	return "apply"
}

// parsePuppetValue coerces a parameter value literal to a Go value and
// a type hint. Variables, function calls, and selectors stay raw
// strings hinted as expressions.
func parsePuppetValue(raw string) (any, string) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ","))

	switch raw {
	case "true":
		return true, "boolean"
	case "false":
		return false, "boolean"
	case "undef":
		return nil, "any"
	}
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			s := raw[1 : len(raw)-1]
			if strings.Contains(s, "${") {
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
	if strings.HasPrefix(raw, "[") {
		return raw, "array"
	}
	if strings.HasPrefix(raw, "{") {
		return raw, "hash"
	}
	return raw, "expression"
}
