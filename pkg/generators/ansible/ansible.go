// Package ansible generates Ansible playbooks from graphs.
//
// Topological order drives task order, so dependencies always run
// before their dependents. Shell guards become register-and-check task
// pairs, notifications become handlers, and recipe variables become
// play vars. Node types with no Ansible equivalent fail generation;
// ValidateIR reports them ahead of time.
package ansible

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

// Tag is the registry tag for this generator.
const Tag = "ansible"

// mappable lists the node types Generate can express as tasks or play
// structure. Everything else is an incompatibility.
var mappable = map[ir.NodeType]bool{
	ir.NodeRecipe:   true,
	ir.NodeVariable: true,
	ir.NodePackage:  true,
	ir.NodeService:  true,
	ir.NodeFile:     true,
	ir.NodeTemplate: true,
	ir.NodeUser:     true,
	ir.NodeGroup:    true,
	ir.NodeAction:   true,
}

// Generator writes Ansible playbooks.
type Generator struct{}

// New returns an Ansible playbook generator.
func New() *Generator { return &Generator{} }

func (g *Generator) TargetType() ir.TargetType { return ir.TargetAnsible }

// SupportedVersions lists the ansible-core versions the emitted syntax
// targets.
func (g *Generator) SupportedVersions() []string {
	return []string{"2.15", "2.16", "2.17"}
}

// ValidateIR reports whether the graph can be generated: unmappable
// node types are issues, lossy conversions (interpreter guards, foreign
// template sources, nodes flagged for review) are warnings.
func (g *Generator) ValidateIR(graph *ir.Graph) plugin.IRValidationResult {
	result := plugin.NewIRValidationResult()

	for _, node := range graph.Nodes() {
		if !mappable[node.Type] {
			result.AddIssue(fmt.Sprintf("node %s: type %q has no ansible equivalent", node.ID, node.Type))
			continue
		}
		if node.Metadata.RequiresReview {
			result.AddWarning(fmt.Sprintf("node %s is flagged for review", node.ID))
		}
		if node.Type == ir.NodeTemplate {
			result.AddWarning(fmt.Sprintf("node %s: template body must be converted to Jinja2 by hand", node.ID))
		}
		for _, action := range node.Actions {
			for _, guard := range action.Guards {
				if guard.Type == ir.GuardInterpreter {
					result.AddWarning(fmt.Sprintf("node %s: interpreter guard %q emitted verbatim", node.ID, guard.Condition))
				}
			}
		}
	}
	for id, missing := range graph.ValidateDependencies() {
		result.AddWarning(fmt.Sprintf("node %s depends on unknown nodes %v", id, missing))
	}
	return result
}

// Generate writes the playbook for the graph to outputPath. Options:
// "hosts" sets the play target (default "all"), "become" toggles
// privilege escalation (default true).
func (g *Generator) Generate(graph *ir.Graph, outputPath string, opts plugin.Options) error {
	if v := g.ValidateIR(graph); !v.Compatible {
		return errors.New(errors.ErrCodeIncompatibleIR, "graph %s: %s", graph.ID, strings.Join(v.Issues, "; "))
	}
	order, err := graph.TopologicalOrder()
	if err != nil {
		return err
	}

	pb := &playBuilder{graph: graph}
	play, err := pb.build(order, opts)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", outputPath)
	}
	defer f.Close()

	if _, err := f.WriteString("---\n"); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", outputPath)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode([]play1{*play}); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "encode playbook %s", outputPath)
	}
	return enc.Close()
}

// play1 is a single play; a playbook file is a sequence of them.
type play1 struct {
	Name     string         `yaml:"name"`
	Hosts    string         `yaml:"hosts"`
	Become   bool           `yaml:"become"`
	Vars     map[string]any `yaml:"vars,omitempty"`
	Tasks    []*task        `yaml:"tasks"`
	Handlers []*task        `yaml:"handlers,omitempty"`
}

type playBuilder struct {
	graph    *ir.Graph
	guardSeq int
}

func (pb *playBuilder) build(order []string, opts plugin.Options) (*play1, error) {
	play := &play1{
		Name:   fmt.Sprintf("Converted from %s", pb.graph.SourceType),
		Hosts:  opts.String("hosts", "all"),
		Become: opts.Bool("become", true),
		Vars:   map[string]any{},
		Tasks:  []*task{},
	}

	notified := map[string]bool{}
	var notifiedOrder []string

	for _, id := range order {
		node, ok := pb.graph.Node(id)
		if !ok {
			continue
		}
		switch node.Type {
		case ir.NodeRecipe:
			for name, value := range node.Variables {
				play.Vars[name] = value
			}
		case ir.NodeVariable:
			if attr := node.Attributes["value"]; attr != nil {
				play.Vars[node.Name] = attr.DefaultValue
			} else {
				play.Vars[node.Name] = nil
			}
		default:
			tasks, err := pb.tasksFor(node)
			if err != nil {
				return nil, err
			}
			play.Tasks = append(play.Tasks, tasks...)
		}
		for _, action := range node.Actions {
			for _, target := range action.Notifies {
				if !notified[target] {
					notified[target] = true
					notifiedOrder = append(notifiedOrder, target)
				}
			}
		}
	}
	if len(play.Vars) == 0 {
		play.Vars = nil
	}

	for _, target := range notifiedOrder {
		node, ok := pb.graph.Node(target)
		if !ok {
			continue
		}
		handler, err := handlerFor(node)
		if err != nil {
			return nil, err
		}
		play.Handlers = append(play.Handlers, handler)
	}
	return play, nil
}

// tasksFor renders one node: guard check tasks first, then the node's
// tasks with their when expressions and notify lists.
func (pb *playBuilder) tasksFor(node *ir.Node) ([]*task, error) {
	var out []*task

	if node.Type == ir.NodeService {
		t, err := pb.serviceTask(node)
		if err != nil {
			return nil, err
		}
		guards := collectGuards(node)
		out = pb.applyGuards(out, t, guards, node)
		return out, nil
	}

	for _, action := range node.Actions {
		t, err := moduleTask(node, action)
		if err != nil {
			return nil, err
		}
		t.notify = handlerNames(pb.graph, action.Notifies)
		out = pb.applyGuards(out, t, action.Guards, node)
	}
	return out, nil
}

// serviceTask folds all of a service node's actions into one task:
// start/stop/restart set state, enable/disable set enabled.
func (pb *playBuilder) serviceTask(node *ir.Node) (*task, error) {
	t := newTask(fmt.Sprintf("%s %s", strings.Join(actionNames(node), " and "), node.Name), "ansible.builtin.service")
	t.args.set("name", node.Name)
	for _, action := range node.Actions {
		switch action.Name {
		case "start":
			t.args.set("state", "started")
		case "stop":
			t.args.set("state", "stopped")
		case "restart":
			t.args.set("state", "restarted")
		case "reload":
			t.args.set("state", "reloaded")
		case "enable":
			t.args.set("enabled", true)
		case "disable":
			t.args.set("enabled", false)
		case "nothing":
		default:
			return nil, errors.New(errors.ErrCodeIncompatibleIR, "node %s: service action %q not supported", node.ID, action.Name)
		}
		t.notify = append(t.notify, handlerNames(pb.graph, action.Notifies)...)
	}
	return t, nil
}

// applyGuards prefixes guard-check tasks and attaches when expressions
// to the guarded task, then appends it.
func (pb *playBuilder) applyGuards(out []*task, t *task, guards []*ir.Guard, node *ir.Node) []*task {
	var when []string
	for _, guard := range guards {
		switch guard.Type {
		case ir.GuardShell:
			register := fmt.Sprintf("guard_%d", pb.guardSeq)
			pb.guardSeq++
			check := newTask(fmt.Sprintf("check guard for %s", node.ID), "ansible.builtin.command")
			check.args.set("cmd", guard.Condition)
			check.register = register
			check.failedWhen = false
			check.changedWhen = false
			out = append(out, check)
			op := "=="
			if guard.Negated {
				op = "!="
			}
			when = append(when, fmt.Sprintf("%s.rc %s 0", register, op))
		case ir.GuardBoolean:
			cond := guard.Condition
			if guard.Negated {
				cond = "not " + cond
			}
			when = append(when, cond)
		default:
			// interpreter guards pass through for manual conversion
			cond := guard.Condition
			if guard.Negated {
				cond = "not (" + cond + ")"
			}
			when = append(when, cond)
		}
	}
	switch len(when) {
	case 0:
	case 1:
		t.when = when[0]
	default:
		t.when = when
	}
	return append(out, t)
}

// moduleTask maps a non-service node action to a module invocation.
func moduleTask(node *ir.Node, action *ir.Action) (*task, error) {
	name := fmt.Sprintf("%s %s", action.Name, node.Name)

	switch node.Type {
	case ir.NodePackage:
		t := newTask(name, "ansible.builtin.package")
		t.args.set("name", node.Name)
		switch action.Name {
		case "remove", "purge":
			t.args.set("state", "absent")
		case "upgrade":
			t.args.set("state", "latest")
		default:
			t.args.set("state", "present")
		}
		return t, nil

	case ir.NodeFile:
		if node.Tags["chef_resource"] == "directory" || attrString(node, "ensure") == "directory" {
			t := newTask(name, "ansible.builtin.file")
			t.args.set("path", node.Name)
			t.args.set("state", stateForFile(action.Name, "directory"))
			copyFileArgs(t, node)
			return t, nil
		}
		if content := attrString(node, "content"); content != "" {
			t := newTask(name, "ansible.builtin.copy")
			t.args.set("dest", node.Name)
			t.args.set("content", content)
			copyFileArgs(t, node)
			return t, nil
		}
		t := newTask(name, "ansible.builtin.file")
		t.args.set("path", node.Name)
		t.args.set("state", stateForFile(action.Name, "touch"))
		copyFileArgs(t, node)
		return t, nil

	case ir.NodeTemplate:
		t := newTask(name, "ansible.builtin.template")
		src := attrString(node, "source")
		if src == "" {
			src = node.Name + ".j2"
		}
		t.args.set("src", src)
		t.args.set("dest", node.Name)
		copyFileArgs(t, node)
		return t, nil

	case ir.NodeUser:
		t := newTask(name, "ansible.builtin.user")
		t.args.set("name", node.Name)
		if action.Name == "remove" {
			t.args.set("state", "absent")
		}
		copyArgs(t, node, "uid", "home", "shell", "comment", "system")
		return t, nil

	case ir.NodeGroup:
		t := newTask(name, "ansible.builtin.group")
		t.args.set("name", node.Name)
		if action.Name == "remove" {
			t.args.set("state", "absent")
		}
		copyArgs(t, node, "gid", "system")
		return t, nil

	case ir.NodeAction:
		t := newTask(name, "ansible.builtin.shell")
		cmd := attrString(node, "command")
		if cmd == "" {
			cmd = node.Name
		}
		t.args.set("cmd", cmd)
		copyArgs(t, node, "creates", "chdir")
		return t, nil
	}
	return nil, errors.New(errors.ErrCodeIncompatibleIR, "node %s: type %q has no ansible equivalent", node.ID, node.Type)
}

// handlerFor renders the task a notification triggers. Services restart;
// anything else re-runs its first action.
func handlerFor(node *ir.Node) (*task, error) {
	if node.Type == ir.NodeService {
		t := newTask(handlerName(node), "ansible.builtin.service")
		t.args.set("name", node.Name)
		t.args.set("state", "restarted")
		return t, nil
	}
	if len(node.Actions) == 0 {
		return nil, errors.New(errors.ErrCodeIncompatibleIR, "node %s: notified node has no actions", node.ID)
	}
	t, err := moduleTask(node, node.Actions[0])
	if err != nil {
		return nil, err
	}
	t.name = handlerName(node)
	return t, nil
}

func handlerName(node *ir.Node) string {
	return "refresh " + node.ID
}

// handlerNames resolves notification targets to handler names, dropping
// targets that are not in the graph.
func handlerNames(g *ir.Graph, targets []string) []string {
	var names []string
	for _, target := range targets {
		if node, ok := g.Node(target); ok {
			names = append(names, handlerName(node))
		}
	}
	return names
}

func collectGuards(node *ir.Node) []*ir.Guard {
	var guards []*ir.Guard
	seen := map[*ir.Guard]bool{}
	for _, action := range node.Actions {
		for _, guard := range action.Guards {
			if !seen[guard] {
				seen[guard] = true
				guards = append(guards, guard)
			}
		}
	}
	return guards
}

func actionNames(node *ir.Node) []string {
	names := make([]string, 0, len(node.Actions))
	for _, action := range node.Actions {
		names = append(names, action.Name)
	}
	return names
}

func attrString(node *ir.Node, name string) string {
	if attr := node.Attributes[name]; attr != nil {
		if s, ok := attr.Value.(string); ok {
			return s
		}
	}
	return ""
}

func stateForFile(actionName, createState string) string {
	switch actionName {
	case "remove", "delete":
		return "absent"
	default:
		return createState
	}
}

// copyFileArgs carries ownership and mode attributes over when present.
func copyFileArgs(t *task, node *ir.Node) {
	copyArgs(t, node, "owner", "group", "mode")
}

func copyArgs(t *task, node *ir.Node, names ...string) {
	for _, name := range names {
		if attr := node.Attributes[name]; attr != nil && attr.Value != nil {
			t.args.set(name, attr.Value)
		}
	}
}
