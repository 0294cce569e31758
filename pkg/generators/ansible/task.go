package ansible

import "gopkg.in/yaml.v3"

// task is one playbook entry. Tasks marshal through yaml.Node so key
// order stays fixed: name, module args, register, failed_when,
// changed_when, when, notify.
type task struct {
	name        string
	module      string
	args        *moduleArgs
	register    string
	failedWhen  any
	changedWhen any
	when        any // string or []string
	notify      []string
}

func newTask(name, module string) *task {
	return &task{name: name, module: module, args: &moduleArgs{}}
}

func (t *task) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	if err := appendPair(node, "name", t.name); err != nil {
		return nil, err
	}
	if t.module != "" {
		if err := appendPair(node, t.module, t.args); err != nil {
			return nil, err
		}
	}
	if t.register != "" {
		if err := appendPair(node, "register", t.register); err != nil {
			return nil, err
		}
	}
	if t.failedWhen != nil {
		if err := appendPair(node, "failed_when", t.failedWhen); err != nil {
			return nil, err
		}
	}
	if t.changedWhen != nil {
		if err := appendPair(node, "changed_when", t.changedWhen); err != nil {
			return nil, err
		}
	}
	if t.when != nil {
		if err := appendPair(node, "when", t.when); err != nil {
			return nil, err
		}
	}
	if len(t.notify) > 0 {
		if err := appendPair(node, "notify", t.notify); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// moduleArgs holds module arguments in insertion order.
type moduleArgs struct {
	pairs []argPair
}

type argPair struct {
	key   string
	value any
}

func (a *moduleArgs) set(key string, value any) {
	for i := range a.pairs {
		if a.pairs[i].key == key {
			a.pairs[i].value = value
			return
		}
	}
	a.pairs = append(a.pairs, argPair{key: key, value: value})
}

func (a *moduleArgs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range a.pairs {
		if err := appendPair(node, p.key, p.value); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func appendPair(node *yaml.Node, key string, value any) error {
	var k, v yaml.Node
	if err := k.Encode(key); err != nil {
		return err
	}
	if err := v.Encode(value); err != nil {
		return err
	}
	node.Content = append(node.Content, &k, &v)
	return nil
}
