package ansible

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

// webGraph builds the shape a chef parse produces: a recipe with vars,
// a package, a template notifying a service, a guarded command.
func webGraph() *ir.Graph {
	g := ir.NewGraph(ir.SourceChef, ir.TargetAnsible)

	recipe := ir.NewNode("recipe.default", ir.NodeRecipe, "default")
	recipe.SetVariable("app_port", 8080)
	g.AddNode(recipe)

	pkg := ir.NewNode("package.nginx", ir.NodePackage, "nginx")
	pkg.ParentID = recipe.ID
	pkg.AddAction(ir.NewAction("install", "package"))
	g.AddNode(pkg)

	tpl := ir.NewNode("template./etc/nginx/nginx.conf", ir.NodeTemplate, "/etc/nginx/nginx.conf")
	tpl.ParentID = recipe.ID
	tpl.AddAttribute(ir.NewAttribute("source", "nginx.conf.erb"))
	tpl.AddAttribute(ir.NewAttribute("owner", "root"))
	tpl.AddAttribute(ir.NewAttribute("mode", "0644"))
	create := ir.NewAction("create", "template")
	create.Notifies = append(create.Notifies, "service.nginx")
	tpl.AddAction(create)
	tpl.AddDependency("package.nginx")
	g.AddNode(tpl)

	svc := ir.NewNode("service.nginx", ir.NodeService, "nginx")
	svc.ParentID = recipe.ID
	svc.AddAction(ir.NewAction("enable", "service"))
	svc.AddAction(ir.NewAction("start", "service"))
	svc.AddDependency("package.nginx")
	g.AddNode(svc)

	warm := ir.NewNode("execute.warm-cache", ir.NodeAction, "warm-cache")
	warm.ParentID = recipe.ID
	warm.AddAttribute(ir.NewAttribute("command", "curl -s localhost/healthz"))
	run := ir.NewAction("run", "execute")
	run.AddGuard(&ir.Guard{Condition: "test -f /tmp/warm", Type: ir.GuardShell, Negated: true})
	warm.AddAction(run)
	warm.AddDependency("service.nginx")
	g.AddNode(warm)

	return g
}

func generate(t *testing.T, g *ir.Graph, opts plugin.Options) []map[string]any {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yml")
	if err := New().Generate(g, path, opts); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var plays []map[string]any
	if err := yaml.Unmarshal(data, &plays); err != nil {
		t.Fatalf("generated playbook is not valid yaml: %v\n%s", err, data)
	}
	return plays
}

func taskList(t *testing.T, play map[string]any, key string) []map[string]any {
	t.Helper()
	raw, ok := play[key].([]any)
	if !ok {
		t.Fatalf("play[%q] = %T, want sequence", key, play[key])
	}
	tasks := make([]map[string]any, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			t.Fatalf("%s[%d] = %T, want mapping", key, i, entry)
		}
		tasks[i] = m
	}
	return tasks
}

func findTask(tasks []map[string]any, name string) map[string]any {
	for _, task := range tasks {
		if task["name"] == name {
			return task
		}
	}
	return nil
}

func TestGenerate(t *testing.T) {
	plays := generate(t, webGraph(), plugin.Options{})
	if len(plays) != 1 {
		t.Fatalf("playbook has %d plays, want 1", len(plays))
	}
	play := plays[0]

	if play["hosts"] != "all" {
		t.Errorf("hosts = %v, want all", play["hosts"])
	}
	if play["become"] != true {
		t.Errorf("become = %v, want true", play["become"])
	}
	vars, _ := play["vars"].(map[string]any)
	if vars["app_port"] != 8080 {
		t.Errorf("vars = %v, want app_port 8080", vars)
	}

	tasks := taskList(t, play, "tasks")

	install := findTask(tasks, "install nginx")
	if install == nil {
		t.Fatalf("install task missing in %v", tasks)
	}
	mod, _ := install["ansible.builtin.package"].(map[string]any)
	if mod["name"] != "nginx" || mod["state"] != "present" {
		t.Errorf("package args = %v", mod)
	}

	tplTask := findTask(tasks, "create /etc/nginx/nginx.conf")
	if tplTask == nil {
		t.Fatal("template task missing")
	}
	mod, _ = tplTask["ansible.builtin.template"].(map[string]any)
	if mod["src"] != "nginx.conf.erb" || mod["dest"] != "/etc/nginx/nginx.conf" {
		t.Errorf("template args = %v", mod)
	}
	if mod["owner"] != "root" || mod["mode"] != "0644" {
		t.Errorf("template ownership args = %v", mod)
	}
	notify, _ := tplTask["notify"].([]any)
	if len(notify) != 1 || notify[0] != "refresh service.nginx" {
		t.Errorf("notify = %v", notify)
	}

	svcTask := findTask(tasks, "enable and start nginx")
	if svcTask == nil {
		t.Fatal("service task missing")
	}
	mod, _ = svcTask["ansible.builtin.service"].(map[string]any)
	if mod["name"] != "nginx" || mod["state"] != "started" || mod["enabled"] != true {
		t.Errorf("service args = %v", mod)
	}

	handlers := taskList(t, play, "handlers")
	restart := findTask(handlers, "refresh service.nginx")
	if restart == nil {
		t.Fatalf("handler missing in %v", handlers)
	}
	mod, _ = restart["ansible.builtin.service"].(map[string]any)
	if mod["state"] != "restarted" {
		t.Errorf("handler args = %v", mod)
	}
}

func TestGenerateGuards(t *testing.T) {
	plays := generate(t, webGraph(), plugin.Options{})
	tasks := taskList(t, plays[0], "tasks")

	check := findTask(tasks, "check guard for execute.warm-cache")
	if check == nil {
		t.Fatalf("guard check task missing in %v", tasks)
	}
	mod, _ := check["ansible.builtin.command"].(map[string]any)
	if mod["cmd"] != "test -f /tmp/warm" {
		t.Errorf("guard cmd = %v", mod)
	}
	register, _ := check["register"].(string)
	if register == "" {
		t.Fatal("guard check has no register")
	}
	if check["failed_when"] != false || check["changed_when"] != false {
		t.Errorf("guard check flags = %v / %v", check["failed_when"], check["changed_when"])
	}

	guarded := findTask(tasks, "run warm-cache")
	if guarded == nil {
		t.Fatal("guarded task missing")
	}
	if guarded["when"] != register+".rc != 0" {
		t.Errorf("when = %v, want %s.rc != 0", guarded["when"], register)
	}

	// the check must directly precede the task it guards
	for i, task := range tasks {
		if task["name"] == "check guard for execute.warm-cache" {
			if i+1 >= len(tasks) || tasks[i+1]["name"] != "run warm-cache" {
				t.Errorf("guard check not adjacent to guarded task")
			}
		}
	}
}

func TestGenerateTaskOrder(t *testing.T) {
	plays := generate(t, webGraph(), plugin.Options{})
	tasks := taskList(t, plays[0], "tasks")

	index := map[string]int{}
	for i, task := range tasks {
		index[task["name"].(string)] = i
	}
	if index["install nginx"] > index["create /etc/nginx/nginx.conf"] {
		t.Error("package task after template task")
	}
	if index["create /etc/nginx/nginx.conf"] > index["enable and start nginx"] {
		t.Error("template task after service task")
	}
}

func TestGenerateOptions(t *testing.T) {
	plays := generate(t, webGraph(), plugin.Options{"hosts": "web", "become": false})
	if plays[0]["hosts"] != "web" {
		t.Errorf("hosts = %v, want web", plays[0]["hosts"])
	}
	if plays[0]["become"] != false {
		t.Errorf("become = %v, want false", plays[0]["become"])
	}
}

func TestGenerateIncompatibleGraph(t *testing.T) {
	g := ir.NewGraph(ir.SourceTerraform, ir.TargetAnsible)
	res := ir.NewNode("aws_instance.web", ir.NodeResource, "web")
	res.AddAction(ir.NewAction("apply", "aws_instance"))
	g.AddNode(res)

	err := New().Generate(g, filepath.Join(t.TempDir(), "site.yml"), plugin.Options{})
	if !errors.Is(err, errors.ErrCodeIncompatibleIR) {
		t.Errorf("Generate() error = %v, want INCOMPATIBLE_IR", err)
	}
}

func TestGenerateCycle(t *testing.T) {
	g := ir.NewGraph(ir.SourceChef, ir.TargetAnsible)
	a := ir.NewNode("package.a", ir.NodePackage, "a")
	a.AddDependency("package.b")
	b := ir.NewNode("package.b", ir.NodePackage, "b")
	b.AddDependency("package.a")
	g.AddNode(a)
	g.AddNode(b)

	err := New().Generate(g, filepath.Join(t.TempDir(), "site.yml"), plugin.Options{})
	if !errors.Is(err, errors.ErrCodeCircularDependency) {
		t.Errorf("Generate() error = %v, want CIRCULAR_DEPENDENCY", err)
	}
}

func TestValidateIR(t *testing.T) {
	t.Run("compatible graph", func(t *testing.T) {
		result := New().ValidateIR(webGraph())
		if !result.Compatible {
			t.Errorf("issues = %v, want compatible", result.Issues)
		}
		// the template node is a known lossy conversion
		if len(result.Warnings) == 0 {
			t.Error("expected template conversion warning")
		}
	})

	t.Run("unmappable node", func(t *testing.T) {
		g := ir.NewGraph(ir.SourceTerraform, ir.TargetAnsible)
		g.AddNode(ir.NewNode("aws_instance.web", ir.NodeResource, "web"))
		result := New().ValidateIR(g)
		if result.Compatible {
			t.Error("ValidateIR compatible with resource node")
		}
		if len(result.Issues) != 1 {
			t.Errorf("issues = %v, want 1", result.Issues)
		}
	})

	t.Run("unresolved dependency warns", func(t *testing.T) {
		g := ir.NewGraph(ir.SourceChef, ir.TargetAnsible)
		n := ir.NewNode("package.a", ir.NodePackage, "a")
		n.AddDependency("package.ghost")
		g.AddNode(n)
		result := New().ValidateIR(g)
		if !result.Compatible {
			t.Errorf("issues = %v", result.Issues)
		}
		if len(result.Warnings) == 0 {
			t.Error("expected unresolved dependency warning")
		}
	})
}
