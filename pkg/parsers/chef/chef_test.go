package chef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

func writeRecipe(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const nginxRecipe = `#
# Cookbook:: web
# Recipe:: default
#

app_root = '/var/www/app'
worker_count = 4

include_recipe 'base::hardening'

package 'nginx' do
  version '1.25.3'
  action :install
end

template '/etc/nginx/nginx.conf' do
  source 'nginx.conf.erb'
  owner 'root'
  mode '0644'
  variables(port: 8080)
  notifies :reload, 'service[nginx]', :delayed
end

service 'nginx' do
  action [:enable, :start]
  subscribes :restart, 'package[nginx]'
  only_if 'test -x /usr/sbin/nginx'
end

execute 'warm-cache' do
  command 'curl -s localhost/healthz'
  not_if { ::File.exist?('/tmp/warm') }
end
`

func TestParse(t *testing.T) {
	path := writeRecipe(t, "default.rb", nginxRecipe)

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if g.SourceType != ir.SourceChef {
		t.Errorf("SourceType = %q, want chef", g.SourceType)
	}
	if g.Len() != 5 {
		t.Fatalf("Len() = %d, want 5 (recipe + 4 resources)", g.Len())
	}

	recipe, ok := g.Node("recipe.default")
	if !ok {
		t.Fatal("recipe node missing")
	}
	if recipe.Type != ir.NodeRecipe {
		t.Errorf("recipe type = %q, want recipe", recipe.Type)
	}
	if got := recipe.Variables["app_root"]; got != "/var/www/app" {
		t.Errorf("app_root = %v, want /var/www/app", got)
	}
	if got := recipe.Variables["worker_count"]; got != 4 {
		t.Errorf("worker_count = %v, want 4", got)
	}
	if len(recipe.Dependencies) != 1 || recipe.Dependencies[0] != "recipe.base::hardening" {
		t.Errorf("recipe dependencies = %v, want [recipe.base::hardening]", recipe.Dependencies)
	}

	pkg, ok := g.Node("package.nginx")
	if !ok {
		t.Fatal("package node missing")
	}
	if pkg.Type != ir.NodePackage {
		t.Errorf("package type = %q", pkg.Type)
	}
	if pkg.ParentID != "recipe.default" {
		t.Errorf("package parent = %q, want recipe.default", pkg.ParentID)
	}
	if got := pkg.Attributes["version"]; got == nil || got.Value != "1.25.3" {
		t.Errorf("version attribute = %+v, want 1.25.3", got)
	}
	if len(pkg.Actions) != 1 || pkg.Actions[0].Name != "install" {
		t.Fatalf("package actions = %+v, want [install]", pkg.Actions)
	}

	tpl, ok := g.Node("template./etc/nginx/nginx.conf")
	if !ok {
		t.Fatal("template node missing")
	}
	if tpl.Type != ir.NodeTemplate {
		t.Errorf("template type = %q", tpl.Type)
	}
	if got := tpl.Attributes["mode"]; got == nil || got.Value != "0644" {
		t.Errorf("mode attribute = %+v, want 0644", got)
	}
	if len(tpl.Actions) != 1 {
		t.Fatalf("template actions = %+v", tpl.Actions)
	}
	if tpl.Actions[0].Name != "create" {
		t.Errorf("template action = %q, want implied create", tpl.Actions[0].Name)
	}
	if got := tpl.Actions[0].Notifies; len(got) != 1 || got[0] != "service.nginx" {
		t.Errorf("template notifies = %v, want [service.nginx]", got)
	}

	svc, ok := g.Node("service.nginx")
	if !ok {
		t.Fatal("service node missing")
	}
	if len(svc.Actions) != 2 {
		t.Fatalf("service actions = %+v, want enable+start", svc.Actions)
	}
	if svc.Actions[0].Name != "enable" || svc.Actions[1].Name != "start" {
		t.Errorf("service action names = %q, %q", svc.Actions[0].Name, svc.Actions[1].Name)
	}
	if len(svc.Dependencies) != 1 || svc.Dependencies[0] != "package.nginx" {
		t.Errorf("service dependencies = %v, want [package.nginx] from subscribes", svc.Dependencies)
	}
	for i, a := range svc.Actions {
		if len(a.Guards) != 1 {
			t.Fatalf("action %d guards = %+v, want 1", i, a.Guards)
		}
		guard := a.Guards[0]
		if guard.Type != ir.GuardShell || guard.Negated {
			t.Errorf("guard = %+v, want non-negated shell", guard)
		}
		if guard.Condition != "test -x /usr/sbin/nginx" {
			t.Errorf("guard condition = %q", guard.Condition)
		}
	}

	exe, ok := g.Node("execute.warm-cache")
	if !ok {
		t.Fatal("execute node missing")
	}
	if exe.Type != ir.NodeAction {
		t.Errorf("execute type = %q", exe.Type)
	}
	if len(exe.Actions) != 1 || len(exe.Actions[0].Guards) != 1 {
		t.Fatalf("execute actions = %+v", exe.Actions)
	}
	guard := exe.Actions[0].Guards[0]
	if !guard.Negated {
		t.Error("not_if guard should be negated")
	}
	if guard.Type != ir.GuardInterpreter {
		t.Errorf("guard type = %q, want interpreter", guard.Type)
	}
	if guard.Condition != "::File.exist?('/tmp/warm')" {
		t.Errorf("guard condition = %q", guard.Condition)
	}
}

func TestParseKeepsRecipeOrder(t *testing.T) {
	path := writeRecipe(t, "default.rb", nginxRecipe)

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		t.Fatalf("TopologicalOrder() error: %v", err)
	}

	index := make(map[string]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	if index["package.nginx"] > index["service.nginx"] {
		t.Errorf("package after service in %v", order)
	}
	if index["package.nginx"] > index["template./etc/nginx/nginx.conf"] {
		t.Errorf("package after template in %v", order)
	}
}

func TestParseSingleLineResource(t *testing.T) {
	path := writeRecipe(t, "default.rb", "package 'vim'\npackage 'curl'\n")

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	for _, id := range []string{"package.vim", "package.curl"} {
		n, ok := g.Node(id)
		if !ok {
			t.Fatalf("node %s missing", id)
		}
		if len(n.Actions) != 1 || n.Actions[0].Name != "install" {
			t.Errorf("%s actions = %+v, want implied install", id, n.Actions)
		}
	}
}

func TestParseUnknownResource(t *testing.T) {
	path := writeRecipe(t, "default.rb", "chef_gem 'aws-sdk' do\n  compile_time true\nend\n")

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	n, ok := g.Node("chef_gem.aws-sdk")
	if !ok {
		t.Fatal("custom node missing")
	}
	if n.Type != ir.NodeCustom {
		t.Errorf("type = %q, want custom", n.Type)
	}
	if !n.Metadata.RequiresReview {
		t.Error("unknown resource should require review")
	}
	if n.Metadata.ConfidenceScore >= 1.0 {
		t.Errorf("confidence = %v, want lowered", n.Metadata.ConfidenceScore)
	}
	if got := n.Attributes["compile_time"]; got == nil || got.Value != true {
		t.Errorf("compile_time = %+v, want true", got)
	}
}

func TestParseHeredocSkipped(t *testing.T) {
	path := writeRecipe(t, "default.rb", `bash 'bootstrap' do
  code <<-EOH
    apt-get update
    apt-get install -y nginx
  EOH
end

package 'vim'
`)

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if _, ok := g.Node("bash.bootstrap"); !ok {
		t.Error("bash node missing")
	}
	if _, ok := g.Node("package.vim"); !ok {
		t.Error("node after heredoc missing; heredoc body leaked into scan")
	}
}

func TestParseErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := New().Parse(filepath.Join(t.TempDir(), "nope.rb"), plugin.Options{})
		if !errors.Is(err, errors.ErrCodeNotFound) {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("unbalanced blocks", func(t *testing.T) {
		path := writeRecipe(t, "broken.rb", "service 'nginx' do\n  action :start\n")
		_, err := New().Parse(path, plugin.Options{})
		if !errors.Is(err, errors.ErrCodeFormat) {
			t.Errorf("error = %v, want FORMAT_ERROR", err)
		}
	})
}

func TestValidate(t *testing.T) {
	p := New()

	t.Run("clean recipe", func(t *testing.T) {
		path := writeRecipe(t, "default.rb", nginxRecipe)
		result := p.Validate(path)
		if !result.Valid {
			t.Errorf("Validate() errors = %v, want valid", result.Errors)
		}
	})

	t.Run("unbalanced", func(t *testing.T) {
		path := writeRecipe(t, "broken.rb", "package 'vim' do\n  action :install\n")
		result := p.Validate(path)
		if result.Valid {
			t.Error("Validate() valid on unbalanced recipe")
		}
	})

	t.Run("empty recipe warns", func(t *testing.T) {
		path := writeRecipe(t, "empty.rb", "# nothing here\n")
		result := p.Validate(path)
		if !result.Valid {
			t.Errorf("Validate() errors = %v", result.Errors)
		}
		if len(result.Warnings) == 0 {
			t.Error("Validate() produced no warnings for empty recipe")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		result := p.Validate(filepath.Join(t.TempDir(), "nope.rb"))
		if result.Valid {
			t.Error("Validate() valid on missing file")
		}
	})
}
