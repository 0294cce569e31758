package puppet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/plugin"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const siteManifest = `# Site manifest
$conf_root = '/etc/nginx'

class nginx::install {
  package { 'nginx':
    ensure => installed,
  }
}

file { '/etc/nginx/nginx.conf':
  ensure  => file,
  owner   => 'root',
  mode    => '0644',
  require => Package['nginx'],
  notify  => Service['nginx'],
}

service { 'nginx':
  ensure => running,
  enable => true,
}

exec { 'reload-firewall':
  command => '/usr/sbin/ufw reload',
  unless  => 'ufw status | grep -q inactive',
  creates => '/var/run/fw.lock',
}

include nginx::config
`

func TestParse(t *testing.T) {
	path := writeManifest(t, "site.pp", siteManifest)

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if g.SourceType != ir.SourcePuppet {
		t.Errorf("SourceType = %q, want puppet", g.SourceType)
	}
	if g.Len() != 6 {
		t.Fatalf("Len() = %d, want 6 (manifest + class + 4 resources)", g.Len())
	}

	manifest, ok := g.Node("manifest.site")
	if !ok {
		t.Fatal("manifest node missing")
	}
	if got := manifest.Variables["conf_root"]; got != "/etc/nginx" {
		t.Errorf("conf_root = %v, want /etc/nginx", got)
	}
	if len(manifest.Dependencies) != 1 || manifest.Dependencies[0] != "class.nginx::config" {
		t.Errorf("manifest dependencies = %v, want [class.nginx::config]", manifest.Dependencies)
	}

	class, ok := g.Node("class.nginx::install")
	if !ok {
		t.Fatal("class node missing")
	}
	if class.Type != ir.NodeRecipe {
		t.Errorf("class type = %q, want recipe", class.Type)
	}
	if class.ParentID != "manifest.site" {
		t.Errorf("class parent = %q", class.ParentID)
	}

	pkg, ok := g.Node("package.nginx")
	if !ok {
		t.Fatal("package node missing")
	}
	if pkg.ParentID != "class.nginx::install" {
		t.Errorf("package parent = %q, want class.nginx::install", pkg.ParentID)
	}
	if len(pkg.Actions) != 1 || pkg.Actions[0].Name != "install" {
		t.Fatalf("package actions = %+v, want [install]", pkg.Actions)
	}

	file, ok := g.Node("file./etc/nginx/nginx.conf")
	if !ok {
		t.Fatal("file node missing")
	}
	if file.Type != ir.NodeFile {
		t.Errorf("file type = %q", file.Type)
	}
	if len(file.Dependencies) != 1 || file.Dependencies[0] != "package.nginx" {
		t.Errorf("file dependencies = %v, want [package.nginx]", file.Dependencies)
	}
	if got := file.Attributes["mode"]; got == nil || got.Value != "0644" {
		t.Errorf("mode attribute = %+v, want 0644", got)
	}
	if _, found := file.Attributes["require"]; found {
		t.Error("require metaparameter leaked into attributes")
	}
	if len(file.Actions) != 1 || file.Actions[0].Name != "create" {
		t.Fatalf("file actions = %+v, want [create]", file.Actions)
	}
	if got := file.Actions[0].Notifies; len(got) != 1 || got[0] != "service.nginx" {
		t.Errorf("file notifies = %v, want [service.nginx]", got)
	}

	svc, ok := g.Node("service.nginx")
	if !ok {
		t.Fatal("service node missing")
	}
	if len(svc.Actions) != 2 || svc.Actions[0].Name != "start" || svc.Actions[1].Name != "enable" {
		t.Fatalf("service actions = %+v, want start+enable", svc.Actions)
	}
	if len(svc.Dependencies) != 1 || svc.Dependencies[0] != "file./etc/nginx/nginx.conf" {
		t.Errorf("service dependencies = %v, want notify edge from file", svc.Dependencies)
	}

	exec, ok := g.Node("exec.reload-firewall")
	if !ok {
		t.Fatal("exec node missing")
	}
	if exec.Type != ir.NodeAction {
		t.Errorf("exec type = %q", exec.Type)
	}
	if len(exec.Actions) != 1 || exec.Actions[0].Name != "run" {
		t.Fatalf("exec actions = %+v, want [run]", exec.Actions)
	}
	guards := exec.Actions[0].Guards
	if len(guards) != 2 {
		t.Fatalf("exec guards = %+v, want unless + creates", guards)
	}
	if guards[0].Condition != "ufw status | grep -q inactive" || !guards[0].Negated {
		t.Errorf("unless guard = %+v", guards[0])
	}
	if guards[1].Condition != "test -e /var/run/fw.lock" || !guards[1].Negated {
		t.Errorf("creates guard = %+v", guards[1])
	}
}

func TestParseTopologicalOrder(t *testing.T) {
	path := writeManifest(t, "site.pp", siteManifest)

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
	if index["package.nginx"] > index["file./etc/nginx/nginx.conf"] {
		t.Errorf("package after file in %v", order)
	}
	if index["file./etc/nginx/nginx.conf"] > index["service.nginx"] {
		t.Errorf("file after service in %v", order)
	}
}

func TestParseRefLists(t *testing.T) {
	path := writeManifest(t, "web.pp", `service { 'nginx':
  ensure  => running,
  require => [Package['nginx'], File['/etc/nginx/nginx.conf']],
}
`)

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	svc, ok := g.Node("service.nginx")
	if !ok {
		t.Fatal("service node missing")
	}
	want := []string{"package.nginx", "file./etc/nginx/nginx.conf"}
	if len(svc.Dependencies) != len(want) {
		t.Fatalf("dependencies = %v, want %v", svc.Dependencies, want)
	}
	for i, dep := range want {
		if svc.Dependencies[i] != dep {
			t.Errorf("dependency %d = %q, want %q", i, svc.Dependencies[i], dep)
		}
	}
}

func TestParseUnknownResource(t *testing.T) {
	path := writeManifest(t, "odd.pp", `zfs { 'tank/data':
  ensure => present,
}
`)

	g, err := New().Parse(path, plugin.Options{})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	n, ok := g.Node("zfs.tank/data")
	if !ok {
		t.Fatal("custom node missing")
	}
	if n.Type != ir.NodeCustom {
		t.Errorf("type = %q, want custom", n.Type)
	}
	if !n.Metadata.RequiresReview {
		t.Error("unknown resource should require review")
	}
}

func TestParseErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := New().Parse(filepath.Join(t.TempDir(), "nope.pp"), plugin.Options{})
		if !errors.Is(err, errors.ErrCodeNotFound) {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("unclosed resource", func(t *testing.T) {
		path := writeManifest(t, "broken.pp", "package { 'vim':\n  ensure => present,\n")
		_, err := New().Parse(path, plugin.Options{})
		if !errors.Is(err, errors.ErrCodeFormat) {
			t.Errorf("error = %v, want FORMAT_ERROR", err)
		}
	})

	t.Run("unclosed class", func(t *testing.T) {
		path := writeManifest(t, "broken.pp", "class web {\n  include nginx\n")
		_, err := New().Parse(path, plugin.Options{})
		if !errors.Is(err, errors.ErrCodeFormat) {
			t.Errorf("error = %v, want FORMAT_ERROR", err)
		}
	})
}

func TestValidate(t *testing.T) {
	p := New()

	t.Run("clean manifest", func(t *testing.T) {
		path := writeManifest(t, "site.pp", siteManifest)
		result := p.Validate(path)
		if !result.Valid {
			t.Errorf("Validate() errors = %v, want valid", result.Errors)
		}
	})

	t.Run("unbalanced braces", func(t *testing.T) {
		path := writeManifest(t, "broken.pp", "service { 'nginx':\n  ensure => running,\n")
		result := p.Validate(path)
		if result.Valid {
			t.Error("Validate() valid on unbalanced manifest")
		}
	})

	t.Run("empty manifest warns", func(t *testing.T) {
		path := writeManifest(t, "empty.pp", "# nothing\n")
		result := p.Validate(path)
		if !result.Valid {
			t.Errorf("Validate() errors = %v", result.Errors)
		}
		if len(result.Warnings) == 0 {
			t.Error("Validate() produced no warnings")
		}
	})
}
