package ir

import (
	"slices"
	"testing"
)

func TestAddDependency(t *testing.T) {
	n := NewNode("web", NodeService, "nginx")
	n.AddDependency("pkg.nginx")
	n.AddDependency("tpl.conf")
	n.AddDependency("pkg.nginx") // duplicate, ignored
	n.AddDependency("")          // empty, ignored

	want := []string{"pkg.nginx", "tpl.conf"}
	if !slices.Equal(n.Dependencies, want) {
		t.Errorf("Dependencies = %v, want %v", n.Dependencies, want)
	}
}

func TestNodeMutators(t *testing.T) {
	n := NewNode("db", NodeService, "postgres")

	n.AddAttribute(NewAttribute("port", 5432))
	n.AddAttribute(NewAttribute("port", 5433)) // replaces
	if got := n.Attributes["port"].Value; got != 5433 {
		t.Errorf("Attributes[port].Value = %v, want 5433", got)
	}

	n.SetVariable("data_dir", "/var/lib/postgresql")
	if got := n.Variables["data_dir"]; got != "/var/lib/postgresql" {
		t.Errorf("Variables[data_dir] = %v", got)
	}

	n.SetTag("tier", "storage")
	if got := n.Tags["tier"]; got != "storage" {
		t.Errorf("Tags[tier] = %v, want storage", got)
	}

	install := NewAction("install", "package")
	start := NewAction("start", "service")
	n.AddAction(install)
	n.AddAction(start)
	if len(n.Actions) != 2 || n.Actions[0] != install {
		t.Errorf("Actions = %v, want install then start", n.Actions)
	}
}

func TestMutatorsOnZeroValueMaps(t *testing.T) {
	// Literal-built entities (as hydration produces them) must not panic.
	n := &Node{ID: "raw", Type: NodeCustom}
	n.AddAttribute(NewAttribute("k", "v"))
	n.SetVariable("x", 1)
	n.SetTag("a", "b")

	a := &Action{Name: "run", Type: "execute"}
	a.AddAttribute(NewAttribute("command", "true"))
	if a.Attributes["command"] == nil {
		t.Error("AddAttribute on zero-value action lost the attribute")
	}
}

func TestActionGuards(t *testing.T) {
	a := NewAction("install", "package")
	g1 := NewGuard("test -f /etc/installed", GuardShell)
	g2 := NewGuard("node['install']", GuardBoolean)
	g2.Negated = true
	a.AddGuard(g1)
	a.AddGuard(g2)

	if len(a.Guards) != 2 || a.Guards[0] != g1 || a.Guards[1] != g2 {
		t.Fatalf("Guards = %v, want insertion order", a.Guards)
	}
	if !a.Guards[1].Negated {
		t.Error("Guards[1].Negated = false, want true")
	}
}

func TestNewAttributeDefaults(t *testing.T) {
	attr := NewAttribute("mode", "0644")
	if attr.TypeHint != "any" {
		t.Errorf("TypeHint = %q, want any", attr.TypeHint)
	}
	if attr.Required {
		t.Error("Required = true, want false")
	}
}

func TestNewMetadata(t *testing.T) {
	m := NewMetadata(SourceChef, "recipes/default.rb", 42)
	if m.ConfidenceScore != 1.0 {
		t.Errorf("ConfidenceScore = %v, want 1.0", m.ConfidenceScore)
	}
	if m.SourceFile != "recipes/default.rb" || m.SourceLine != 42 {
		t.Errorf("provenance = %s:%d, want recipes/default.rb:42", m.SourceFile, m.SourceLine)
	}

	m.AddNote("guessed resource type")
	m.AddNote("verify mode attribute")
	if len(m.Notes) != 2 {
		t.Errorf("Notes = %v, want 2 entries", m.Notes)
	}
}

func TestTypeValidity(t *testing.T) {
	t.Run("node types", func(t *testing.T) {
		for _, nt := range NodeTypes() {
			if !nt.Valid() {
				t.Errorf("NodeType(%q).Valid() = false", nt)
			}
		}
		for _, invalid := range []NodeType{"", "cookbook", "RECIPE"} {
			if invalid.Valid() {
				t.Errorf("NodeType(%q).Valid() = true", invalid)
			}
		}
	})

	t.Run("source types", func(t *testing.T) {
		for _, st := range []SourceType{SourceChef, SourcePuppet, SourceTerraform, SourceCustom} {
			if !st.Valid() {
				t.Errorf("SourceType(%q).Valid() = false", st)
			}
		}
		if SourceType("cfengine").Valid() {
			t.Error(`SourceType("cfengine").Valid() = true`)
		}
	})

	t.Run("target types", func(t *testing.T) {
		for _, tt := range []TargetType{TargetAnsible, TargetTerraform, TargetCustom} {
			if !tt.Valid() {
				t.Errorf("TargetType(%q).Valid() = false", tt)
			}
		}
		if TargetType("chef").Valid() {
			t.Error(`TargetType("chef").Valid() = true`)
		}
	})

	t.Run("guard types", func(t *testing.T) {
		for _, gt := range []GuardType{GuardBoolean, GuardShell, GuardInterpreter} {
			if !gt.Valid() {
				t.Errorf("GuardType(%q).Valid() = false", gt)
			}
		}
		if GuardType("powershell").Valid() {
			t.Error(`GuardType("powershell").Valid() = true`)
		}
	})
}
