package ir

import (
	"slices"
	"testing"

	"github.com/recastops/recast/pkg/errors"
)

func sampleGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph(SourceChef, TargetAnsible)
	g.Metadata["cookbook"] = "webserver"

	pkg := NewNode("pkg.nginx", NodePackage, "nginx")
	pkg.Metadata = NewMetadata(SourceChef, "recipes/default.rb", 3)
	install := NewAction("install", "package")
	install.AddAttribute(NewAttribute("version", "1.25"))
	guard := NewGuard("test -x /usr/sbin/nginx", GuardShell)
	guard.Negated = true
	install.AddGuard(guard)
	install.Notifies = []string{"svc.nginx"}
	pkg.AddAction(install)
	pkg.SetTag("tier", "web")

	svc := NewNode("svc.nginx", NodeService, "nginx")
	svc.Metadata = NewMetadata(SourceChef, "recipes/default.rb", 9)
	svc.Metadata.AddNote("restart on config change")
	svc.AddDependency("pkg.nginx")
	svc.SetVariable("enable", true)
	svc.ParentID = "recipe.default"

	g.AddNode(pkg)
	g.AddNode(svc)
	return g
}

func TestDocumentRoundTrip(t *testing.T) {
	g := sampleGraph(t)

	doc, err := g.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}

	// Envelope fields survive the projection.
	if doc["graph_id"] != g.ID {
		t.Errorf("doc graph_id = %v, want %s", doc["graph_id"], g.ID)
	}
	if doc["version"] != SchemaVersion {
		t.Errorf("doc version = %v, want %s", doc["version"], SchemaVersion)
	}
	nodes, ok := doc["nodes"].(map[string]any)
	if !ok || len(nodes) != 2 {
		t.Fatalf("doc nodes = %T with %d entries, want map with 2", doc["nodes"], len(nodes))
	}

	back, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	if back.ID != g.ID || back.SourceType != g.SourceType || back.TargetType != g.TargetType {
		t.Errorf("identity = (%s, %s, %s), want (%s, %s, %s)",
			back.ID, back.SourceType, back.TargetType, g.ID, g.SourceType, g.TargetType)
	}
	if back.Version != g.Version || back.CreatedAt != g.CreatedAt {
		t.Errorf("provenance = (%s, %s), want (%s, %s)", back.Version, back.CreatedAt, g.Version, g.CreatedAt)
	}
	if back.Metadata["cookbook"] != "webserver" {
		t.Errorf("Metadata[cookbook] = %v, want webserver", back.Metadata["cookbook"])
	}
	if back.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", back.Len())
	}

	svc, ok := back.Node("svc.nginx")
	if !ok {
		t.Fatal("Node(svc.nginx) missing after round trip")
	}
	if svc.Type != NodeService || svc.ParentID != "recipe.default" {
		t.Errorf("svc = type %s parent %s", svc.Type, svc.ParentID)
	}
	if !slices.Equal(svc.Dependencies, []string{"pkg.nginx"}) {
		t.Errorf("svc.Dependencies = %v, want [pkg.nginx]", svc.Dependencies)
	}
	if !slices.Equal(svc.Metadata.Notes, []string{"restart on config change"}) {
		t.Errorf("svc.Metadata.Notes = %v", svc.Metadata.Notes)
	}
	if svc.Variables["enable"] != true {
		t.Errorf("svc.Variables[enable] = %v, want true", svc.Variables["enable"])
	}

	pkg, ok := back.Node("pkg.nginx")
	if !ok {
		t.Fatal("Node(pkg.nginx) missing after round trip")
	}
	if pkg.Tags["tier"] != "web" {
		t.Errorf("pkg.Tags[tier] = %v, want web", pkg.Tags["tier"])
	}
	if len(pkg.Actions) != 1 {
		t.Fatalf("pkg.Actions = %d, want 1", len(pkg.Actions))
	}
	install := pkg.Actions[0]
	if install.Attributes["version"].Value != "1.25" {
		t.Errorf("install version = %v, want 1.25", install.Attributes["version"].Value)
	}
	if len(install.Guards) != 1 || !install.Guards[0].Negated || install.Guards[0].Type != GuardShell {
		t.Errorf("install.Guards = %+v, want one negated shell guard", install.Guards)
	}
	if !slices.Equal(install.Notifies, []string{"svc.nginx"}) {
		t.Errorf("install.Notifies = %v, want [svc.nginx]", install.Notifies)
	}

	// The hydrated graph still orders correctly.
	order, err := back.TopologicalOrder()
	if err != nil {
		t.Fatalf("TopologicalOrder() error = %v", err)
	}
	assertTopological(t, back, order)
}

func TestDocumentSharesNothing(t *testing.T) {
	g := sampleGraph(t)
	doc, err := g.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}

	nodes := doc["nodes"].(map[string]any)
	nodes["pkg.nginx"].(map[string]any)["name"] = "mutated"

	n, _ := g.Node("pkg.nginx")
	if n.Name != "nginx" {
		t.Errorf("graph node name = %q, document mutation leaked through", n.Name)
	}
}

func TestFromDocumentErrors(t *testing.T) {
	valid := func() map[string]any {
		g := sampleGraph(t)
		doc, err := g.Document()
		if err != nil {
			t.Fatalf("Document() error = %v", err)
		}
		return doc
	}

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{
			name:   "missing graph_id",
			mutate: func(doc map[string]any) { delete(doc, "graph_id") },
		},
		{
			name: "node key mismatch",
			mutate: func(doc map[string]any) {
				nodes := doc["nodes"].(map[string]any)
				nodes["renamed"] = nodes["pkg.nginx"]
				delete(nodes, "pkg.nginx")
			},
		},
		{
			name: "unknown node type",
			mutate: func(doc map[string]any) {
				node := doc["nodes"].(map[string]any)["pkg.nginx"].(map[string]any)
				node["node_type"] = "cookbook"
			},
		},
		{
			name:   "unknown source type",
			mutate: func(doc map[string]any) { doc["source_type"] = "cfengine" },
		},
		{
			name:   "nodes is not a map",
			mutate: func(doc map[string]any) { doc["nodes"] = []any{"pkg.nginx"} },
		},
		{
			name: "null node",
			mutate: func(doc map[string]any) {
				doc["nodes"].(map[string]any)["pkg.nginx"] = nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			if _, err := FromDocument(doc); !errors.Is(err, errors.ErrCodeFormat) {
				t.Errorf("FromDocument() error = %v, want code %s", err, errors.ErrCodeFormat)
			}
		})
	}
}

func TestFromDocumentDeterministicOrder(t *testing.T) {
	g := NewGraph(SourcePuppet, TargetAnsible)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		g.AddNode(NewNode(id, NodeResource, id))
	}
	doc, err := g.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	back, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}

	var ids []string
	for _, n := range back.Nodes() {
		ids = append(ids, n.ID)
	}
	want := []string{"alpha", "mid", "zeta"}
	if !slices.Equal(ids, want) {
		t.Errorf("hydrated order = %v, want lexicographic %v", ids, want)
	}
}
