package ir_test

import (
	"fmt"

	"github.com/recastops/recast/pkg/ir"
)

func ExampleGraph_TopologicalOrder() {
	// A service depends on its package and its config template.
	g := ir.NewGraph(ir.SourceChef, ir.TargetAnsible)

	svc := ir.NewNode("svc.nginx", ir.NodeService, "nginx")
	svc.AddDependency("pkg.nginx")
	svc.AddDependency("tpl.nginx.conf")

	tpl := ir.NewNode("tpl.nginx.conf", ir.NodeTemplate, "nginx.conf")
	tpl.AddDependency("pkg.nginx")

	g.AddNode(svc)
	g.AddNode(tpl)
	g.AddNode(ir.NewNode("pkg.nginx", ir.NodePackage, "nginx"))

	order, _ := g.TopologicalOrder()
	fmt.Println(order)
	// Output:
	// [pkg.nginx tpl.nginx.conf svc.nginx]
}

func ExampleGraph_ValidateDependencies() {
	g := ir.NewGraph(ir.SourcePuppet, ir.TargetAnsible)

	app := ir.NewNode("app", ir.NodeService, "app")
	app.AddDependency("db")
	app.AddDependency("vault") // no such node
	g.AddNode(app)
	g.AddNode(ir.NewNode("db", ir.NodeService, "db"))

	missing := g.ValidateDependencies()
	fmt.Println(missing["app"])
	// Output:
	// [vault]
}

func ExampleGraph_AddNode_replacement() {
	g := ir.NewGraph(ir.SourceChef, ir.TargetAnsible)

	g.AddNode(ir.NewNode("pkg.curl", ir.NodePackage, "curl 7"))
	displaced := g.AddNode(ir.NewNode("pkg.curl", ir.NodePackage, "curl 8"))

	fmt.Println("displaced:", displaced.Name)
	fmt.Println("nodes:", g.Len())
	// Output:
	// displaced: curl 7
	// nodes: 1
}

func ExampleNode_AddDependency() {
	n := ir.NewNode("svc.web", ir.NodeService, "web")
	n.AddDependency("pkg.web")
	n.AddDependency("pkg.web") // duplicates are ignored
	n.AddDependency("tpl.web.conf")

	fmt.Println(n.Dependencies)
	// Output:
	// [pkg.web tpl.web.conf]
}
