// Package plugins provides the complete set of built-in parsers and generators.
//
// This package exists to break import cycles: the individual plugin packages
// (chef, ansible, etc.) import pkg/plugin, so pkg/plugin cannot import them
// back. Consumers that need a fully populated registry import this package.
//
// Usage:
//
//	import "github.com/recastops/recast/pkg/plugins"
//
//	reg := plugins.DefaultRegistry()
//	parser, ok := reg.Parser("chef")
package plugins

import (
	"github.com/recastops/recast/pkg/generators/ansible"
	tfgen "github.com/recastops/recast/pkg/generators/terraform"
	"github.com/recastops/recast/pkg/parsers/chef"
	"github.com/recastops/recast/pkg/parsers/puppet"
	"github.com/recastops/recast/pkg/parsers/terraform"
	"github.com/recastops/recast/pkg/plugin"
)

// DefaultRegistry returns a registry with every built-in parser and
// generator registered under its canonical tag.
func DefaultRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()

	// built-in tags are distinct, registration cannot collide
	_ = reg.RegisterParser(chef.Tag, func() plugin.SourceParser { return chef.New() })
	_ = reg.RegisterParser(puppet.Tag, func() plugin.SourceParser { return puppet.New() })
	_ = reg.RegisterParser(terraform.Tag, func() plugin.SourceParser { return terraform.New() })

	_ = reg.RegisterGenerator(ansible.Tag, func() plugin.TargetGenerator { return ansible.New() })
	_ = reg.RegisterGenerator(tfgen.Tag, func() plugin.TargetGenerator { return tfgen.New() })

	return reg
}
