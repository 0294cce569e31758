package plugin

import (
	"testing"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
)

type fakeParser struct {
	source ir.SourceType
}

func (p *fakeParser) SourceType() ir.SourceType      { return p.source }
func (p *fakeParser) SupportedVersions() []string    { return []string{"15", "16"} }
func (p *fakeParser) Validate(string) ValidationResult {
	return NewValidationResult()
}
func (p *fakeParser) Parse(string, Options) (*ir.Graph, error) {
	return ir.NewGraph(p.source, ir.TargetCustom), nil
}

type fakeGenerator struct {
	target ir.TargetType
}

func (g *fakeGenerator) TargetType() ir.TargetType   { return g.target }
func (g *fakeGenerator) SupportedVersions() []string { return []string{"2.17"} }
func (g *fakeGenerator) Generate(*ir.Graph, string, Options) error {
	return nil
}
func (g *fakeGenerator) ValidateIR(*ir.Graph) IRValidationResult {
	return NewIRValidationResult()
}

func TestRegisterParser(t *testing.T) {
	t.Run("first binding succeeds", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterParser("chef", func() SourceParser { return &fakeParser{source: ir.SourceChef} })
		if err != nil {
			t.Fatalf("RegisterParser() error = %v", err)
		}
		if _, ok := r.Parser("chef"); !ok {
			t.Error("Parser(chef) not found after registration")
		}
	})

	t.Run("rebinding a tag fails", func(t *testing.T) {
		r := NewRegistry()
		factory := func() SourceParser { return &fakeParser{source: ir.SourceChef} }
		if err := r.RegisterParser("chef", factory); err != nil {
			t.Fatalf("RegisterParser() error = %v", err)
		}
		err := r.RegisterParser("chef", factory)
		if !errors.Is(err, errors.ErrCodeDuplicateRegistration) {
			t.Errorf("RegisterParser() error = %v, want code %s", err, errors.ErrCodeDuplicateRegistration)
		}
	})

	t.Run("same tag for parser and generator is allowed", func(t *testing.T) {
		r := NewRegistry()
		if err := r.RegisterParser("terraform", func() SourceParser { return &fakeParser{source: ir.SourceTerraform} }); err != nil {
			t.Fatalf("RegisterParser() error = %v", err)
		}
		if err := r.RegisterGenerator("terraform", func() TargetGenerator { return &fakeGenerator{target: ir.TargetTerraform} }); err != nil {
			t.Errorf("RegisterGenerator() error = %v", err)
		}
	})

	t.Run("malformed tags are rejected", func(t *testing.T) {
		r := NewRegistry()
		factory := func() SourceParser { return &fakeParser{source: ir.SourceCustom} }
		for _, tag := range []string{"", "Chef", "che f", "chef!"} {
			if err := r.RegisterParser(tag, factory); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("RegisterParser(%q) error = %v, want code %s", tag, err, errors.ErrCodeInvalidInput)
			}
		}
	})

	t.Run("nil factory is rejected", func(t *testing.T) {
		r := NewRegistry()
		if err := r.RegisterParser("chef", nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("RegisterParser() error = %v, want code %s", err, errors.ErrCodeInvalidInput)
		}
	})
}

func TestLookupConstructsFreshInstances(t *testing.T) {
	r := NewRegistry()
	calls := 0
	err := r.RegisterParser("puppet", func() SourceParser {
		calls++
		return &fakeParser{source: ir.SourcePuppet}
	})
	if err != nil {
		t.Fatalf("RegisterParser() error = %v", err)
	}

	first, ok := r.Parser("puppet")
	if !ok {
		t.Fatal("Parser(puppet) not found")
	}
	second, _ := r.Parser("puppet")
	if first == second {
		t.Error("Parser() returned the same instance twice")
	}
	if calls != 2 {
		t.Errorf("factory called %d times, want 2", calls)
	}
}

func TestLookupUnknownTag(t *testing.T) {
	r := NewRegistry()
	if p, ok := r.Parser("nomad"); ok || p != nil {
		t.Errorf("Parser(nomad) = %v, %v; want nil, false", p, ok)
	}
	if g, ok := r.Generator("nomad"); ok || g != nil {
		t.Errorf("Generator(nomad) = %v, %v; want nil, false", g, ok)
	}
}

func TestInfo(t *testing.T) {
	r := NewRegistry()
	mustRegister := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	mustRegister(r.RegisterParser("puppet", func() SourceParser { return &fakeParser{source: ir.SourcePuppet} }))
	mustRegister(r.RegisterParser("chef", func() SourceParser { return &fakeParser{source: ir.SourceChef} }))
	mustRegister(r.RegisterGenerator("ansible", func() TargetGenerator { return &fakeGenerator{target: ir.TargetAnsible} }))

	info := r.Info()
	if len(info) != 3 {
		t.Fatalf("Info() = %d bindings, want 3", len(info))
	}
	wantTags := []string{"chef", "puppet", "ansible"}
	wantKinds := []string{"parser", "parser", "generator"}
	for i, b := range info {
		if b.Tag != wantTags[i] || b.Kind != wantKinds[i] {
			t.Errorf("Info()[%d] = %s/%s, want %s/%s", i, b.Kind, b.Tag, wantKinds[i], wantTags[i])
		}
		if len(b.Versions) == 0 {
			t.Errorf("Info()[%d].Versions is empty", i)
		}
	}
}

func TestOptions(t *testing.T) {
	opts := Options{"variant": "solo", "strict": true, "depth": 3}

	if got := opts.String("variant", "infra"); got != "solo" {
		t.Errorf("String(variant) = %q, want solo", got)
	}
	if got := opts.String("missing", "infra"); got != "infra" {
		t.Errorf("String(missing) = %q, want default", got)
	}
	if got := opts.String("depth", "x"); got != "x" {
		t.Errorf("String(depth) = %q, want default for non-string", got)
	}
	if !opts.Bool("strict", false) {
		t.Error("Bool(strict) = false, want true")
	}
	if opts.Bool("missing", false) {
		t.Error("Bool(missing) = true, want default false")
	}
}

func TestValidationResults(t *testing.T) {
	vr := NewValidationResult()
	if !vr.Valid {
		t.Error("NewValidationResult().Valid = false")
	}
	vr.AddWarning("deprecated syntax")
	if !vr.Valid {
		t.Error("warning flipped Valid to false")
	}
	vr.AddError("unbalanced block")
	if vr.Valid {
		t.Error("error did not flip Valid to false")
	}

	irv := NewIRValidationResult()
	irv.AddWarning("guard approximated")
	if !irv.Compatible {
		t.Error("warning flipped Compatible to false")
	}
	irv.AddIssue("unsupported node type")
	if irv.Compatible {
		t.Error("issue did not flip Compatible to false")
	}
}
