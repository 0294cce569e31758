// Package plugin defines the capability contracts parsers and generators
// implement, and the registry that binds source/target tags to them.
//
// The registry is the indirection layer between the conversion pipeline
// and concrete tool support: the pipeline asks for "the parser for chef"
// or "the generator for ansible" by tag, without static coupling to any
// implementation. Bindings are factory functions, and every lookup
// constructs a fresh instance, so implementations are free to keep
// per-run state without worrying about reuse across conversions.
package plugin

import "github.com/recastops/recast/pkg/ir"

// Options carries free-form plugin options from the config file or CLI
// flags to a parser or generator. Keys are plugin-defined.
type Options map[string]any

// String returns the option value as a string, or def when the key is
// absent or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the option value as a bool, or def when the key is absent
// or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// SourceParser turns tool-specific source files into an IR graph.
//
// Parse must fail with NOT_FOUND when the path does not exist and
// FORMAT_ERROR when the input cannot be parsed. The returned graph must
// satisfy the IR shape invariants; the core does not re-validate source
// text.
type SourceParser interface {
	// SourceType identifies the tool this parser reads.
	SourceType() ir.SourceType

	// SupportedVersions lists the tool versions the parser understands.
	SupportedVersions() []string

	// Parse reads the source at path and builds an IR graph.
	Parse(path string, opts Options) (*ir.Graph, error)

	// Validate performs a lightweight syntax check of the source at path.
	// It reports problems in the result and never fails.
	Validate(path string) ValidationResult
}

// TargetGenerator turns an IR graph into tool-specific output.
//
// Generate must fail with INCOMPATIBLE_IR when the graph contains
// constructs the target cannot represent, or an I/O error when writing
// fails. Callers run ValidateIR before Generate; the registry does not
// enforce that ordering.
type TargetGenerator interface {
	// TargetType identifies the tool this generator emits.
	TargetType() ir.TargetType

	// SupportedVersions lists the tool versions the generator emits.
	SupportedVersions() []string

	// Generate writes the graph to outputPath in the target format.
	Generate(g *ir.Graph, outputPath string, opts Options) error

	// ValidateIR reports whether the graph can be represented in the
	// target format. It never fails; incompatibilities are listed in
	// the result.
	ValidateIR(g *ir.Graph) IRValidationResult
}

// ValidationResult is the outcome of a parser's syntax check.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidationResult returns a passing result with no findings.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// AddError records a fatal finding and marks the result invalid.
func (r *ValidationResult) AddError(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

// AddWarning records a non-fatal finding.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// IRValidationResult is the outcome of a generator's compatibility check
// of an IR graph.
type IRValidationResult struct {
	Compatible bool     `json:"compatible"`
	Issues     []string `json:"issues,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewIRValidationResult returns a compatible result with no findings.
func NewIRValidationResult() IRValidationResult {
	return IRValidationResult{Compatible: true}
}

// AddIssue records an incompatibility and marks the result incompatible.
func (r *IRValidationResult) AddIssue(msg string) {
	r.Compatible = false
	r.Issues = append(r.Issues, msg)
}

// AddWarning records a finding that does not block generation.
func (r *IRValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
