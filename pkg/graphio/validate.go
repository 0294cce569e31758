package graphio

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/recastops/recast/pkg/errors"
)

// documentSchema is the JSON schema for the serialized graph envelope.
// It checks structure only; closed-set membership and referential
// details are handled by the header validator and by ir.FromDocument.
var documentSchema = map[string]any{
	"type":     "object",
	"required": []any{"graph_id", "version", "nodes"},
	"properties": map[string]any{
		"graph_id":    map[string]any{"type": "string", "minLength": 1},
		"source_type": map[string]any{"type": "string"},
		"target_type": map[string]any{"type": "string"},
		"version":     map[string]any{"type": "string", "pattern": `^[0-9]+\.[0-9]+`},
		"created_at":  map[string]any{"type": "string"},
		"metadata":    map[string]any{"type": "object"},
		"nodes": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type":     "object",
				"required": []any{"node_id", "node_type", "name"},
				"properties": map[string]any{
					"node_id":      map[string]any{"type": "string", "minLength": 1},
					"node_type":    map[string]any{"type": "string"},
					"name":         map[string]any{"type": "string"},
					"parent_id":    map[string]any{"type": "string"},
					"dependencies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"actions":      map[string]any{"type": "array"},
					"attributes":   map[string]any{"type": "object"},
					"variables":    map[string]any{"type": "object"},
					"tags":         map[string]any{"type": "object"},
				},
			},
		},
	},
}

// header is the envelope's top-level fields, validated by struct tags
// before any hydration work happens.
type header struct {
	GraphID    string `json:"graph_id" validate:"required"`
	SourceType string `json:"source_type" validate:"omitempty,oneof=chef puppet terraform custom"`
	TargetType string `json:"target_type" validate:"omitempty,oneof=ansible terraform custom"`
	Version    string `json:"version" validate:"required"`
	CreatedAt  string `json:"created_at"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDocument checks a decoded serialized graph against the
// envelope JSON schema and the header field rules. Fails with
// FORMAT_ERROR listing every schema violation found.
func ValidateDocument(doc map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(documentSchema)
	docLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "schema validation")
	}
	if !result.Valid() {
		findings := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			findings = append(findings, desc.String())
		}
		return errors.New(errors.ErrCodeFormat, "document failed schema validation: %s",
			strings.Join(findings, "; "))
	}

	var h header
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode header")
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return errors.Wrap(errors.ErrCodeFormat, err, "decode header")
	}
	if err := validate.Struct(h); err != nil {
		return errors.Wrap(errors.ErrCodeFormat, err, "document header")
	}
	return nil
}
