package migration

import "github.com/recastops/recast/pkg/version"

// CurrentSchemaVersion is the IR schema version this build reads and
// writes natively. Serialized graphs tagged with an older version are
// migrated forward before hydration.
const CurrentSchemaVersion = "1.2.0"

// Schema history:
//
//	1.0.0  initial serialized form
//	1.1.0  nodes gain a string-to-string "tags" map
//	1.2.0  guards gain a "negated" flag, metadata gains a "notes" list
var schemaHistory = []string{"1.0.0", "1.1.0", CurrentSchemaVersion}

// NewSchemaManager returns a Manager preloaded with the IR schema
// history: current version, every historical version pinned as
// supported, and the builtin migrations registered.
func NewSchemaManager() *Manager {
	m := NewManager(version.MustParse(CurrentSchemaVersion))
	for _, s := range schemaHistory {
		m.AddSupportedVersion(version.MustParse(s))
	}
	RegisterBuiltinMigrations(m)
	return m
}

// RegisterBuiltinMigrations registers the transforms between consecutive
// IR schema versions on m. Each transform also rewrites the document's
// "version" field so chained single-step migrations stay coherent.
func RegisterBuiltinMigrations(m *Manager) {
	m.RegisterMigration(Migration{
		From:      version.MustParse("1.0.0"),
		To:        version.MustParse("1.1.0"),
		Transform: migrateAddNodeTags,
	})
	m.RegisterMigration(Migration{
		From:      version.MustParse("1.1.0"),
		To:        version.MustParse("1.2.0"),
		Transform: migrateGuardNegationAndNotes,
	})
}

// migrateAddNodeTags (1.0.0 -> 1.1.0) gives every node an empty "tags"
// map when the field is absent.
func migrateAddNodeTags(doc map[string]any) (map[string]any, error) {
	for _, node := range documentNodes(doc) {
		if _, ok := node["tags"]; !ok {
			node["tags"] = map[string]any{}
		}
	}
	doc["version"] = "1.1.0"
	return doc, nil
}

// migrateGuardNegationAndNotes (1.1.0 -> 1.2.0) gives every guard an
// explicit "negated" flag and every metadata object a "notes" list.
func migrateGuardNegationAndNotes(doc map[string]any) (map[string]any, error) {
	for _, node := range documentNodes(doc) {
		ensureNotes(node["metadata"])
		actions, _ := node["actions"].([]any)
		for _, a := range actions {
			action, ok := a.(map[string]any)
			if !ok {
				continue
			}
			ensureNotes(action["metadata"])
			guards, _ := action["guards"].([]any)
			for _, g := range guards {
				guard, ok := g.(map[string]any)
				if !ok {
					continue
				}
				if _, ok := guard["negated"]; !ok {
					guard["negated"] = false
				}
				ensureNotes(guard["metadata"])
			}
		}
	}
	doc["version"] = "1.2.0"
	return doc, nil
}

// documentNodes returns the node objects of a serialized graph document,
// tolerating absent or malformed node maps.
func documentNodes(doc map[string]any) []map[string]any {
	nodes, _ := doc["nodes"].(map[string]any)
	out := make([]map[string]any, 0, len(nodes))
	for _, v := range nodes {
		if node, ok := v.(map[string]any); ok {
			out = append(out, node)
		}
	}
	return out
}

func ensureNotes(v any) {
	meta, ok := v.(map[string]any)
	if !ok {
		return
	}
	if _, ok := meta["notes"]; !ok {
		meta["notes"] = []any{}
	}
}
