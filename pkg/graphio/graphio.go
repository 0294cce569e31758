// Package graphio reads and writes the serialized form of IR graphs.
//
// The serialized form (a versioned JSON envelope) is the sole
// representation used for files, the store, and the cache. Reading
// validates the envelope structure before hydration and routes
// documents tagged with an older schema version through the migration
// engine, so the rest of the system only ever sees graphs at the
// current schema version.
//
// All file and network I/O of the conversion core's data lives here or
// further out; the ir, version, migration, and plugin packages never
// touch the filesystem.
package graphio

import (
	"encoding/json"
	"io"
	"os"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/ir"
	"github.com/recastops/recast/pkg/migration"
	"github.com/recastops/recast/pkg/version"
)

// Write encodes the graph's serialized form as indented JSON.
func Write(g *ir.Graph, w io.Writer) error {
	doc, err := g.Document()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "encode graph %s", g.ID)
	}
	return nil
}

// WriteFile writes the graph's serialized form to a file at path.
func WriteFile(g *ir.Graph, path string) error {
	if err := errors.ValidateSourcePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	defer f.Close()
	return Write(g, f)
}

// Read decodes, validates, migrates, and hydrates a serialized graph.
//
// The version gate: a document already at the manager's current version
// hydrates directly; a document with a migration path to the current
// version is upgraded first; a document with no path but a compatible
// version (same major, or explicitly pinned) hydrates as-is; anything
// else fails with UNSUPPORTED.
func Read(r io.Reader, versions *migration.Manager) (*ir.Graph, error) {
	var doc map[string]any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "decode document")
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	doc, err := applyVersionGate(doc, versions)
	if err != nil {
		return nil, err
	}
	return ir.FromDocument(doc)
}

// ReadFile reads a serialized graph from a file at path. Fails with
// NOT_FOUND when the file does not exist.
func ReadFile(path string, versions *migration.Manager) (*ir.Graph, error) {
	if err := errors.ValidateSourcePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeNotFound, "graph file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return Read(f, versions)
}

// applyVersionGate upgrades doc to the manager's current version when a
// migration path exists, passes compatible documents through unchanged,
// and rejects the rest.
func applyVersionGate(doc map[string]any, versions *migration.Manager) (map[string]any, error) {
	raw, _ := doc["version"].(string)
	v, err := version.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "document version %q", raw)
	}

	current := versions.CurrentVersion()
	if v.Equal(current) {
		return doc, nil
	}
	upgraded, err := Upgrade(doc, v, current, versions)
	if err == nil {
		return upgraded, nil
	}
	if !errors.Is(err, errors.ErrCodeNotFound) {
		return nil, err
	}
	if versions.IsVersionCompatible(v) {
		return doc, nil
	}
	return nil, errors.New(errors.ErrCodeUnsupported,
		"document schema version %s is not supported by this build (current %s)", v, current)
}

// Upgrade walks doc from one schema version to another by chaining
// registered single-step migrations: at each step the first registered
// migration out of the current version is applied. Fails with NOT_FOUND
// when the walk cannot reach the target.
func Upgrade(doc map[string]any, from, to version.Version, versions *migration.Manager) (map[string]any, error) {
	migrations := versions.Migrations()
	for steps := 0; !from.Equal(to); steps++ {
		if steps > len(migrations) {
			return nil, errors.New(errors.ErrCodeNotFound,
				"no migration path from %s to %s", from, to)
		}
		next, ok := nextVersion(migrations, from)
		if !ok {
			return nil, errors.New(errors.ErrCodeNotFound,
				"no migration path from %s to %s", from, to)
		}
		upgraded, err := versions.MigrateData(doc, from, next)
		if err != nil {
			return nil, err
		}
		doc = upgraded
		from = next
	}
	return doc, nil
}

// nextVersion returns the destination of the first registered migration
// out of v.
func nextVersion(migrations []migration.Migration, v version.Version) (version.Version, bool) {
	for _, m := range migrations {
		if m.From.Equal(v) {
			return m.To, true
		}
	}
	return version.Version{}, false
}
