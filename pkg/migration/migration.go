// Package migration implements single-step transformations of serialized
// IR documents between schema versions, and a manager that tracks the
// current and supported versions of the running process.
//
// # Model
//
// A [Migration] binds one (from, to) version pair to a pure transform over
// the document form produced by ir.Graph.Document. The [Manager] composes
// registered migrations into a path and folds the transforms over a
// document. Path resolution is deliberately single-step: a caller crossing
// more than one schema revision chains MigrateData calls explicitly.
//
// # Concurrency
//
// A Manager is created once per process and mutated only by explicit
// registration calls. It is not safe for concurrent mutation; populate it
// fully before sharing.
package migration

import (
	"slices"

	"github.com/recastops/recast/pkg/errors"
	"github.com/recastops/recast/pkg/version"
)

// TransformFunc converts a serialized graph document from one schema
// version to the next. Implementations must be pure: the input map is
// never shared with callers, and the returned map is the sole result.
type TransformFunc func(map[string]any) (map[string]any, error)

// Migration is a single-step data transformation between two versions.
// It carries no state beyond the version pair and the transform.
type Migration struct {
	From      version.Version
	To        version.Version
	Transform TransformFunc
}

// Manager tracks the current schema version, the set of supported
// versions, and the registered migrations between them.
type Manager struct {
	current    version.Version
	supported  []version.Version // sorted descending
	migrations []Migration
}

// NewManager creates a Manager whose current version is also its first
// supported version.
func NewManager(current version.Version) *Manager {
	return &Manager{
		current:   current,
		supported: []version.Version{current},
	}
}

// CurrentVersion returns the schema version the running process produces.
func (m *Manager) CurrentVersion() version.Version {
	return m.current
}

// SupportedVersions returns a copy of the supported set, sorted descending.
func (m *Manager) SupportedVersions() []version.Version {
	return slices.Clone(m.supported)
}

// RegisterMigration appends a migration. No uniqueness check is performed;
// when two migrations share a (from, to) pair, Path returns the first
// registered.
func (m *Manager) RegisterMigration(mig Migration) {
	m.migrations = append(m.migrations, mig)
}

// Migrations returns a copy of the registered migrations in registration
// order.
func (m *Manager) Migrations() []Migration {
	return slices.Clone(m.migrations)
}

// Path resolves the migrations required to move a document from one
// version to another. Equal versions yield an empty path. Otherwise a
// single exact (from, to) match is required; Path fails with NOT_FOUND
// when none is registered. Multi-hop composition across intermediate
// versions is not attempted.
func (m *Manager) Path(from, to version.Version) ([]Migration, error) {
	if from.Equal(to) {
		return nil, nil
	}
	for _, mig := range m.migrations {
		if mig.From.Equal(from) && mig.To.Equal(to) {
			return []Migration{mig}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no migration path from %s to %s", from, to)
}

// MigrateData resolves the path from one version to another and folds the
// transforms over data in order. The input document is copied before the
// first transform runs, so callers keep their original untouched.
func (m *Manager) MigrateData(data map[string]any, from, to version.Version) (map[string]any, error) {
	path, err := m.Path(from, to)
	if err != nil {
		return nil, err
	}

	out := copyDocument(data)
	for _, mig := range path {
		out, err = mig.Transform(out)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "migration %s -> %s failed", mig.From, mig.To)
		}
	}
	return out, nil
}

// IsVersionCompatible reports whether a document tagged with v can be
// consumed by this process: either v shares the current major version, or
// v has been explicitly pinned via AddSupportedVersion.
func (m *Manager) IsVersionCompatible(v version.Version) bool {
	if v.Major == m.current.Major {
		return true
	}
	for _, s := range m.supported {
		if s.Equal(v) {
			return true
		}
	}
	return false
}

// AddSupportedVersion inserts v into the supported set. The insert is
// idempotent and keeps the set sorted descending by the version triple.
func (m *Manager) AddSupportedVersion(v version.Version) {
	for _, s := range m.supported {
		if s.Equal(v) {
			return
		}
	}
	m.supported = append(m.supported, v)
	slices.SortFunc(m.supported, func(a, b version.Version) int {
		return b.Compare(a)
	})
}

// copyDocument deep-copies the JSON-shaped document structure
// (maps, slices, scalars) so transforms can mutate freely.
func copyDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
