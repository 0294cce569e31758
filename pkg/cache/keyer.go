package cache

// Keyer derives cache keys for the two things the pipeline caches:
// parse results (keyed by source content and parser options) and
// serialized graphs (keyed by graph ID).
type Keyer interface {
	// ParseKey derives the key for a parse result: the same source
	// bytes parsed by the same tool with the same options map to the
	// same key.
	ParseKey(source string, content []byte, opts map[string]any) string

	// DocumentKey derives the key for a serialized graph by its ID.
	DocumentKey(graphID string) string
}

// DefaultKeyer derives content-addressed keys with a per-concern prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ParseKey hashes the source tool tag, the content hash, and the parser
// options into a parse-result key.
func (k *DefaultKeyer) ParseKey(source string, content []byte, opts map[string]any) string {
	return hashKey("parse", source, Hash(content), opts)
}

// DocumentKey returns the key for a stored graph document.
func (k *DefaultKeyer) DocumentKey(graphID string) string {
	return "graph:" + graphID
}

// ScopedKeyer wraps a Keyer with a prefix so separate projects or
// tenants sharing one backend get isolated namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
// A nil inner keyer defaults to the standard one.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ParseKey generates a prefixed parse-result key.
func (k *ScopedKeyer) ParseKey(source string, content []byte, opts map[string]any) string {
	return k.prefix + k.inner.ParseKey(source, content, opts)
}

// DocumentKey generates a prefixed graph document key.
func (k *ScopedKeyer) DocumentKey(graphID string) string {
	return k.prefix + k.inner.DocumentKey(graphID)
}
