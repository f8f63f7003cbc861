package xsd

import (
	"crypto/sha256"
	"math/rand"
)

// Registry is the process-scoped (per Parser instance) collection of
// everything a set of committed schemas has declared: namespace
// prefixes, types, global elements, global attributes, and the
// bookkeeping needed to make re-adding a schema a no-op. A zero
// Registry is not usable; construct one with NewRegistry.
//
// Registry entries are write-once after a schema commits: compilation
// either succeeds and mutates the maps below, or fails and leaves
// them untouched (see Registry.commit).
type Registry struct {
	Namespaces *NamespaceTable
	Types      map[QName]*TypeEntry
	Elements   map[QName]*ElementEntry
	Attributes map[QName]*AttributeEntry

	// parsedSchemas tracks schema bodies already compiled, keyed by
	// namespace URI, with the sha256 of the body as the value set.
	// Re-adding an identical body is then a provable no-op (§3
	// invariant, §8 property 1).
	parsedSchemas *multiMap
	// downloadedSchemas tracks (namespace, url) pairs already
	// fetched, so the acquisition driver's closure (§4.F) can break
	// import cycles.
	downloadedSchemas *multiMap

	anonRand *rand.Rand
}

// NewRegistry returns an empty Registry, ready to have schemas
// compiled into it.
func NewRegistry() *Registry {
	r := &Registry{
		Namespaces:        NewNamespaceTable(),
		Types:             make(map[QName]*TypeEntry),
		Elements:          make(map[QName]*ElementEntry),
		Attributes:        make(map[QName]*AttributeEntry),
		parsedSchemas:     newMultiMap(),
		downloadedSchemas: newMultiMap(),
		anonRand:          rand.New(rand.NewSource(1)),
	}
	for local, parse := range builtinTypes {
		name := builtinQName(local)
		r.Types[name] = &TypeEntry{Name: name, Kind: SimpleKind, Parse: parse}
	}
	return r
}

func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return string(sum[:])
}

// alreadyParsed reports whether body has already been compiled under
// namespace uri.
func (r *Registry) alreadyParsed(uri string, body []byte) bool {
	return r.parsedSchemas.Has(uri, bodyDigest(body))
}

func (r *Registry) markParsed(uri string, body []byte) {
	r.parsedSchemas.Add(uri, bodyDigest(body))
}

// commit merges a compiler's staged types, elements, attributes, and
// namespace bindings into r, and marks uri/body parsed. It is only
// ever called after compiler.run has returned without error, so the
// conflict checks bindNamespace already performed against r.Namespaces
// cannot fail here -- the Bind calls below cannot return an error.
func (r *Registry) commit(uri string, body []byte, c *compiler) {
	for ns, prefix := range c.nsBindings {
		r.Namespaces.Bind(ns, prefix)
	}
	for name, t := range c.types {
		r.Types[name] = t
	}
	for name, e := range c.elements {
		r.Elements[name] = e
	}
	for name, a := range c.attributes {
		r.Attributes[name] = a
	}
	r.markParsed(uri, body)
}

// anyNamespaceParsed reports whether any schema body has been
// committed for uri, regardless of its content -- used by the
// acquisition driver to skip a namespace it already satisfied.
func (r *Registry) anyNamespaceParsed(uri string) bool {
	return len(r.parsedSchemas.Values(uri)) > 0
}

func (r *Registry) alreadyDownloaded(uri, url string) bool {
	return r.downloadedSchemas.Has(uri, url)
}

func (r *Registry) markDownloaded(uri, url string) {
	r.downloadedSchemas.Add(uri, url)
}

// KnownSchemas returns a snapshot of the namespaces this registry has
// committed schema bodies for, mapped to the set of schemaLocation
// URLs that have been downloaded to satisfy that namespace (empty for
// namespaces that were only ever pushed directly via AddSchema).
func (r *Registry) KnownSchemas() map[string][]string {
	out := make(map[string][]string, len(r.parsedSchemas.Keys()))
	for _, uri := range r.parsedSchemas.Keys() {
		out[uri] = r.downloadedSchemas.Values(uri)
	}
	return out
}

// newAnonymousTypeName synthesizes a unique type name for an inline,
// anonymous <complexType>/<simpleType> nested under elemName, per
// §3's "Global element entry" and §9's "Anonymous inline types" note.
// The randomness is drawn from a Registry-local source so that a
// fixed Registry always synthesizes the same names for the same
// sequence of compilations -- determinism is per-Registry, not
// global.
func (r *Registry) newAnonymousTypeName(elemName QName) QName {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = alphabet[r.anonRand.Intn(len(alphabet))]
	}
	return QName{Space: elemName.Space, Local: elemName.Local + "-type-" + string(buf)}
}
