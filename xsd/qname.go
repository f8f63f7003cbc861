package xsd

import "encoding/xml"

// QName is a qualified name: a namespace URI paired with a local
// name. It is the key type for every registry in this package.
type QName = xml.Name

// schemaNS is the XML Schema namespace itself. Its prefix is stripped
// during compilation (see compiler.qn) so that built-in type
// names are stored without a namespace prefix, matching how they are
// referenced throughout this package.
const schemaNS = "http://www.w3.org/2001/XMLSchema"

// schemaInstanceNS is the namespace of the xsi:schemaLocation and
// xsi:type attributes.
const schemaInstanceNS = "http://www.w3.org/2001/XMLSchema-instance"

// xmlNS is the namespace pre-seeded into every NamespaceTable under
// the "xml" prefix, per the XML specification.
const xmlNS = "http://www.w3.org/XML/1998/namespace"

// NamespaceTable maps namespace URIs to the single prefix they are
// known by within one Registry. Each URI may bind to exactly one
// prefix over the life of a Registry; a second, different binding is
// a NamespaceConflict.
type NamespaceTable struct {
	prefixByURI map[string]string
	uriByPrefix map[string]string
}

// NewNamespaceTable returns a table pre-seeded with the standard
// "xml" prefix binding required by the XML specification.
func NewNamespaceTable() *NamespaceTable {
	t := &NamespaceTable{
		prefixByURI: make(map[string]string),
		uriByPrefix: make(map[string]string),
	}
	t.prefixByURI[xmlNS] = "xml"
	t.uriByPrefix["xml"] = xmlNS
	return t
}

// Bind records that uri is known by prefix. Binding the same URI to
// the same prefix twice is a no-op. Binding an already-known URI to a
// different prefix returns a NamespaceConflict.
func (t *NamespaceTable) Bind(uri, prefix string) error {
	if existing, conflict := t.Conflicts(uri, prefix); conflict {
		return &SchemaError{
			Kind:    NamespaceConflict,
			Message: "namespace " + uri + " is already bound to prefix " + existing + ", cannot rebind to " + prefix,
		}
	}
	if uri == "" {
		return nil
	}
	t.prefixByURI[uri] = prefix
	t.uriByPrefix[prefix] = uri
	return nil
}

// Conflicts reports whether uri is already bound to some prefix other
// than prefix, without recording anything. Callers that need to check
// a batch of bindings before committing any of them use this instead
// of Bind.
func (t *NamespaceTable) Conflicts(uri, prefix string) (existing string, conflict bool) {
	if uri == "" {
		return "", false
	}
	existing, ok := t.prefixByURI[uri]
	if ok && existing != prefix {
		return existing, true
	}
	return "", false
}

// Prefix returns the prefix bound to uri, and whether a binding
// exists.
func (t *NamespaceTable) Prefix(uri string) (string, bool) {
	if uri == "" {
		return "", true
	}
	p, ok := t.prefixByURI[uri]
	return p, ok
}

// URI returns the namespace bound to prefix, and whether a binding
// exists.
func (t *NamespaceTable) URI(prefix string) (string, bool) {
	if prefix == "" {
		return "", true
	}
	u, ok := t.uriByPrefix[prefix]
	return u, ok
}

// qualify joins a prefix and local name into the "prefix:local" form,
// or returns local unchanged if prefix is empty.
func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
