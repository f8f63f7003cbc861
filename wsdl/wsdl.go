// Package wsdl extracts the XML Schema documents embedded in a WSDL
// service description's <types> section.
//
// A WSDL document typically doesn't reference its schemas via
// xsi:schemaLocation at all: they're inlined directly under
// wsdl:types as one or more xsd:schema elements, keyed by their own
// targetNamespace. ExtractSchemas finds those and hands each one back
// as a self-contained document, so the xsd package's acquisition
// driver (see SPEC_FULL.md §4.F/§4.L) can compile them the same way
// it compiles a schema it downloaded.
package wsdl

import (
	"github.com/CognitoIQ/xsdvalidate/xmltree"
)

const (
	wsdlNS   = "http://schemas.xmlsoap.org/wsdl/"
	schemaNS = "http://www.w3.org/2001/XMLSchema"
)

// ExtractSchemas parses doc as a WSDL document and returns every
// xsd:schema element found under its wsdl:types section, keyed by
// each schema's own targetNamespace. A schema with no
// targetNamespace is keyed by the empty string; if more than one such
// chameleon schema is present, only the last one found survives --
// WSDL documents in practice declare a targetNamespace on every
// embedded schema, so this is not expected to matter.
func ExtractSchemas(doc []byte) (map[string][]byte, error) {
	root, err := xmltree.Parse(doc)
	if err != nil {
		return nil, err
	}
	out := map[string][]byte{}
	for _, types := range root.Search(wsdlNS, "types") {
		for _, schema := range types.Search(schemaNS, "schema") {
			ns := schema.Attr("", "targetNamespace")
			out[ns] = xmltree.Marshal(schema)
		}
	}
	return out, nil
}
