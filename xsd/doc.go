// Package xsd compiles XML Schema (XSD) documents into an in-memory
// type registry, and uses that registry to validate and normalize XML
// documents as they are decoded.
//
// Unlike a schema-to-Go-struct generator, this package never produces
// source code. Instead it drives a streaming decode of a document: for
// every element, it resolves the element's namespaced path against the
// registry, rejects unknown elements and attributes, coerces leaf text
// to native Go values (numbers, booleans, time.Time, []byte), and
// collapses repeated child groups down to a single value wherever the
// schema says maxOccurs is 1.
//
// A Parser is the entry point. Schemas can be pushed directly with
// AddSchema, or discovered from a document's xsi:schemaLocation hints
// with AddDocumentSchemas when the DownloadSchemas option is set.
package xsd // import "github.com/CognitoIQ/xsdvalidate/xsd"
