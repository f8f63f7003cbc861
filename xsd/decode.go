package xsd

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// This file implements the ambient generic document decoder described
// in SPEC_FULL.md §3.1/§4.I: a thin streaming wrapper over
// encoding/xml.Decoder that turns a document into the
// string-or-object node shape the validator (validate.go) walks,
// invoking a reporter once per element, bottom-up, as each element's
// end tag is seen.
//
// Unlike the xml2js-style tree §3.1 describes, Go's encoding/xml
// already resolves every element and attribute name's namespace
// prefix to its URI as it scans, so there is no need to carry a
// separate "resolved name" key through the tree for that purpose.
// What the decoder still needs a private channel for is disambiguating
// *groups of same-local-name children that live in different
// namespaces* -- groupKey encodes a child's full QName into the
// string used as its map key, and parseGroupKey recovers it on the
// way back out in validate.go.

// Node is the generic value produced for one element: an empty map
// for an empty leaf, otherwise a map carrying an attributes sub-object (under
// parser.attrKey), character data (under parser.charKey), and zero or
// more ordered child groups keyed by groupKey(child QName).
type Node = map[string]interface{}

const groupKeySep = "\x1f"

// groupKey encodes name as the map key used for its child/attribute
// group, preserving namespace information that a bare local-name key
// would lose.
func groupKey(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + groupKeySep + name.Local
}

// parseGroupKey recovers the QName encoded by groupKey.
func parseGroupKey(key string) QName {
	if i := strings.Index(key, groupKeySep); i >= 0 {
		return QName{Space: key[:i], Local: key[i+1:]}
	}
	return QName{Local: key}
}

// reportFunc is invoked once per element, after all of its children
// have already been reported and folded into node. path is the
// resolved QName chain from the document root down to and including
// this element. The returned value replaces node as what the parent
// sees under this element's group key (or becomes the decode result,
// for the root element).
type reportFunc func(path []QName, node Node) (interface{}, error)

// decodeOptions configures the reserved object keys the decoder
// writes into each Node, mirroring Options.AttrKey/CharKey.
type decodeOptions struct {
	AttrKey string
	CharKey string
}

// decodeDocument streams data with encoding/xml, building the generic
// node tree bottom-up and invoking report on each element close. It
// returns the (possibly coerced, if report normalizes) root value and
// the root element's resolved name.
func decodeDocument(data []byte, opts decodeOptions, report reportFunc) (interface{}, QName, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var values []Node
	var names []QName

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, QName{}, &SchemaError{Kind: InvalidSchema, Message: "malformed document", Cause: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := Node{}
			if len(t.Attr) > 0 {
				attrs := map[string]interface{}{}
				for _, a := range t.Attr {
					attrs[groupKey(a.Name)] = a.Value
				}
				node[opts.AttrKey] = attrs
			}
			values = append(values, node)
			names = append(names, t.Name)

		case xml.CharData:
			if len(values) == 0 {
				continue
			}
			cur := values[len(values)-1]
			text := string(t)
			if existing, ok := cur[opts.CharKey].(string); ok {
				cur[opts.CharKey] = existing + text
			} else {
				cur[opts.CharKey] = text
			}

		case xml.EndElement:
			idx := len(values) - 1
			node := values[idx]
			name := names[idx]
			values = values[:idx]
			names = names[:idx]

			path := append(append([]QName{}, names...), name)
			normalized, err := report(path, node)
			if err != nil {
				return nil, QName{}, err
			}

			if idx == 0 {
				return normalized, name, nil
			}
			parent := values[idx-1]
			key := groupKey(name)
			group, _ := parent[key].([]interface{})
			parent[key] = append(group, normalized)
		}
	}

	return nil, QName{}, newError(InvalidSchema, "document has no root element")
}
