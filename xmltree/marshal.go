package xmltree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Marshal produces the XML encoding of an Element as a self-contained
// document. Because a subtree extracted from a larger document (for
// example, one xsd:schema plucked out of a WSDL wsdl:types section)
// may rely on namespace prefixes bound above it, Marshal re-declares
// every prefix in el's own Scope on the root tag, rather than trying
// to diff against a parent that is no longer in scope once el stands
// alone.
func Marshal(el *Element) []byte {
	var buf bytes.Buffer
	if err := Encode(&buf, el); err != nil {
		// bytes.Buffer.Write never returns an error.
		panic(err)
	}
	return buf.Bytes()
}

// Encode writes the XML encoding of the Element to w.
func Encode(w io.Writer, el *Element) error {
	return encodeElement(w, el, true)
}

// String returns the XML encoding of an Element and its children as a
// string.
func (el *Element) String() string {
	return string(Marshal(el))
}

func encodeElement(w io.Writer, el *Element, root bool) error {
	if err := encodeOpenTag(w, el, root); err != nil {
		return err
	}
	if len(el.Children) == 0 {
		if len(el.Content) > 0 {
			if _, err := w.Write(el.Content); err != nil {
				return err
			}
		}
	}
	for i := range el.Children {
		if err := encodeElement(w, &el.Children[i], false); err != nil {
			return err
		}
	}
	return encodeCloseTag(w, el)
}

func encodeOpenTag(w io.Writer, el *Element, root bool) error {
	tag := el.Prefix(el.Name)
	if tag == "" {
		tag = el.Name.Local
	}
	if _, err := fmt.Fprintf(w, "<%s", tag); err != nil {
		return err
	}
	for _, a := range el.StartElement.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			// Namespace declarations are re-emitted once, from Scope,
			// on the root tag -- see the root branch below.
			continue
		}
		name := a.Name.Local
		if a.Name.Space != "" && a.Name.Space != "xmlns" {
			if p := el.Prefix(a.Name); p != "" {
				name = p
			}
		}
		if err := writeAttr(w, name, a.Value); err != nil {
			return err
		}
	}
	if root {
		for _, ns := range el.Scope {
			attr := "xmlns"
			if ns.Local != "" {
				attr += ":" + ns.Local
			}
			if err := writeAttr(w, attr, ns.Space); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, ">")
	return err
}

// writeAttr writes ` name="value"` with value escaped the way
// encoding/xml escapes attribute values, so a decoded Attr.Value
// (already unescaped by Parse's use of encoding/xml.Decoder) round-
// trips back to valid XML instead of being Go-quoted.
func writeAttr(w io.Writer, name, value string) error {
	if _, err := fmt.Fprintf(w, ` %s="`, name); err != nil {
		return err
	}
	if err := xml.EscapeText(w, []byte(value)); err != nil {
		return err
	}
	_, err := io.WriteString(w, `"`)
	return err
}

func encodeCloseTag(w io.Writer, el *Element) error {
	tag := el.Prefix(el.Name)
	if tag == "" {
		tag = el.Name.Local
	}
	_, err := fmt.Fprintf(w, "</%s>", tag)
	return err
}
