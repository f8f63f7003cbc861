package xsd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CognitoIQ/xsdvalidate/internal/ordered"
)

// This file implements §4.G: the per-element callback the decoder
// invokes bottom-up, which resolves each element's type by walking
// the path from the document root, coerces its attributes and
// content, and collapses child groups that aren't actually arrays.

// normalize is the reportFunc the Parser hands to decodeDocument.
func (p *Parser) normalize(path []QName, node Node) (interface{}, error) {
	if err := p.checkNamespaces(path); err != nil {
		return nil, err
	}

	spec, chain, err := p.resolveChain(path)
	if err != nil {
		return nil, err
	}

	attrs, err := p.validateAttrs(node, spec.Type, path)
	if err != nil {
		return nil, err
	}

	parsers, err := p.reg.resolveToParse(spec.Type)
	if err != nil {
		return nil, p.wrapErr(err, path)
	}

	if len(parsers) > 0 {
		return p.coerceSimpleLeaf(node, attrs, parsers, path)
	}
	return p.coerceComplexLeaf(node, attrs, chain, path)
}

// checkNamespaces rejects a path that uses a namespace URI no loaded
// schema ever bound to a prefix -- a cheap sanity check ahead of the
// real element/type lookups, per the UnknownNamespace error kind.
func (p *Parser) checkNamespaces(path []QName) error {
	for i, q := range path {
		if q.Space == "" {
			continue
		}
		if _, ok := p.reg.Namespaces.Prefix(q.Space); !ok {
			return p.pathErr(UnknownNamespace, path[:i+1], "namespace %s is not declared by any loaded schema", q.Space)
		}
	}
	return nil
}

// resolveChain walks path from the document root, descending through
// the global Elements map and then each ancestor's resolved Children
// (or "any" wildcard) map, and returns the terminal ChildSpec for
// path's last element along with its resolved type chain.
func (p *Parser) resolveChain(path []QName) (ChildSpec, []*TypeEntry, error) {
	var (
		childrenMap map[QName]ChildSpec
		anyMode     bool
		spec        ChildSpec
	)

	for i, q := range path {
		var raw ChildSpec
		switch {
		case i == 0:
			ee, ok := p.reg.Elements[q]
			if !ok {
				return ChildSpec{}, nil, p.unknownElementErr(path[:i+1], sortedQNames(elementKeys(p.reg.Elements)))
			}
			raw = ee.asChildSpec()
		case anyMode:
			ee, ok := p.reg.Elements[q]
			if !ok {
				return ChildSpec{}, nil, p.unknownElementErr(path[:i+1], sortedQNames(elementKeys(p.reg.Elements)))
			}
			raw = ee.asChildSpec()
		default:
			cs, ok := childrenMap[q]
			if !ok {
				return ChildSpec{}, nil, p.unknownElementErr(path[:i+1], sortedQNames(childSpecKeys(childrenMap)))
			}
			raw = cs
		}

		resolved, err := p.reg.resolveElement(raw)
		if err != nil {
			return ChildSpec{}, nil, p.wrapErr(err, path[:i+1])
		}
		spec = resolved

		chain, err := p.reg.resolveType(spec.Type)
		if err != nil {
			return ChildSpec{}, nil, p.wrapErr(err, path[:i+1])
		}

		if i == len(path)-1 {
			return spec, chain, nil
		}

		anyMode = false
		childrenMap = nil
		found := false
		for _, t := range chain {
			if !t.isComplex() {
				continue
			}
			if t.AnyChildren {
				anyMode = true
				found = true
				break
			}
			if len(t.Children) > 0 {
				childrenMap = t.Children
				found = true
				break
			}
		}
		if !found {
			return ChildSpec{}, nil, p.pathErr(UnexpectedChildren, path[:i+1], "element %s has no declared children, but the document nests elements under it", lastLocal(path[:i+1]))
		}
	}

	panic("unreachable: empty path")
}

func elementKeys(m map[QName]*ElementEntry) []QName {
	out := make([]QName, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func childSpecKeys(m map[QName]ChildSpec) []QName {
	out := make([]QName, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// validateAttrs checks node's attribute group against typeName's
// resolved attribute set, dropping xmlns/xsi:* housekeeping attributes,
// coercing each surviving value, and namespace-qualifying the output
// key when the Parser is configured to do so.
func (p *Parser) validateAttrs(node Node, typeName QName, path []QName) (map[string]interface{}, error) {
	raw, _ := node[p.opts.attrKey()].(map[string]interface{})
	if len(raw) == 0 {
		return nil, nil
	}
	allowed, err := p.reg.resolveToAttributes(typeName)
	if err != nil {
		return nil, p.wrapErr(err, path)
	}

	out := map[string]interface{}{}
	var rangeErr error
	ordered.RangeStrings(raw, func(key string) {
		if rangeErr != nil {
			return
		}
		val := raw[key]
		name := parseGroupKey(key)
		if name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns") || name.Space == schemaInstanceNS {
			return
		}
		aspec, ok := allowed[name]
		if !ok {
			rangeErr = p.unexpectedAttributeErr(path, name, allowed)
			return
		}
		typ, err := p.reg.resolveAttribute(aspec)
		if err != nil {
			rangeErr = p.wrapErr(err, path)
			return
		}
		parsers, err := p.reg.resolveToParse(typ)
		if err != nil {
			rangeErr = p.wrapErr(err, path)
			return
		}
		s, _ := val.(string)
		v, err := tryParse(parsers, s)
		if err != nil {
			rangeErr = p.wrapErr(err, append(path, name))
			return
		}
		out[p.outputName(name)] = v
	})
	if rangeErr != nil {
		return nil, rangeErr
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// tryParse attempts each parser in turn against s, trying parse[i] on
// the i-th attempt -- never re-trying parse[0] -- and returning the
// first success. On total failure it returns the last parser's error,
// since that is the attempt that got furthest through the candidate
// list. See SPEC_FULL.md §8 property 8.
func tryParse(parsers []ValueParser, s string) (interface{}, error) {
	var lastErr error
	for _, parse := range parsers {
		v, err := parse(s)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = newError(CoercionError, "no applicable type for value %q", s)
	}
	return nil, lastErr
}

// coerceSimpleLeaf handles an element whose resolved type has a parse
// chain: the bare-string case, the charkey-only object case, and the
// attributes-plus-charkey case described in §4.G step 5.
func (p *Parser) coerceSimpleLeaf(node Node, attrs map[string]interface{}, parsers []ValueParser, path []QName) (interface{}, error) {
	if hasChildGroups(node, p.opts.attrKey(), p.opts.charKey()) {
		return nil, p.pathErr(SchemaMismatch, path, "expected simple content for %s, found child elements", lastLocal(path))
	}
	charVal, _ := node[p.opts.charKey()].(string)
	v, err := tryParse(parsers, charVal)
	if err != nil {
		return nil, p.wrapErr(err, path)
	}
	if len(attrs) == 0 {
		return v, nil
	}
	out := map[string]interface{}{
		p.opts.attrKey(): attrs,
		p.opts.charKey(): v,
	}
	return out, nil
}

// coerceComplexLeaf handles an element whose resolved type has
// children or an <any> wildcard: each child group is re-keyed to its
// output name and collapsed from a slice to a single value unless its
// ChildSpec says it's an array.
func (p *Parser) coerceComplexLeaf(node Node, attrs map[string]interface{}, chain []*TypeEntry, path []QName) (interface{}, error) {
	var ct *TypeEntry
	for _, t := range chain {
		if t.isComplex() && (t.AnyChildren || len(t.Children) > 0) {
			ct = t
			break
		}
	}

	out := map[string]interface{}{}
	if len(attrs) > 0 {
		out[p.opts.attrKey()] = attrs
	}

	var rangeErr error
	ordered.RangeStrings(node, func(key string) {
		if rangeErr != nil || key == p.opts.attrKey() || key == p.opts.charKey() {
			return
		}
		group, ok := node[key].([]interface{})
		if !ok {
			return
		}
		childName := parseGroupKey(key)
		childPath := append(append([]QName{}, path...), childName)

		isArray, outKey, err := p.classifyChildGroup(ct, childName, childPath)
		if err != nil {
			rangeErr = err
			return
		}
		if isArray {
			out[outKey] = group
			return
		}
		if len(group) != 1 {
			rangeErr = p.pathErr(UnexpectedChildren, childPath, "expected exactly one %s, found %d", childName.Local, len(group))
			return
		}
		out[outKey] = group[0]
	})
	if rangeErr != nil {
		return nil, rangeErr
	}

	if charVal, ok := node[p.opts.charKey()].(string); ok && strings.TrimSpace(charVal) != "" {
		// Mixed content on a type with structural children has no
		// declared shape to coerce into; it is carried through
		// verbatim rather than discarded.
		out[p.opts.charKey()] = charVal
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (p *Parser) classifyChildGroup(ct *TypeEntry, childName QName, childPath []QName) (bool, string, error) {
	outKey := p.outputName(childName)
	if ct == nil {
		return false, outKey, p.pathErr(UnexpectedChildren, childPath, "element %s declares no children", lastLocal(childPath[:len(childPath)-1]))
	}
	if ct.AnyChildren {
		return ct.IsArray, outKey, nil
	}
	cs, ok := ct.Children[childName]
	if !ok {
		return false, outKey, p.unknownElementErr(childPath, sortedQNames(childSpecKeys(ct.Children)))
	}
	resolved, err := p.reg.resolveElement(cs)
	if err != nil {
		return false, outKey, p.wrapErr(err, childPath)
	}
	return resolved.resolvedIsArray(), outKey, nil
}

func hasChildGroups(node Node, attrKey, charKey string) bool {
	for k := range node {
		if k != attrKey && k != charKey {
			return true
		}
	}
	return false
}

// ---- error construction & namespace qualification ----

func (p *Parser) qualify(name QName) string {
	if name.Space == "" {
		return name.Local
	}
	if prefix, ok := p.reg.Namespaces.Prefix(name.Space); ok {
		return qualify(prefix, name.Local)
	}
	return name.Local
}

// outputName is the key a successfully-validated element/attribute is
// written back out under: its bare local name, or "prefix:local" when
// the Parser was configured with OutputWithNamespace.
func (p *Parser) outputName(name QName) string {
	if !p.opts.OutputWithNamespace {
		return name.Local
	}
	return p.qualify(name)
}

func (p *Parser) pathStrings(path []QName) []string {
	out := make([]string, len(path))
	for i, q := range path {
		out[i] = p.qualify(q)
	}
	return out
}

func (p *Parser) pathErr(kind ErrorKind, path []QName, format string, args ...interface{}) *SchemaError {
	segs := p.pathStrings(path)
	rev := make([]string, len(segs))
	for i, s := range segs {
		rev[len(segs)-1-i] = s
	}
	return &SchemaError{Kind: kind, Path: rev, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) wrapErr(err error, path []QName) error {
	se, ok := err.(*SchemaError)
	if !ok {
		return err
	}
	if len(se.Path) > 0 {
		return se
	}
	return &SchemaError{Kind: se.Kind, Path: reversePath(p.pathStrings(path)), Message: se.Message, Allowed: se.Allowed, Cause: se.Cause}
}

func reversePath(segs []string) []string {
	rev := make([]string, len(segs))
	for i, s := range segs {
		rev[len(segs)-1-i] = s
	}
	return rev
}

func (p *Parser) unknownElementErr(path []QName, allowed []QName) *SchemaError {
	err := p.pathErr(UnknownElement, path, "unrecognized element %s", lastLocal(path))
	err.Allowed = p.qualifyAll(allowed)
	return err
}

func (p *Parser) unexpectedAttributeErr(path []QName, name QName, allowed map[QName]AttrSpec) *SchemaError {
	full := append(append([]QName{}, path...), name)
	err := p.pathErr(UnexpectedAttribute, full, "unrecognized attribute %s", p.qualify(name))
	err.Allowed = p.qualifyAll(sortedQNames(attrSpecKeys(allowed)))
	return err
}

func (p *Parser) qualifyAll(names []QName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = p.qualify(n)
	}
	return out
}

func attrSpecKeys(m map[QName]AttrSpec) []QName {
	out := make([]QName, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedQNames(names []QName) []QName {
	out := append([]QName{}, names...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Space != out[j].Space {
			return out[i].Space < out[j].Space
		}
		return out[i].Local < out[j].Local
	})
	return out
}

func lastLocal(path []QName) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1].Local
}
