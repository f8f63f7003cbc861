package xsd

// This file implements the resolution helpers described in §4.H:
// chasing ref and base-type chains so the validator always has a flat
// list to try, whether the source was a union or a single type.

// resolveType walks name's base chain, flattening unions, and returns
// every TypeEntry in the chain (closest first). It fails with
// UnknownType if any link in the chain is dangling.
func (r *Registry) resolveType(name QName) ([]*TypeEntry, error) {
	t, ok := r.Types[name]
	if !ok {
		return nil, newError(UnknownType, "type %s is not declared in the registry", name.Local)
	}
	return r.resolveTypeChain(t)
}

func (r *Registry) resolveTypeChain(t *TypeEntry) ([]*TypeEntry, error) {
	out := []*TypeEntry{t}
	for _, b := range t.Base {
		bt, ok := r.Types[b]
		if !ok {
			return nil, newError(UnknownType, "type %s references unknown base type %s", t.Name.Local, b.Local)
		}
		sub, err := r.resolveTypeChain(bt)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// resolveToParse walks name's base chain, collecting every ValueParser
// found. A single-based chain contributes at most one parser (the
// built-in at the end of the chain, if any); a union contributes one
// per resolvable member. The returned list may be empty when name
// resolves to a complex type with no simple content.
func (r *Registry) resolveToParse(name QName) ([]ValueParser, error) {
	t, ok := r.Types[name]
	if !ok {
		return nil, newError(UnknownType, "type %s is not declared in the registry", name.Local)
	}
	return r.parseChain(t)
}

func (r *Registry) parseChain(t *TypeEntry) ([]ValueParser, error) {
	if t.Parse != nil {
		return []ValueParser{t.Parse}, nil
	}
	if len(t.Base) == 0 {
		return nil, nil
	}
	var out []ValueParser
	for _, b := range t.Base {
		bt, ok := r.Types[b]
		if !ok {
			return nil, newError(UnknownType, "type %s references unknown base type %s", t.Name.Local, b.Local)
		}
		sub, err := r.parseChain(bt)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// resolveToAttributes returns the attributes map of the closest type
// in name's base chain that declares any, or an empty map if none of
// them do.
func (r *Registry) resolveToAttributes(name QName) (map[QName]AttrSpec, error) {
	t, ok := r.Types[name]
	if !ok {
		return nil, newError(UnknownType, "type %s is not declared in the registry", name.Local)
	}
	attrs, err := r.attributesChain(t)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return map[QName]AttrSpec{}, nil
	}
	return attrs, nil
}

func (r *Registry) attributesChain(t *TypeEntry) (map[QName]AttrSpec, error) {
	if len(t.Attributes) > 0 {
		return t.Attributes, nil
	}
	for _, b := range t.Base {
		bt, ok := r.Types[b]
		if !ok {
			return nil, newError(UnknownType, "type %s references unknown base type %s", t.Name.Local, b.Local)
		}
		if attrs, err := r.attributesChain(bt); err != nil {
			return nil, err
		} else if len(attrs) > 0 {
			return attrs, nil
		}
	}
	return nil, nil
}

// resolveElement walks spec's ref chain through the global Elements
// map, tracking the most recently seen isArrayDefault. It returns a
// terminal ChildSpec with Ref cleared. The referencing spec's own
// IsArray (its own @maxOccurs at the point of reference) wins over
// anything the chain resolves to; only when neither the referencing
// spec nor the terminal entry declares one does the tracked
// isArrayDefault apply. The registry entry itself is never mutated.
func (r *Registry) resolveElement(spec ChildSpec) (ChildSpec, error) {
	if !spec.isRef() {
		return spec, nil
	}
	deflt := spec.IsArrayDefault
	cur := spec.Ref
	for {
		el, ok := r.Elements[cur]
		if !ok {
			return ChildSpec{}, newError(UnknownType, "element %s is not declared in the registry", cur.Local)
		}
		if el.IsArrayDefault != nil {
			deflt = el.IsArrayDefault
		}
		if el.isRef() {
			cur = el.Ref
			continue
		}
		result := ChildSpec{Type: el.Type, IsArray: spec.IsArray}
		if result.IsArray == nil {
			result.IsArray = el.IsArray
		}
		if result.IsArray == nil {
			result.IsArray = deflt
		}
		return result, nil
	}
}

// resolveAttribute walks spec's ref chain through the global
// Attributes map and returns the terminal attribute type.
func (r *Registry) resolveAttribute(spec AttrSpec) (QName, error) {
	if !spec.isRef() {
		return spec.Type, nil
	}
	cur := spec.Ref
	for {
		a, ok := r.Attributes[cur]
		if !ok {
			return QName{}, newError(UnknownType, "attribute %s is not declared in the registry", cur.Local)
		}
		if a.isRef() {
			cur = a.Ref
			continue
		}
		return a.Type, nil
	}
}
