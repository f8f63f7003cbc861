package xsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTypeFlattensBaseChain(t *testing.T) {
	r := NewRegistry()
	base := &TypeEntry{Name: QName{Local: "Base"}, Kind: ComplexKind, Children: map[QName]ChildSpec{
		{Local: "a"}: {Type: builtinQName("string")},
	}}
	derived := &TypeEntry{Name: QName{Local: "Derived"}, Kind: ComplexKind, Base: []QName{base.Name}}
	r.Types[base.Name] = base
	r.Types[derived.Name] = derived

	chain, err := r.resolveType(derived.Name)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, derived.Name, chain[0].Name)
	assert.Equal(t, base.Name, chain[1].Name)
}

func TestResolveTypeUnknownBase(t *testing.T) {
	r := NewRegistry()
	r.Types[QName{Local: "Derived"}] = &TypeEntry{Name: QName{Local: "Derived"}, Base: []QName{{Local: "Missing"}}}
	_, err := r.resolveType(QName{Local: "Derived"})
	require.Error(t, err)
	se := err.(*SchemaError)
	assert.Equal(t, UnknownType, se.Kind)
}

func TestResolveToParseFlattensUnion(t *testing.T) {
	r := NewRegistry()
	union := QName{Local: "IntOrBool"}
	r.Types[union] = &TypeEntry{Name: union, Kind: SimpleKind, Base: []QName{builtinQName("integer"), builtinQName("boolean")}}

	parsers, err := r.resolveToParse(union)
	require.NoError(t, err)
	require.Len(t, parsers, 2)

	// Per §8 property 8, a union's i-th candidate must actually be
	// tried at the i-th attempt -- not always parsers[0].
	v, err := tryParse(parsers, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = tryParse(parsers, "5")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestResolveToAttributesWalksBaseChain(t *testing.T) {
	r := NewRegistry()
	base := QName{Local: "Base"}
	r.Types[base] = &TypeEntry{Name: base, Kind: ComplexKind, Attributes: map[QName]AttrSpec{
		{Local: "id"}: {Type: builtinQName("string")},
	}}
	derived := QName{Local: "Derived"}
	r.Types[derived] = &TypeEntry{Name: derived, Kind: ComplexKind, Base: []QName{base}}

	attrs, err := r.resolveToAttributes(derived)
	require.NoError(t, err)
	_, ok := attrs[QName{Local: "id"}]
	assert.True(t, ok)
}

func TestResolveElementFollowsRefChainAndArrayDefault(t *testing.T) {
	r := NewRegistry()
	deflt := true
	r.Elements[QName{Local: "target"}] = &ElementEntry{Type: builtinQName("string")}
	r.Elements[QName{Local: "alias"}] = &ElementEntry{Ref: QName{Local: "target"}}

	spec := ChildSpec{Ref: QName{Local: "alias"}, IsArrayDefault: &deflt}
	resolved, err := r.resolveElement(spec)
	require.NoError(t, err)
	assert.Equal(t, builtinQName("string"), resolved.Type)
	require.NotNil(t, resolved.IsArray)
	assert.True(t, *resolved.IsArray)
}

func TestResolveElementDanglingRef(t *testing.T) {
	r := NewRegistry()
	_, err := r.resolveElement(ChildSpec{Ref: QName{Local: "missing"}})
	require.Error(t, err)
	assert.Equal(t, UnknownType, err.(*SchemaError).Kind)
}
