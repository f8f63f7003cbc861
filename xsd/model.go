package xsd

// TypeKind distinguishes a simple (leaf, text-valued) type entry from
// a complex (element/attribute-bearing) one.
type TypeKind int

const (
	SimpleKind TypeKind = iota
	ComplexKind
)

// ChildSpec describes one entry in a complex type's Children map: an
// element that may appear at that position, either by reference to a
// global element or declared inline with its own type.
type ChildSpec struct {
	// Ref names a global element this spec refers to. Zero if the
	// element was declared inline.
	Ref QName
	// Type is the inline element's type. Ignored when Ref is set.
	Type QName
	// IsArray is nil when the schema did not specify a maxOccurs for
	// this occurrence; resolution falls back to IsArrayDefault, and
	// finally to false (not an array).
	IsArray *bool
	// IsArrayDefault is propagated from the enclosing repeated
	// sequence/choice, per §4.D step 7. It only applies when IsArray
	// is nil.
	IsArrayDefault *bool
}

// isRef reports whether the spec points at a global element by
// reference rather than declaring its type inline.
func (c ChildSpec) isRef() bool { return c.Ref.Local != "" }

// resolvedIsArray returns whether this child group should be treated
// as a sequence, applying the IsArray/IsArrayDefault fallback rule.
func (c ChildSpec) resolvedIsArray() bool {
	if c.IsArray != nil {
		return *c.IsArray
	}
	if c.IsArrayDefault != nil {
		return *c.IsArrayDefault
	}
	return false
}

// AttrSpec describes one entry in a complex type's Attributes map:
// either the attribute's own type, or a reference to a global
// attribute.
type AttrSpec struct {
	Ref  QName
	Type QName
}

func (a AttrSpec) isRef() bool { return a.Ref.Local != "" }

// ElementEntry is a global <element> declaration. It shares ChildSpec's
// ref-or-inline-type shape, since a global element can itself be
// referenced by other elements.
type ElementEntry struct {
	Ref            QName
	Type           QName
	IsArray        *bool
	IsArrayDefault *bool
}

// asChildSpec adapts a global element entry to the ChildSpec shape so
// that resolveElement can walk ref chains that start from either the
// global Elements map or a complex type's own Children map.
func (e ElementEntry) asChildSpec() ChildSpec {
	return ChildSpec{Ref: e.Ref, Type: e.Type, IsArray: e.IsArray, IsArrayDefault: e.IsArrayDefault}
}

func (e ElementEntry) isRef() bool { return e.Ref.Local != "" }

// AttributeEntry is a global <attribute> declaration.
type AttributeEntry struct {
	Ref  QName
	Type QName
}

func (a AttributeEntry) isRef() bool { return a.Ref.Local != "" }

// TypeEntry is a compiled simple or complex type. Only one of the
// Simple-specific or Complex-specific fields is meaningful, per Kind.
type TypeEntry struct {
	Name QName
	Kind TypeKind

	// Base holds the type(s) this type derives from. A single-element
	// slice for ordinary restriction/extension; multiple elements for
	// a simpleType <union>; nil for a type based directly on
	// xs:anyType/xs:anySimpleType, and for built-ins.
	Base []QName

	// Restriction is true if this type was declared with
	// <restriction>, false for <extension> or a bare complexType.
	Restriction bool

	// Parse is set only on the built-in terminal types (see
	// builtin.go); user-defined simple types inherit a parser by
	// walking Base at resolution time.
	Parse ValueParser

	// Complex-only fields.
	Children    map[QName]ChildSpec
	AnyChildren bool
	// IsArray is only meaningful when AnyChildren is true.
	IsArray    bool
	Attributes map[QName]AttrSpec
}

func (t *TypeEntry) isSimple() bool  { return t.Kind == SimpleKind }
func (t *TypeEntry) isComplex() bool { return t.Kind == ComplexKind }

// builtinQName returns the registry key used for an XML Schema
// primitive type: its local name with no namespace, per the prefix
// stripping described in §4.D step 1.
func builtinQName(local string) QName {
	return QName{Local: local}
}
