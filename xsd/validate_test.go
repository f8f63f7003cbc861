package xsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderSchemaXSD = `<?xml version="1.0"?>
<schema xmlns="http://www.w3.org/2001/XMLSchema"
        xmlns:tns="urn:example:order"
        targetNamespace="urn:example:order">
  <element name="Order">
    <complexType>
      <sequence>
        <element name="id" type="string"/>
        <element name="item" type="string" minOccurs="0" maxOccurs="unbounded"/>
        <element name="rush" type="boolean" minOccurs="0"/>
      </sequence>
      <attribute name="priority" type="int"/>
    </complexType>
  </element>
</schema>`

func newOrderParser(t *testing.T) *Parser {
	t.Helper()
	p := NewParser(Options{})
	require.NoError(t, p.AddSchema("urn:example:order", []byte(orderSchemaXSD)))
	return p
}

func TestParseStringCollapsesSingleChildAndKeepsArray(t *testing.T) {
	p := newOrderParser(t)
	const doc = `<Order xmlns="urn:example:order" priority="3">
  <id>A1</id>
  <item>widget</item>
  <item>gadget</item>
  <rush>true</rush>
</Order>`

	v, err := p.ParseString([]byte(doc))
	require.NoError(t, err)
	root, ok := v.(Node)
	require.True(t, ok)
	node, ok := root["Order"].(Node)
	require.True(t, ok)

	assert.Equal(t, "A1", node["id"])
	assert.Equal(t, true, node["rush"])

	items, ok := node["item"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"widget", "gadget"}, items)

	assert.Equal(t, int64(3), node[p.opts.attrKey()].(Node)["priority"])
}

func TestParseStringUnexpectedAttribute(t *testing.T) {
	p := newOrderParser(t)
	const doc = `<Order xmlns="urn:example:order" bogus="x"><id>A1</id></Order>`
	_, err := p.ParseString([]byte(doc))
	require.Error(t, err)
	assert.Equal(t, UnexpectedAttribute, err.(*SchemaError).Kind)
}

func TestParseStringUnknownElement(t *testing.T) {
	p := newOrderParser(t)
	const doc = `<Bogus xmlns="urn:example:order"/>`
	_, err := p.ParseString([]byte(doc))
	require.Error(t, err)
	se := err.(*SchemaError)
	assert.Equal(t, UnknownElement, se.Kind)
	assert.Contains(t, se.Allowed, "tns:Order")
}

func TestParseStringUnexpectedChildren(t *testing.T) {
	p := newOrderParser(t)
	const doc = `<Order xmlns="urn:example:order"><id>A1</id><id>A2</id></Order>`
	_, err := p.ParseString([]byte(doc))
	require.Error(t, err)
	assert.Equal(t, UnexpectedChildren, err.(*SchemaError).Kind)
}

func TestParseStringUnexpectedChildrenUnderSimpleLeaf(t *testing.T) {
	p := newOrderParser(t)
	const doc = `<Order xmlns="urn:example:order"><id><sub>x</sub></id></Order>`
	_, err := p.ParseString([]byte(doc))
	require.Error(t, err)
	assert.Equal(t, UnexpectedChildren, err.(*SchemaError).Kind)
}

func TestParseStringMixedContentComplexType(t *testing.T) {
	const anySchema = `<?xml version="1.0"?>
<schema xmlns="http://www.w3.org/2001/XMLSchema" xmlns:tns="urn:example:w" targetNamespace="urn:example:w">
  <element name="Wrapper">
    <complexType>
      <sequence>
        <any namespace="##any" minOccurs="0" maxOccurs="unbounded"/>
      </sequence>
    </complexType>
  </element>
</schema>`
	p := NewParser(Options{})
	require.NoError(t, p.AddSchema("urn:example:w", []byte(anySchema)))

	const doc = `<Wrapper xmlns="urn:example:w">hello world</Wrapper>`
	v, err := p.ParseString([]byte(doc))
	require.NoError(t, err)
	root, ok := v.(Node)
	require.True(t, ok)
	node, ok := root["Wrapper"].(Node)
	require.True(t, ok)
	assert.Equal(t, "hello world", node[p.opts.charKey()])
}

func TestParseStringUnionAttemptsEachCandidate(t *testing.T) {
	const unionSchema = `<?xml version="1.0"?>
<schema xmlns="http://www.w3.org/2001/XMLSchema" xmlns:tns="urn:example:u" targetNamespace="urn:example:u">
  <simpleType name="IntOrBool">
    <union memberTypes="int boolean"/>
  </simpleType>
  <element name="Flag" type="tns:IntOrBool" xmlns:tns="urn:example:u"/>
</schema>`
	p := NewParser(Options{})
	require.NoError(t, p.AddSchema("urn:example:u", []byte(unionSchema)))

	v, err := p.ParseString([]byte(`<Flag xmlns="urn:example:u">true</Flag>`))
	require.NoError(t, err)
	assert.Equal(t, true, v.(Node)["Flag"])

	v, err = p.ParseString([]byte(`<Flag xmlns="urn:example:u">7</Flag>`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.(Node)["Flag"])
}
