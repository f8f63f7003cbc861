package xsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceTableBindAndConflict(t *testing.T) {
	tbl := NewNamespaceTable()

	require.NoError(t, tbl.Bind("urn:a", "a"))
	prefix, ok := tbl.Prefix("urn:a")
	require.True(t, ok)
	assert.Equal(t, "a", prefix)

	// Rebinding the same URI to the same prefix is a no-op.
	assert.NoError(t, tbl.Bind("urn:a", "a"))

	err := tbl.Bind("urn:a", "b")
	require.Error(t, err)
	se, ok := err.(*SchemaError)
	require.True(t, ok)
	assert.Equal(t, NamespaceConflict, se.Kind)
}

func TestNamespaceTablePreseedsXML(t *testing.T) {
	tbl := NewNamespaceTable()
	prefix, ok := tbl.Prefix(xmlNS)
	require.True(t, ok)
	assert.Equal(t, "xml", prefix)
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "local", qualify("", "local"))
	assert.Equal(t, "p:local", qualify("p", "local"))
}

func TestBuiltinQNameHasNoNamespace(t *testing.T) {
	q := builtinQName("string")
	assert.Equal(t, "", q.Space)
	assert.Equal(t, "string", q.Local)
}
