package xsd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistrySeedsBuiltins(t *testing.T) {
	r := NewRegistry()
	entry, ok := r.Types[builtinQName("string")]
	require.True(t, ok)
	assert.Equal(t, SimpleKind, entry.Kind)
	require.NotNil(t, entry.Parse)

	v, err := entry.Parse("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestAnonymousTypeNamesAreDeterministicPerRegistry(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()
	elem := QName{Space: "urn:x", Local: "Foo"}

	assert.Equal(t, r1.newAnonymousTypeName(elem), r2.newAnonymousTypeName(elem),
		"a fixed Registry seed must synthesize the same name for the same call sequence")
}

func TestAlreadyParsedIsBodyAware(t *testing.T) {
	r := NewRegistry()
	body := []byte("<schema/>")
	assert.False(t, r.alreadyParsed("urn:x", body))
	r.markParsed("urn:x", body)
	assert.True(t, r.alreadyParsed("urn:x", body))
	assert.False(t, r.alreadyParsed("urn:x", []byte("<schema />")))
}

func TestKnownSchemasSnapshot(t *testing.T) {
	r := NewRegistry()
	r.markParsed("urn:x", []byte("<schema/>"))
	r.markDownloaded("urn:x", "http://example.com/x.xsd")
	known := r.KnownSchemas()
	assert.Equal(t, []string{"http://example.com/x.xsd"}, known["urn:x"])
}
