package xsd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsKeyDefaults(t *testing.T) {
	var o Options
	assert.Equal(t, "$", o.attrKey())
	assert.Equal(t, "_", o.charKey())

	o = Options{AttrKey: "@attrs", CharKey: "#text"}
	assert.Equal(t, "@attrs", o.attrKey())
	assert.Equal(t, "#text", o.charKey())
}

func TestNewParserDefaultsToHTTPFetcher(t *testing.T) {
	p := NewParser(Options{})
	_, ok := p.fetcher.(*httpFetcher)
	assert.True(t, ok)
}

func TestNewParserHonorsSuppliedFetcher(t *testing.T) {
	f := newMultiFetcher(nil)
	p := NewParser(Options{Fetcher: f})
	assert.Same(t, f, p.fetcher)
}

func TestAddSchemaRejectsMalformedDocument(t *testing.T) {
	p := NewParser(Options{})
	err := p.AddSchema("urn:example:bad", []byte("not xml"))
	require.Error(t, err)
	assert.Equal(t, InvalidSchema, err.(*SchemaError).Kind)
}

func TestKnownSchemasReflectsAddSchema(t *testing.T) {
	p := NewParser(Options{})
	require.NoError(t, p.AddSchema("urn:example:order", []byte(orderSchemaXSD)))
	known := p.KnownSchemas()
	_, ok := known["urn:example:order"]
	assert.True(t, ok)
}

func TestParserOutputWithNamespaceQualifiesKeys(t *testing.T) {
	p := NewParser(Options{OutputWithNamespace: true})
	require.NoError(t, p.AddSchema("urn:example:order", []byte(orderSchemaXSD)))

	v, err := p.ParseString([]byte(`<Order xmlns="urn:example:order"><id>A1</id></Order>`))
	require.NoError(t, err)
	root, ok := v.(Node)
	require.True(t, ok)

	var order Node
	for k, val := range root {
		if k == "Order" || (len(k) > 6 && k[len(k)-6:] == ":Order") {
			order, ok = val.(Node)
			require.True(t, ok)
		}
	}
	require.NotNil(t, order)

	found := false
	for k := range order {
		if k == "id" || (len(k) > 3 && k[len(k)-3:] == ":id") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCtxWithFetchTimeoutNoopWithoutTimeout(t *testing.T) {
	p := NewParser(Options{})
	ctx, cancel := p.ctxWithFetchTimeout(nil)
	defer cancel()
	assert.Nil(t, ctx)
}

func TestCtxWithFetchTimeoutAppliesDeadline(t *testing.T) {
	p := NewParser(Options{FetchTimeout: time.Second})
	ctx, cancel := p.ctxWithFetchTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}
