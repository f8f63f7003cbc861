package xsd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CognitoIQ/xsdvalidate/internal/testutil"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	client := testutil.FakeClient("http://example.com/order.xsd", []byte("<schema/>"))
	f := newHTTPFetcher(&client)

	body, err := f.Fetch(context.Background(), "http://example.com/order.xsd")
	require.NoError(t, err)
	assert.Equal(t, "<schema/>", string(body))
}

func TestHTTPFetcherNotFound(t *testing.T) {
	client := testutil.FakeClient("http://example.com/order.xsd", []byte("<schema/>"))
	f := newHTTPFetcher(&client)

	_, err := f.Fetch(context.Background(), "http://example.com/other.xsd")
	require.Error(t, err)
	assert.Equal(t, HttpError, err.(*SchemaError).Kind)
}
