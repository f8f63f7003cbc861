package xsd

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetcher retrieves the bytes at url. It is the seam component F (the
// acquisition driver) uses to download a schemaLocation hint; tests
// substitute internal/testutil.FakeClient-backed fetchers instead of
// reaching the network.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// httpFetcher is the default Fetcher, grounded on net/http the same
// way the teacher's own schema-download path does: a plain
// *http.Client with no retry or caching logic layered on top.
type httpFetcher struct {
	client *http.Client
}

func newHTTPFetcher(client *http.Client) *httpFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{client: client}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &SchemaError{Kind: HttpError, Message: fmt.Sprintf("building request for %s", url), Cause: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &SchemaError{Kind: HttpError, Message: fmt.Sprintf("fetching %s", url), Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(HttpError, "fetching %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SchemaError{Kind: HttpError, Message: fmt.Sprintf("reading response body for %s", url), Cause: err}
	}
	return body, nil
}
