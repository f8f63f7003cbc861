package xsd

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/CognitoIQ/xsdvalidate/internal/dependency"
	"github.com/CognitoIQ/xsdvalidate/wsdl"
)

// This file implements §4.F: discovering which schemas a document
// needs, downloading them, and closing over their own <import>/
// <include> declarations without revisiting a namespace twice.

// FindSchemas scans doc for xsi:schemaLocation hints and returns the
// namespace -> schemaLocation URL pairs it finds. A schemaLocation
// value is a whitespace-separated sequence of (namespace, url) pairs;
// an odd token count is reported rather than silently dropping the
// dangling token.
func FindSchemas(doc []byte) (map[string]string, error) {
	hints := map[string]string{}
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SchemaError{Kind: InvalidSchema, Message: "scanning document for schemaLocation hints", Cause: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, a := range start.Attr {
			if a.Name.Space != schemaInstanceNS || a.Name.Local != "schemaLocation" {
				continue
			}
			fields := strings.Fields(a.Value)
			if len(fields)%2 != 0 {
				return nil, newError(InvalidSchema, "schemaLocation %q has an odd number of tokens", a.Value)
			}
			for i := 0; i < len(fields); i += 2 {
				hints[fields[i]] = fields[i+1]
			}
		}
	}
	return hints, nil
}

// DownloadAndAddSchema fetches the schema at url, compiles it under
// namespace, and recursively downloads whatever <import>/<include>
// declarations it names, never revisiting a namespace once it has
// been satisfied or a (namespace, url) pair once it has been
// attempted. It fails with MissingSchema if Options.DownloadSchemas
// is false.
func (p *Parser) DownloadAndAddSchema(ctx context.Context, namespace, url string) error {
	if !p.opts.DownloadSchemas {
		return newError(MissingSchema, "schema for namespace %s is not loaded, and downloading is disabled", namespace)
	}
	return p.downloadClosure(ctx, map[string]string{namespace: url})
}

// AddDocumentSchemas discovers every schema doc's xsi:schemaLocation
// hints name, downloads and compiles their full <import>/<include>
// closure, and returns. It is a convenience wrapper combining
// FindSchemas with DownloadAndAddSchema's closure-walking, for the
// common case of "validate this document, fetching whatever it
// needs". If the DownloadSchemas option is off, it downloads nothing
// and fails with MissingSchema only when a hinted namespace has no
// schema loaded yet.
func (p *Parser) AddDocumentSchemas(ctx context.Context, doc []byte) error {
	hints, err := FindSchemas(doc)
	if err != nil {
		return err
	}
	if !p.opts.DownloadSchemas {
		for ns := range hints {
			if !p.reg.anyNamespaceParsed(ns) {
				return newError(MissingSchema, "schema for namespace %s is not loaded, and downloading is disabled", ns)
			}
		}
		return nil
	}
	if len(hints) == 0 {
		return nil
	}
	return p.downloadClosure(ctx, hints)
}

// AddWSDLSchemas extracts every xsd:schema embedded in doc's WSDL
// wsdl:types section (see wsdl.ExtractSchemas) and compiles each one
// directly into the Registry, without any network access -- the
// schemas are already inline in doc.
func (p *Parser) AddWSDLSchemas(doc []byte) error {
	schemas, err := wsdl.ExtractSchemas(doc)
	if err != nil {
		return err
	}
	for ns, body := range schemas {
		if err := p.AddSchema(ns, body); err != nil {
			return err
		}
	}
	return nil
}

// downloadClosure is the breadth-first worklist driving both
// DownloadAndAddSchema and AddDocumentSchemas. It records every
// namespace -> dependency edge it discovers in a dependency.Graph
// purely so the completion log can report the closure in a
// deterministic, cycle-safe order; the traversal itself uses a plain
// FIFO queue, since compileSchema's lazy type resolution means the
// order schemas are compiled in has no effect on correctness.
func (p *Parser) downloadClosure(ctx context.Context, seed map[string]string) error {
	var graph dependency.Graph[string]
	queued := map[string]string{}
	var queue []string

	enqueue := func(ns, url string) error {
		if existing, ok := queued[ns]; ok {
			if existing != url {
				return newError(MismatchedSchemaLocation, "namespace %s was named with conflicting schemaLocation URLs %q and %q", ns, existing, url)
			}
			return nil
		}
		queued[ns] = url
		queue = append(queue, ns)
		return nil
	}

	for ns, url := range seed {
		if err := enqueue(ns, url); err != nil {
			return err
		}
	}

	for len(queue) > 0 {
		ns := queue[0]
		queue = queue[1:]
		url := queued[ns]

		if p.reg.anyNamespaceParsed(ns) {
			p.opts.Logger.Debug().Str("namespace", ns).Msg("namespace already satisfied, skipping download")
			continue
		}
		if url == "" {
			// Only reachable for a namespace the caller's seed named
			// with no URL (e.g. supplied out-of-band); nothing to
			// fetch.
			continue
		}
		if p.reg.alreadyDownloaded(ns, url) {
			p.opts.Logger.Debug().Str("namespace", ns).Str("url", url).Msg("import cycle suppressed")
			continue
		}

		p.opts.Logger.Info().Str("namespace", ns).Str("url", url).Msg("downloading schema")
		fetchCtx, cancel := p.ctxWithFetchTimeout(ctx)
		body, err := p.fetcher.Fetch(fetchCtx, url)
		cancel()
		if err != nil {
			return err
		}
		p.reg.markDownloaded(ns, url)

		pending, err := p.reg.compileSchema(ns, body)
		if err != nil {
			return err
		}
		for depNS, urls := range pending {
			graph.Add(ns, depNS)
			for _, u := range urls {
				if err := enqueue(depNS, u); err != nil {
					return err
				}
			}
		}
	}

	var order []string
	graph.Flatten(func(ns string) { order = append(order, ns) })
	if len(order) > 0 {
		p.opts.Logger.Info().Strs("namespaces", order).Msg("import closure complete")
	}
	return nil
}
