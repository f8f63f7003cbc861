package xsd

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Parser. The zero Options is valid and matches
// the teacher's preference for safe, do-nothing defaults: no network
// access, bare local names in output, and a no-op logger.
type Options struct {
	// DownloadSchemas allows DownloadAndAddSchema and the acquisition
	// driver (AddDocumentSchemas) to fetch schemaLocation URLs over the
	// network. False by default -- a Parser that only ever sees
	// schemas pushed via AddSchema never needs a Fetcher.
	DownloadSchemas bool

	// OutputWithNamespace, when true, qualifies every element and
	// attribute key in a normalized document as "prefix:local"
	// instead of bare "local", using the prefix each namespace was
	// bound to by the schema(s) that declared it.
	OutputWithNamespace bool

	// Fetcher overrides how schemaLocation URLs are retrieved. Nil
	// uses newHTTPFetcher with http.DefaultClient.
	Fetcher Fetcher
	// FetchTimeout bounds each individual fetch when no context
	// deadline is already set by the caller. Zero means no timeout is
	// added.
	FetchTimeout time.Duration

	// Logger receives structured progress events: schema downloads,
	// import-cycle suppression, and residual-construct warnings. The
	// zero value is zerolog.Nop(), so logging is opt-in.
	Logger zerolog.Logger

	// AttrKey, CharKey name the reserved object keys a normalized
	// document uses for an element's attributes and character
	// content, respectively. Empty defaults to "$" and "_".
	AttrKey string
	CharKey string
}

func (o *Options) attrKey() string {
	if o.AttrKey != "" {
		return o.AttrKey
	}
	return "$"
}

func (o *Options) charKey() string {
	if o.CharKey != "" {
		return o.CharKey
	}
	return "_"
}

// Parser is the package's main entry point: a Registry plus the
// policy (Options) governing how it acquires schemas and shapes its
// validated output. A Parser is not safe for concurrent use while
// schemas are being added -- each AddSchema/DownloadAndAddSchema call
// mutates the underlying Registry -- but ParseString may run
// concurrently with other ParseString calls once no further schemas
// are being added, since validation only reads the Registry.
type Parser struct {
	reg     *Registry
	opts    Options
	fetcher Fetcher
}

// NewParser returns a Parser with an empty Registry, ready to accept
// schemas.
func NewParser(opts Options) *Parser {
	p := &Parser{reg: NewRegistry(), opts: opts}
	p.fetcher = opts.Fetcher
	if p.fetcher == nil {
		p.fetcher = newHTTPFetcher(nil)
	}
	return p
}

// AddSchema compiles body under the given namespace URI and merges
// its declarations into the Parser's Registry. uri should match the
// namespace the caller expects the document to satisfy; if the
// document itself declares a different targetNamespace, the
// document's own declaration is what callers' document elements are
// actually checked against, and a document that declares none is
// compiled under uri. AddSchema does not follow the schema's own
// <import>/<include> declarations -- DownloadAndAddSchema and
// AddDocumentSchemas do.
func (p *Parser) AddSchema(uri string, body []byte) error {
	_, err := p.reg.compileSchema(uri, body)
	if err != nil {
		p.opts.Logger.Warn().Str("namespace", uri).Err(err).Msg("schema compilation failed")
		return err
	}
	p.opts.Logger.Debug().Str("namespace", uri).Msg("schema added")
	return nil
}

// KnownSchemas returns the namespaces this Parser has committed
// schemas for, each mapped to the schemaLocation URLs (if any) that
// were downloaded to satisfy it.
func (p *Parser) KnownSchemas() map[string][]string {
	return p.reg.KnownSchemas()
}

// ParseString validates and normalizes doc against every schema this
// Parser has loaded so far, returning a mapping from the root
// element's name to its coerced, cardinality-collapsed value, per §6
// ("Output shape. A mapping from root element name to its object.").
func (p *Parser) ParseString(doc []byte) (interface{}, error) {
	result, root, err := decodeDocument(doc, decodeOptions{AttrKey: p.opts.attrKey(), CharKey: p.opts.charKey()}, p.normalize)
	if err != nil {
		return nil, err
	}
	return Node{p.outputName(root): result}, nil
}

// ctxWithFetchTimeout applies Options.FetchTimeout to ctx if the
// caller hasn't already set a deadline and a timeout was configured.
func (p *Parser) ctxWithFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.FetchTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.opts.FetchTimeout)
}
