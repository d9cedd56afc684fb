package fetchrt

import (
	"go.uber.org/zap"

	"github.com/hanpama/fetchgraph/internal/headers"
	"github.com/hanpama/fetchgraph/internal/upstream"
)

// API selects how annotated fields talk to the downstream service.
type API string

const (
	APIRest  API = "rest"
	APIGraph API = "graph"
)

// Options configures a Factory.
//
// Defaults:
//   - Name:            "rise"
//   - API:             rest
//   - ContentType:     application/json
//   - ErrorFactory:    upstream.DefaultFactory
//   - NoContentType:   "Void" (fields of this type read the body as text)
//   - ResponseHeaders: headers.DefaultResponseHeaders
//   - Logger:          zap.NewNop()
//
// Transport must be provided.
type Options struct {
	Name            string
	API             API
	BaseURL         string
	Headers         map[string]string
	ForwardHeaders  []string
	ContentType     string
	ResultRoot      []string
	ErrorRoot       string
	ErrorFactory    upstream.ErrorFactory
	NoContentType   string
	ResponseHeaders []string

	Transport Transport
	Logger    *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Name:            "rise",
		API:             APIRest,
		ContentType:     "application/json",
		ErrorFactory:    upstream.DefaultFactory,
		NoContentType:   "Void",
		ResponseHeaders: headers.DefaultResponseHeaders,
		Logger:          zap.NewNop(),
	}
}

func WithName(name string) Option                     { return func(o *Options) { o.Name = name } }
func WithAPI(api API) Option                          { return func(o *Options) { o.API = api } }
func WithBaseURL(u string) Option                     { return func(o *Options) { o.BaseURL = u } }
func WithHeaders(h map[string]string) Option          { return func(o *Options) { o.Headers = h } }
func WithForwardHeaders(names ...string) Option       { return func(o *Options) { o.ForwardHeaders = names } }
func WithContentType(ct string) Option                { return func(o *Options) { o.ContentType = ct } }
func WithResultRoot(roots ...string) Option           { return func(o *Options) { o.ResultRoot = roots } }
func WithErrorRoot(root string) Option                { return func(o *Options) { o.ErrorRoot = root } }
func WithErrorFactory(f upstream.ErrorFactory) Option { return func(o *Options) { o.ErrorFactory = f } }
func WithNoContentType(name string) Option            { return func(o *Options) { o.NoContentType = name } }
func WithResponseHeaders(names ...string) Option      { return func(o *Options) { o.ResponseHeaders = names } }
func WithTransport(t Transport) Option                { return func(o *Options) { o.Transport = t } }
func WithLogger(l *zap.Logger) Option                 { return func(o *Options) { o.Logger = l } }
