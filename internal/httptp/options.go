package httptp

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options configures the HTTP transport behavior.
//
// Defaults:
//   - Client:       a dedicated http.Client
//   - Timeout:      10s (used only if the incoming context has no deadline)
//   - MaxBodyBytes: 32 MiB
//   - Logger:       zap.NewNop()
//
// All options are safe to leave zero-valued to use defaults.
type Options struct {
	Client       *http.Client
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Logger       *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Timeout:      10 * time.Second,
		MaxBodyBytes: 32 << 20,
		UserAgent:    "fetchgraph",
		Logger:       zap.NewNop(),
	}
}

func WithClient(c *http.Client) Option   { return func(o *Options) { o.Client = c } }
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithUserAgent(ua string) Option     { return func(o *Options) { o.UserAgent = ua } }
func WithLogger(l *zap.Logger) Option    { return func(o *Options) { o.Logger = l } }
