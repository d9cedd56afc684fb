// Package config reads the gateway configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/fetchgraph/internal/fetchrt"
)

// File is the decoded configuration file.
type File struct {
	// Schema lists directories scanned for .graphql files.
	Schema     []string    `yaml:"schema"`
	Server     Server      `yaml:"server"`
	Telemetry  Telemetry   `yaml:"telemetry"`
	Directives []Directive `yaml:"directives"`
	// ResponseHeaders overrides the propagated response header allow-list
	// for every directive.
	ResponseHeaders []string `yaml:"responseHeaders"`
}

// Server holds HTTP listener settings.
type Server struct {
	Addr         string        `yaml:"addr"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	CORS         []string      `yaml:"cors"`
	Pretty       bool          `yaml:"pretty"`
	// Introspection enables __schema and __type on the query root.
	Introspection bool `yaml:"introspection"`
	// Concurrency bounds parallel downstream calls per execution step.
	Concurrency int `yaml:"concurrency"`
}

// Telemetry holds exporter settings.
type Telemetry struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Directive declares one directive factory.
type Directive struct {
	Name           string            `yaml:"name"`
	API            string            `yaml:"api"`
	BaseURL        string            `yaml:"baseURL"`
	Headers        map[string]string `yaml:"headers"`
	ForwardHeaders []string          `yaml:"forwardHeaders"`
	ContentType    string            `yaml:"contentType"`
	ResultRoot     StringList        `yaml:"resultRoot"`
	ErrorRoot      string            `yaml:"errorRoot"`
	NoContentType  string            `yaml:"noContentType"`
}

// StringList accepts either a scalar or a sequence of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates data. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) applyDefaults() {
	if f.Server.Addr == "" {
		f.Server.Addr = ":8080"
	}
	if f.Telemetry.ServiceName == "" {
		f.Telemetry.ServiceName = "fetchgraph"
	}
	if len(f.Directives) == 0 {
		f.Directives = []Directive{{}}
	}
	for i := range f.Directives {
		d := &f.Directives[i]
		if d.Name == "" {
			d.Name = "rise"
		}
		if d.API == "" {
			d.API = string(fetchrt.APIRest)
		}
	}
}

func (f *File) validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, d := range f.Directives {
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("directives[%d]: duplicate name %q", i, d.Name))
		}
		seen[d.Name] = true
		switch fetchrt.API(d.API) {
		case fetchrt.APIRest:
		case fetchrt.APIGraph:
			if d.BaseURL == "" {
				errs = append(errs, fmt.Errorf("directives[%d]: graph directive %q needs baseURL", i, d.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("directives[%d]: unknown api %q", i, d.API))
		}
	}
	if f.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.maxBodyBytes must not be negative"))
	}
	if f.Server.Concurrency < 0 {
		errs = append(errs, errors.New("server.concurrency must not be negative"))
	}
	return errors.Join(errs...)
}

// Options converts d into factory options. Zero-valued fields keep the
// factory defaults.
func (d Directive) Options() []fetchrt.Option {
	opts := []fetchrt.Option{
		fetchrt.WithName(d.Name),
		fetchrt.WithAPI(fetchrt.API(d.API)),
		fetchrt.WithBaseURL(d.BaseURL),
	}
	if len(d.Headers) > 0 {
		opts = append(opts, fetchrt.WithHeaders(d.Headers))
	}
	if len(d.ForwardHeaders) > 0 {
		opts = append(opts, fetchrt.WithForwardHeaders(d.ForwardHeaders...))
	}
	if d.ContentType != "" {
		opts = append(opts, fetchrt.WithContentType(d.ContentType))
	}
	if len(d.ResultRoot) > 0 {
		opts = append(opts, fetchrt.WithResultRoot(d.ResultRoot...))
	}
	if d.ErrorRoot != "" {
		opts = append(opts, fetchrt.WithErrorRoot(d.ErrorRoot))
	}
	if d.NoContentType != "" {
		opts = append(opts, fetchrt.WithNoContentType(d.NoContentType))
	}
	return opts
}

// Factories builds one factory per directive sharing transport and logger.
func (f *File) Factories(transport fetchrt.Transport, logger *zap.Logger) []*fetchrt.Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]*fetchrt.Factory, 0, len(f.Directives))
	for _, d := range f.Directives {
		opts := append(d.Options(),
			fetchrt.WithTransport(transport),
			fetchrt.WithLogger(logger.With(zap.String("directive", d.Name))),
		)
		if f.ResponseHeaders != nil {
			opts = append(opts, fetchrt.WithResponseHeaders(f.ResponseHeaders...))
		}
		out = append(out, fetchrt.New(opts...))
	}
	return out
}
