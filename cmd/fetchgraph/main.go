package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hanpama/fetchgraph/internal/config"
	"github.com/hanpama/fetchgraph/internal/eventbus"
	"github.com/hanpama/fetchgraph/internal/executor"
	"github.com/hanpama/fetchgraph/internal/fetchrt"
	"github.com/hanpama/fetchgraph/internal/httptp"
	"github.com/hanpama/fetchgraph/internal/introspection"
	"github.com/hanpama/fetchgraph/internal/language"
	"github.com/hanpama/fetchgraph/internal/metrics"
	"github.com/hanpama/fetchgraph/internal/otel"
	"github.com/hanpama/fetchgraph/internal/schema"
	"github.com/hanpama/fetchgraph/internal/server"
)

const rootUsage = `fetchgraph: GraphQL gateway resolving fields through REST and GraphQL calls

USAGE:
  fetchgraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL gateway
  typedefs         Print the directive type definitions for the configuration
  check            Build the schema and report directive configuration errors
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>               Configuration file (YAML)
  -graphql.root <dir>          GraphQL schema directory. Repeatable; overrides the config file
  -server.addr <addr>          HTTP listen address (default: from config, else :8080)
  -server.pretty               Pretty-print JSON responses
  -server.introspection        Answer __schema and __type queries
  -server.timeout <duration>   Per-request timeout, e.g. 10s
  -server.cors <origin>        Allowed CORS origin. Repeatable
  -transport.timeout <dur>     Downstream call timeout (default: 10s)
  -transport.useragent <ua>    User-Agent sent downstream (default: fetchgraph)
  -transport.maxconns <n>      Connection limit per downstream host. 0 is unlimited
  -otel.endpoint <addr>        OTLP collector endpoint
  -otel.service <name>         OpenTelemetry service name (default: fetchgraph)
  -log.level <level>           debug, info, warn or error (default: info)
  -log.dev                     Human readable development logs
`

const typedefsUsage = `typedefs FLAGS:
  -config <file>   Configuration file (YAML)
`

const checkUsage = `check FLAGS:
  -config <file>          Configuration file (YAML)
  -graphql.root <dir>     GraphQL schema directory. Repeatable; overrides the config file
  (Exits non-zero on errors)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}
	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "typedefs":
		return cmdTypeDefs(cmdArgs, stdout, stderr)
	case "check":
		return cmdCheck(cmdArgs, stdout, stderr)
	case "help", "-h", "-help", "--help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "typedefs":
		fmt.Fprint(stdout, typedefsUsage)
	case "check":
		fmt.Fprint(stdout, checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return strings.Join(*s, ",") }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// loadConfig reads path, or returns the defaults when path is empty.
// Relative schema directories are resolved against the file's directory.
func loadConfig(path string) (*config.File, error) {
	if path == "" {
		return config.Parse(nil)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i, dir := range cfg.Schema {
		if !filepath.IsAbs(dir) {
			cfg.Schema[i] = filepath.Join(base, dir)
		}
	}
	return cfg, nil
}

// buildSchema loads the SDL under roots, prepends the directive type
// definitions, and attaches the downstream resolvers.
func buildSchema(cfg *config.File, roots []string, transport fetchrt.Transport, logger *zap.Logger) (*schema.Schema, error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}
	factories := cfg.Factories(transport, logger)
	sources := []*language.Source{{Name: "fetchgraph-directives.graphql", Input: typeDefs(factories)}}
	for _, root := range roots {
		found, err := schema.Discover(root)
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}
	sch, err := schema.Build(sources...)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return fetchrt.Compose(sch, factories...)
}

func typeDefs(factories []*fetchrt.Factory) string {
	var b strings.Builder
	b.WriteString(fetchrt.CommonTypeDefs)
	for _, f := range factories {
		b.WriteString(f.TypeDefs())
	}
	return b.String()
}

func newLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}

func newRouter(graphql http.Handler, collector *metrics.Collector) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/graphql", graphql)
	r.Handle("/metrics", collector.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	return r
}

// newGraphQLHandler binds the fetch runtime to sch and applies the server
// settings of cfg.
// newTransport builds the downstream HTTP transport. A positive maxConns
// caps connections per host on a dedicated client.
func newTransport(timeout time.Duration, userAgent string, maxConns int, logger *zap.Logger) *httptp.Transport {
	opts := []httptp.Option{
		httptp.WithTimeout(timeout),
		httptp.WithUserAgent(userAgent),
		httptp.WithLogger(logger),
	}
	if maxConns > 0 {
		rt := http.DefaultTransport.(*http.Transport).Clone()
		rt.MaxConnsPerHost = maxConns
		rt.MaxIdleConnsPerHost = maxConns
		opts = append(opts, httptp.WithClient(&http.Client{Transport: rt}))
	}
	return httptp.New(opts...)
}

func newGraphQLHandler(cfg *config.File, sch *schema.Schema, logger *zap.Logger) (http.Handler, error) {
	var runtime executor.Runtime = fetchrt.NewRuntime(sch,
		fetchrt.WithConcurrency(cfg.Server.Concurrency),
		fetchrt.WithRuntimeLogger(logger.Named("runtime")),
	)
	if cfg.Server.Introspection {
		runtime, sch = introspection.Wrap(runtime, sch)
	}

	opts := []server.Option{server.WithLogger(logger.Named("server"))}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		opts = append(opts, server.WithTimeout(cfg.Server.Timeout))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		opts = append(opts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.CORS) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORS...))
	}
	return server.New(runtime, sch, opts...)
}

func cmdServe(args []string, stderr io.Writer) error {
	configPath := ""
	addr := ""
	pretty := false
	introspect := false
	timeout := time.Duration(0)
	transportTimeout := 10 * time.Second
	userAgent := "fetchgraph"
	maxConns := 0
	otelEndpoint := ""
	otelService := ""
	logLevel := "info"
	logDev := false
	var roots, cors stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Configuration file")
	fs.Var(&roots, "graphql.root", "GraphQL schema directory")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.BoolVar(&introspect, "server.introspection", introspect, "Answer introspection queries")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&cors, "server.cors", "Allowed CORS origin")
	fs.DurationVar(&transportTimeout, "transport.timeout", transportTimeout, "Downstream call timeout")
	fs.StringVar(&userAgent, "transport.useragent", userAgent, "User-Agent sent downstream")
	fs.IntVar(&maxConns, "transport.maxconns", maxConns, "Connection limit per downstream host")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	fs.StringVar(&logLevel, "log.level", logLevel, "Log level")
	fs.BoolVar(&logDev, "log.dev", logDev, "Development logs")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if timeout > 0 {
		cfg.Server.Timeout = timeout
	}
	if pretty {
		cfg.Server.Pretty = true
	}
	if introspect {
		cfg.Server.Introspection = true
	}
	if len(cors) > 0 {
		cfg.Server.CORS = cors
	}
	if otelEndpoint != "" {
		cfg.Telemetry.OTLPEndpoint = otelEndpoint
	}
	if otelService != "" {
		cfg.Telemetry.ServiceName = otelService
	}
	schemaRoots := cfg.Schema
	if len(roots) > 0 {
		schemaRoots = roots
	}

	logger, err := newLogger(logLevel, logDev)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	shutdownTracing, err := otel.Setup(cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()
	collector := metrics.New()
	defer collector.Register()()

	transport := newTransport(transportTimeout, userAgent, maxConns, logger.Named("transport"))
	defer transport.Close()

	sch, err := buildSchema(cfg, schemaRoots, transport, logger.Named("fetchrt"))
	if err != nil {
		return err
	}
	h, err := newGraphQLHandler(cfg, sch, logger)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(h, collector),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr), zap.Int("directives", len(cfg.Directives)))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cmdTypeDefs(args []string, stdout, stderr io.Writer) error {
	configPath := ""
	fs := flag.NewFlagSet("typedefs", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, typedefsUsage)
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, typeDefs(cfg.Factories(fetchrt.NewMockTransport(), nil)))
	return nil
}

func cmdCheck(args []string, stdout, stderr io.Writer) error {
	configPath := ""
	var roots stringListFlag
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", configPath, "Configuration file")
	fs.Var(&roots, "graphql.root", "GraphQL schema directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, checkUsage)
		return err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	schemaRoots := cfg.Schema
	if len(roots) > 0 {
		schemaRoots = roots
	}
	sch, err := buildSchema(cfg, schemaRoots, fetchrt.NewMockTransport(), zap.NewNop())
	if err != nil {
		return err
	}
	resolved := 0
	for _, t := range sch.Types {
		for _, f := range t.Fields {
			if f.Resolver != nil {
				resolved++
			}
		}
	}
	fmt.Fprintf(stdout, "ok: %d fields resolved by %d directives\n", resolved, len(cfg.Directives))
	return nil
}
