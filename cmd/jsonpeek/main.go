// Command jsonpeek serves one JSON document as a searchable resource over a
// single HTTP endpoint speaking both JSON-RPC (POST) and SSE (GET).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/pflag"

	"github.com/jsonpeek/jsonpeek/internal/dispatch"
	"github.com/jsonpeek/jsonpeek/internal/document"
	"github.com/jsonpeek/jsonpeek/internal/logctx"
	"github.com/jsonpeek/jsonpeek/internal/mcp"
	"github.com/jsonpeek/jsonpeek/internal/streaminghttp"
)

// version is set at build time via -ldflags.
var version = "dev"

type config struct {
	Addr                string        `env:"JSONPEEK_ADDR,default=127.0.0.1:8765"`
	Endpoint            string        `env:"JSONPEEK_ENDPOINT,default=/mcp"`
	ServerName          string        `env:"JSONPEEK_SERVER_NAME,default=jsonpeek"`
	ResourceURI         string        `env:"JSONPEEK_RESOURCE_URI"`
	ResourceName        string        `env:"JSONPEEK_RESOURCE_NAME"`
	ResourceDescription string        `env:"JSONPEEK_RESOURCE_DESCRIPTION"`
	KeepAlive           time.Duration `env:"JSONPEEK_KEEPALIVE,default=30s"`
	LogLevel            string        `env:"JSONPEEK_LOG_LEVEL,default=info"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	fs := pflag.NewFlagSet("jsonpeek", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: jsonpeek [flags] <document.json>\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "streaming endpoint path")
	fs.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "server display name")
	fs.StringVar(&cfg.ResourceURI, "uri", cfg.ResourceURI, "resource uri (default jsondoc://<basename>)")
	fs.StringVar(&cfg.ResourceName, "name", cfg.ResourceName, "resource display name (default <basename>)")
	fs.StringVar(&cfg.ResourceDescription, "description", cfg.ResourceDescription, "resource description")
	fs.DurationVar(&cfg.KeepAlive, "keep-alive", cfg.KeepAlive, "SSE keep-alive interval")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("jsonpeek version %s\n", version)
		return nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one document path is required")
	}
	docPath := fs.Arg(0)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := slog.New(logctx.Handler{
		Handler: slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	})

	// Load-time failures are the only fatal class: the server never starts
	// over a missing or unparsable document.
	content, err := document.LoadFile(docPath)
	if err != nil {
		return err
	}

	base := filepath.Base(docPath)
	if cfg.ResourceURI == "" {
		cfg.ResourceURI = "jsondoc://" + base
	}
	if cfg.ResourceName == "" {
		cfg.ResourceName = base
	}
	if cfg.ResourceDescription == "" {
		cfg.ResourceDescription = fmt.Sprintf("JSON document served from %s", docPath)
	}

	res := document.Resource{
		URI:         cfg.ResourceURI,
		Name:        cfg.ResourceName,
		Description: cfg.ResourceDescription,
		SourcePath:  docPath,
		Content:     content,
	}
	store, err := document.NewStore(res)
	if err != nil {
		return err
	}

	info := mcp.ImplementationInfo{Name: cfg.ServerName, Version: version}
	disp := dispatch.New(store, res.Content, info, dispatch.WithLogger(logger))
	handler, err := streaminghttp.New(cfg.Endpoint, store, disp, info,
		streaminghttp.WithLogger(logger),
		streaminghttp.WithKeepAliveInterval(cfg.KeepAlive),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server.shutdown.fail", slog.String("err", err.Error()))
		}
	}()

	logger.Info("server.start",
		slog.String("addr", cfg.Addr),
		slog.String("endpoint", cfg.Endpoint),
		slog.String("resource_uri", res.URI),
		slog.String("version", version),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server.stop")
	return nil
}
