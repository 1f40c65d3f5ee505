package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	// Packages
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httprouter "github.com/mutablelogic/go-server/pkg/httprouter"
	httpserver "github.com/mutablelogic/go-server/pkg/httpserver"
	openapihandler "github.com/mutablelogic/go-server/pkg/openapi/httphandler"
	types "github.com/mutablelogic/go-server/pkg/types"
	backend "github.com/mutablelogic/go-transfer/pkg/backend"
	httphandler "github.com/mutablelogic/go-transfer/pkg/httphandler"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	version "github.com/mutablelogic/go-transfer/pkg/version"
	prometheus "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ServerCommands struct {
	Server RunServerCommand `cmd:"" name:"server" help:"Run the storage backend HTTP server." group:"SERVER"`
}

type RunServerCommand struct {
	Backend      string        `name:"backend" env:"TRANSFER_BACKEND" default:"mem://transfer" help:"Bucket URL (e.g. mem://name, file://name/path, s3://bucket?region=eu-west-1)"`
	Listen       string        `name:"listen" env:"TRANSFER_LISTEN" default:"localhost:8080" help:"Listen address"`
	Prefix       string        `name:"prefix" default:"/api" help:"Path prefix for the storage endpoints"`
	Origin       string        `name:"origin" default:"*" help:"Allowed CORS origin"`
	PublicURL    string        `name:"public-url" env:"TRANSFER_PUBLIC_URL" help:"Public URL of the signed object endpoint (defaults to the listen address)"`
	Secret       string        `name:"secret" env:"TRANSFER_SECRET" help:"Key for signing object URLs (random if not set)"`
	ContentTypes []string      `name:"content-type" sep:"," help:"Accepted content type patterns (e.g. image/*)"`
	Expiry       time.Duration `name:"expiry" default:"15m" help:"Lifetime of presigned URLs"`
	Thumbnail    int           `name:"thumbnail-size" default:"256" help:"Bounding box of rendered thumbnails, in pixels"`
	S3Endpoint   string        `name:"s3-endpoint" env:"TRANSFER_S3_ENDPOINT" help:"S3-compatible endpoint (e.g. http://localhost:9000)"`
	Anonymous    bool          `name:"s3-anonymous" help:"Do not sign S3 requests"`
	Metrics      bool          `name:"metrics" negatable:"" default:"true" help:"Serve prometheus metrics on /metrics"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunServerCommand) Run(ctx *Globals) error {
	opts, err := cmd.backendOpts(ctx)
	if err != nil {
		return err
	}

	// Open the bucket
	b, err := backend.New(ctx.ctx, cmd.Backend, opts...)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}
	defer b.Close()

	return cmd.serve(ctx, b)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (cmd *RunServerCommand) backendOpts(ctx *Globals) ([]backend.Opt, error) {
	opts := []backend.Opt{
		backend.WithLogger(ctx.logger),
		backend.WithExpiry(cmd.Expiry),
		backend.WithThumbnailSize(cmd.Thumbnail),
	}
	if len(cmd.ContentTypes) > 0 {
		opts = append(opts, backend.WithContentTypes(cmd.ContentTypes...))
	}
	if cmd.Secret != "" {
		opts = append(opts, backend.WithSecret(cmd.Secret))
	}
	if cmd.S3Endpoint != "" {
		opts = append(opts, backend.WithEndpoint(cmd.S3Endpoint))
	}
	if cmd.Anonymous {
		opts = append(opts, backend.WithAnonymous())
	}
	if cmd.Metrics {
		m, err := metrics.New(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, backend.WithMetrics(m))
	}

	// The signed object endpoint, as seen by clients
	publicURL := cmd.PublicURL
	if publicURL == "" {
		host, port, err := net.SplitHostPort(cmd.Listen)
		if err != nil {
			return nil, err
		}
		if host == "" {
			host = "localhost"
		}
		publicURL = (&url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(host, port),
			Path:   types.NormalisePath(cmd.Prefix) + "/storage/object",
		}).String()
	}
	opts = append(opts, backend.WithPublicURL(publicURL))

	// Return success
	return opts, nil
}

// serve registers HTTP handlers and runs the server until context is done.
func (cmd *RunServerCommand) serve(ctx *Globals, b *backend.Backend) error {
	// Create the server
	srv, err := httpserver.New(cmd.Listen, nil)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Create the router over the server mux
	router, err := httprouter.NewRouter(ctx.ctx, srv.Router(), cmd.Prefix, cmd.Origin, "transfer", version.Version())
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	// Register storage and OpenAPI handlers
	if err := httphandler.RegisterHandlers(b, router); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	if err := openapihandler.RegisterHandler(router); err != nil {
		return fmt.Errorf("failed to register openapi: %w", err)
	}
	if cmd.Metrics {
		if err := router.RegisterPath("/metrics", nil,
			httprequest.NewPathItem("Metrics", "Prometheus metrics", "Metrics").Get(promhttp.Handler().ServeHTTP, "Get metrics"),
		); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	srv.SetHandler(router)

	ctx.logger.InfoContext(ctx.ctx, "transfer started", "version", version.Version(), "listen", cmd.Listen, "backend", b.URL().String())
	if err := srv.Run(ctx.ctx); err != nil {
		return err
	}
	ctx.logger.InfoContext(context.Background(), "transfer stopped")
	return nil
}
