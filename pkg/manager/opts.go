package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Packages
	transfer "github.com/mutablelogic/go-transfer"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	registry "github.com/mutablelogic/go-transfer/pkg/registry"
	prometheus "github.com/prometheus/client_golang/prometheus"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for transfer manager configuration.
type Opt func(*opts) error

// Client is both halves of the backend contract, as implemented by
// httpclient.Client
type Client interface {
	transfer.Gateway
	transfer.Executor
}

type opts struct {
	gateway     transfer.Gateway
	executor    transfer.Executor
	registry    *registry.Registry
	tracer      trace.Tracer
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
	strict      bool
	thumbSize   int
	thumbTTL    time.Duration
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithClient sets the gateway and the executor from a single client.
func WithClient(client Client) Opt {
	return func(o *opts) error {
		if client == nil {
			return errors.New("client is required")
		}
		o.gateway = client
		o.executor = client
		return nil
	}
}

// WithGateway sets the backend used for credentials, deletion and thumbnails.
func WithGateway(gateway transfer.Gateway) Opt {
	return func(o *opts) error {
		if gateway == nil {
			return errors.New("gateway is required")
		}
		o.gateway = gateway
		return nil
	}
}

// WithExecutor sets the writer of object bytes to presigned destinations.
func WithExecutor(executor transfer.Executor) Opt {
	return func(o *opts) error {
		if executor == nil {
			return errors.New("executor is required")
		}
		o.executor = executor
		return nil
	}
}

// WithRegistry sets the item registry. The default is the process-wide
// registry returned by registry.Default().
func WithRegistry(r *registry.Registry) Opt {
	return func(o *opts) error {
		if r == nil {
			return errors.New("registry is required")
		}
		o.registry = r
		return nil
	}
}

// WithTracer sets the tracer used for tracing operations.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

// WithLogger sets the structured logger. The default discards all output.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opts) error {
		if logger == nil {
			return errors.New("logger is required")
		}
		o.logger = logger
		return nil
	}
}

// WithMetrics registers transfer metrics with the registerer.
func WithMetrics(reg prometheus.Registerer) Opt {
	return func(o *opts) error {
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}
		o.metrics = m
		return nil
	}
}

// WithConcurrency bounds the number of transfers a batch operation runs at
// once. Zero means no limit.
func WithConcurrency(n int) Opt {
	return func(o *opts) error {
		if n < 0 {
			return fmt.Errorf("invalid concurrency %d", n)
		}
		o.concurrency = n
		return nil
	}
}

// WithStrictDeletion keeps keys the backend did not confirm as deleted in the
// registry, in the error state, instead of removing them.
func WithStrictDeletion() Opt {
	return func(o *opts) error {
		o.strict = true
		return nil
	}
}

// WithThumbnailCache bounds the number of thumbnail handles held at once and
// their lifetime. Zero values select the defaults.
func WithThumbnailCache(size int, ttl time.Duration) Opt {
	return func(o *opts) error {
		if size < 0 || ttl < 0 {
			return fmt.Errorf("invalid thumbnail cache size %d or ttl %v", size, ttl)
		}
		o.thumbSize = size
		o.thumbTTL = ttl
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func applyOpts(opt []Opt) (opts, error) {
	// Set defaults
	o := opts{
		logger: slog.New(slog.DiscardHandler),
	}

	// Apply options
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}

	// Check for required options
	if o.gateway == nil {
		return opts{}, errors.New("missing gateway")
	}
	if o.executor == nil {
		return opts{}, errors.New("missing executor")
	}
	if o.registry == nil {
		o.registry = registry.Default()
	}

	// Return success
	return o, nil
}
