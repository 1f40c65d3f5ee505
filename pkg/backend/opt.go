package backend

import (
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"strings"
	"time"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	url          *url.URL
	awsConfig    *aws.Config
	endpoint     string       // raw endpoint URL set via WithEndpoint
	anonymous    bool         // forces anonymous credentials
	accessKey    string       // static credentials set via WithCredentials
	secretKey    string       // static credentials set via WithCredentials
	tracer       trace.Tracer // optional OTel tracer; when set, AWS SDK middleware is injected
	logger       *slog.Logger
	metrics      *metrics.Metrics
	publicURL    *url.URL // base URL of the signed object endpoint, for file:// and mem://
	secret       []byte   // HMAC key for signed object URLs
	contentTypes []string // allowed content type patterns for write credentials
	expiry       time.Duration
	thumbSize    int
}

type Opt func(*opt) error

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	DefaultContentTypes = []string{"image/*", "application/pdf", "text/*", "application/octet-stream"}
)

const (
	DefaultThumbnailSize = 256
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func apply(url *url.URL, opts ...Opt) (*opt, error) {
	// Set defaults
	o := opt{
		url:          url,
		contentTypes: DefaultContentTypes,
		expiry:       schema.DefaultExpiry,
		thumbSize:    DefaultThumbnailSize,
		logger:       slog.New(slog.DiscardHandler),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	// Return success
	return &o, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WithEndpoint sets the S3 endpoint for S3-compatible services.
// Path-style addressing is always used for custom endpoints.
func WithEndpoint(endpoint string) Opt {
	return func(o *opt) error {
		if endpoint, err := url.Parse(endpoint); err != nil {
			return err
		} else if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
			return fmt.Errorf("endpoint must be http:// or https://, got %s://", endpoint.Scheme)
		} else {
			o.endpoint = endpoint.String()
		}
		return nil
	}
}

// WithAnonymous forces use of anonymous credentials.
// Use this for S3-compatible services that don't require authentication.
func WithAnonymous() Opt {
	return func(o *opt) error {
		o.anonymous = true
		return nil
	}
}

// WithCredentials sets static S3 credentials, overriding the default chain
func WithCredentials(accessKey, secretKey string) Opt {
	return func(o *opt) error {
		if accessKey == "" || secretKey == "" {
			return fmt.Errorf("access key and secret key are both required")
		}
		o.accessKey, o.secretKey = accessKey, secretKey
		return nil
	}
}

// WithCreateDir sets create_dir=true for file:// URLs to create the directory if it doesn't exist
func WithCreateDir() Opt {
	return func(o *opt) error {
		o.set("create_dir", "true")
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the backend.
// When set on an s3:// backend, AWS SDK middleware is injected so each S3 API
// call produces a child span.
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opt) error {
		o.tracer = tracer
		return nil
	}
}

// WithLogger sets the logger for the backend
func WithLogger(logger *slog.Logger) Opt {
	return func(o *opt) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithMetrics records backend activity: presigning, signed reads and writes,
// deletions and thumbnails
func WithMetrics(m *metrics.Metrics) Opt {
	return func(o *opt) error {
		o.metrics = m
		return nil
	}
}

// WithAWSConfig provides an AWS SDK v2 Config directly.
// When provided for s3:// URLs, this config is used instead of loading the
// default configuration chain.
func WithAWSConfig(cfg aws.Config) Opt {
	return func(o *opt) error {
		o.awsConfig = &cfg
		return nil
	}
}

// WithPublicURL sets the externally reachable URL of the signed object
// endpoint. Buckets which cannot sign URLs themselves (file://, mem://) hand
// out URLs under this base, e.g. "http://localhost:8080/api/storage/object".
func WithPublicURL(u string) Opt {
	return func(o *opt) error {
		if u, err := url.Parse(u); err != nil {
			return err
		} else if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("public url must be http:// or https://, got %q", u.String())
		} else {
			o.publicURL = u
		}
		return nil
	}
}

// WithSecret sets the key used to sign object URLs for file:// and mem://
func WithSecret(secret string) Opt {
	return func(o *opt) error {
		if len(secret) < 16 {
			return fmt.Errorf("secret must be at least 16 characters")
		}
		o.secret = []byte(secret)
		return nil
	}
}

// WithContentTypes replaces the content type patterns accepted for new
// objects. Patterns use path.Match syntax, e.g. "image/*".
func WithContentTypes(patterns ...string) Opt {
	return func(o *opt) error {
		if len(patterns) == 0 {
			return fmt.Errorf("at least one content type is required")
		}
		result := make([]string, 0, len(patterns))
		for _, pattern := range patterns {
			pattern = strings.ToLower(strings.TrimSpace(pattern))
			if _, _, err := mime.ParseMediaType(strings.ReplaceAll(pattern, "*", "x")); err != nil {
				return fmt.Errorf("invalid content type %q: %w", pattern, err)
			}
			result = append(result, pattern)
		}
		o.contentTypes = result
		return nil
	}
}

// WithExpiry sets the lifetime of presigned credentials
func WithExpiry(expiry time.Duration) Opt {
	return func(o *opt) error {
		if expiry <= 0 {
			return fmt.Errorf("expiry must be positive")
		}
		o.expiry = expiry
		return nil
	}
}

// WithThumbnailSize sets the bounding box, in pixels, of rendered thumbnails
func WithThumbnailSize(size int) Opt {
	return func(o *opt) error {
		if size < 16 || size > 2048 {
			return fmt.Errorf("thumbnail size must be between 16 and 2048")
		}
		o.thumbSize = size
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (o *opt) set(key, value string) {
	if o.url == nil {
		return
	}
	q := o.url.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	o.url.RawQuery = q.Encode()
}
