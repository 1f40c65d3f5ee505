// Package backend implements the storage side of the transfer contract over
// a Go CDK blob bucket: it mints presigned credentials, deletes objects in
// batches, renders thumbnails and, for buckets which cannot sign URLs
// themselves, verifies and serves signed object URLs.
package backend

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	config "github.com/aws/aws-sdk-go-v2/config"
	credentials "github.com/aws/aws-sdk-go-v2/credentials"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	types "github.com/mutablelogic/go-server/pkg/types"
	otelaws "go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	blob "gocloud.dev/blob"
	fileblob "gocloud.dev/blob/fileblob"
	s3blob "gocloud.dev/blob/s3blob"

	// Drivers
	_ "gocloud.dev/blob/memblob" // mem:// URLs
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type Backend struct {
	*opt
	bucket *blob.Bucket
	signer *fileblob.URLSignerHMAC // nil when the bucket signs its own URLs
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New opens a blob bucket. The host of the URL names the backend.
// Supported URL schemes: s3://, file://, mem://
// Examples:
//   - "s3://my-bucket?region=us-east-1"
//   - "file://name/path/to/directory"
//   - "mem://name"
//
// For file:// and mem:// buckets, WithPublicURL must point at the signed
// object endpoint so that presigned URLs can be served.
func New(ctx context.Context, u string, opts ...Opt) (*Backend, error) {
	self := new(Backend)

	// Set the options
	if url, err := url.Parse(u); err != nil {
		return nil, err
	} else if opt, err := apply(url, opts...); err != nil {
		return nil, err
	} else {
		self.opt = opt
	}

	// Validate the backend name (URL host) is a valid identifier
	if !types.IsIdentifier(self.url.Host) {
		return nil, fmt.Errorf("backend name %q must be a valid identifier (letter, digits, underscores, hyphens; max 64 chars)", self.url.Host)
	}

	// Open the bucket
	var bucket *blob.Bucket
	var err error
	switch self.url.Scheme {
	case "s3":
		bucket, err = self.openS3(ctx)
	case "file":
		// For file:// the path is the bucket root dir
		openURL := &url.URL{Scheme: "file", Path: self.url.Path, RawQuery: self.url.RawQuery}
		bucket, err = blob.OpenBucket(ctx, openURL.String())
	case "mem":
		bucket, err = blob.OpenBucket(ctx, "mem://")
	default:
		return nil, fmt.Errorf("unsupported backend scheme %q", self.url.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	self.bucket = bucket

	// Buckets other than s3 hand out URLs signed with our own key
	if self.url.Scheme != "s3" {
		if self.publicURL == nil {
			return nil, errors.Join(errors.New("a public url is required for file:// and mem:// backends"), self.Close())
		}
		if self.secret == nil {
			self.secret = make([]byte, 32)
			if _, err := rand.Read(self.secret); err != nil {
				return nil, errors.Join(err, self.Close())
			}
		}
		self.signer = fileblob.NewURLSignerHMAC(self.publicURL, self.secret)
	}

	// Return success
	return self, nil
}

// Close the backend
func (b *Backend) Close() error {
	var result error
	if b.bucket != nil {
		result = errors.Join(result, b.bucket.Close())
		b.bucket = nil
	}

	// Return any errors
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Name returns the name of the backend (the host component of the URL)
func (b *Backend) Name() string {
	return b.url.Host
}

// URL returns the backend URL without credentials
func (b *Backend) URL() *url.URL {
	u := *b.url
	u.User = nil
	return &u
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (b *Backend) openS3(ctx context.Context) (*blob.Bucket, error) {
	var cfg aws.Config
	if b.awsConfig != nil {
		cfg = b.awsConfig.Copy()
	} else {
		loadOpts := []func(*config.LoadOptions) error{}
		if region := b.url.Query().Get("region"); region != "" {
			loadOpts = append(loadOpts, config.WithRegion(region))
		}
		if c, err := config.LoadDefaultConfig(ctx, loadOpts...); err != nil {
			return nil, err
		} else {
			cfg = c
		}
	}

	// Credentials
	switch {
	case b.anonymous:
		cfg.Credentials = aws.AnonymousCredentials{}
	case b.accessKey != "":
		cfg.Credentials = credentials.NewStaticCredentialsProvider(b.accessKey, b.secretKey, "")
	}

	// Tracing
	if b.tracer != nil {
		otelaws.AppendMiddlewares(&cfg.APIOptions)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.endpoint != "" {
			o.BaseEndpoint = aws.String(b.endpoint)
			o.UsePathStyle = true
		}
	})
	return s3blob.OpenBucket(ctx, client, b.url.Host, nil)
}
