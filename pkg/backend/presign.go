package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	// Packages
	aws "github.com/aws/aws-sdk-go-v2/aws"
	s3 "github.com/aws/aws-sdk-go-v2/service/s3"
	uuid "github.com/google/uuid"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	types "github.com/mutablelogic/go-server/pkg/types"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	blob "gocloud.dev/blob"
	driver "gocloud.dev/blob/driver"
	gcerrors "gocloud.dev/gcerrors"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Presign dispatches a presign request on its operation
func (b *Backend) Presign(ctx context.Context, req schema.PresignRequest) (_ *schema.Credential, err error) {
	defer func(since time.Time) { b.metrics.Observe(metrics.OpPresign, since, err) }(time.Now())
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(req.Op) {
	case schema.OpPut:
		return b.PresignPut(ctx, req.ContentType)
	default:
		return b.PresignGet(ctx, req.Key)
	}
}

// PresignPut mints a new object key for the content type and returns a
// credential to write it. The Content-Type header is part of the signature.
func (b *Backend) PresignPut(ctx context.Context, contentType string) (*schema.Credential, error) {
	contentType, err := b.acceptContentType(contentType)
	if err != nil {
		return nil, err
	}

	// Mint the key and sign
	key := uuid.NewString() + schema.ExtByMIME(contentType)
	url, err := b.signedURL(ctx, key, http.MethodPut, contentType)
	if err != nil {
		return nil, err
	}

	// Return success
	return &schema.Credential{
		Key:     key,
		URL:     url,
		Method:  http.MethodPut,
		Headers: map[string]string{types.ContentTypeHeader: contentType},
	}, nil
}

// PresignGet returns a credential to read an existing object. An unknown key
// is not found.
func (b *Backend) PresignGet(ctx context.Context, key string) (*schema.Credential, error) {
	if !validKey(key) {
		return nil, httpresponse.ErrBadRequest.Withf("invalid key %q", key)
	}
	if exists, err := b.bucket.Exists(ctx, key); err != nil {
		return nil, blobErr(err, key)
	} else if !exists {
		return nil, httpresponse.ErrNotFound.Withf("object %q not found", key)
	}

	// Sign
	url, err := b.signedURL(ctx, key, http.MethodGet, "")
	if err != nil {
		return nil, err
	}

	// Return success
	return &schema.Credential{
		Key:    key,
		URL:    url,
		Method: http.MethodGet,
	}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (b *Backend) signedURL(ctx context.Context, key, method, contentType string) (string, error) {
	// Our own signer, served by the signed object endpoint
	if b.signer != nil {
		u, err := b.signer.URLFromKey(ctx, key, &driver.SignedURLOptions{
			Expiry:      b.expiry,
			Method:      method,
			ContentType: contentType,
		})
		if err != nil {
			return "", httpresponse.ErrInternalError.Withf("sign %q: %v", key, err)
		}
		return u.String(), nil
	}

	// The bucket signs its own URLs. The content type of a PUT is set on the
	// request input, where it becomes a signed header.
	opts := &blob.SignedURLOptions{
		Expiry: b.expiry,
		Method: method,
	}
	if contentType != "" {
		opts.BeforeSign = func(as func(any) bool) error {
			var in *s3.PutObjectInput
			if as(&in) {
				in.ContentType = aws.String(contentType)
			}
			return nil
		}
	}
	url, err := b.bucket.SignedURL(ctx, key, opts)
	if gcerrors.Code(err) == gcerrors.Unimplemented {
		return "", httpresponse.ErrNotImplemented.Withf("backend %q cannot sign urls", b.Name())
	} else if err != nil {
		return "", blobErr(err, key)
	}
	return url, nil
}
