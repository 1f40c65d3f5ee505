package backend

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	// Packages
	imaging "github.com/disintegration/imaging"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	blob "gocloud.dev/blob"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	thumbnailContentType = "image/jpeg"

	// maxThumbnailSource bounds the size of an image which will be rendered
	maxThumbnailSource = 32 << 20
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Thumbnail returns a JPEG preview of an image object, fitted into a square of
// the configured size. Rendered previews are kept in the bucket and reused.
// A missing object, or one which is not a decodable image, is not found.
func (b *Backend) Thumbnail(ctx context.Context, key string) (_ []byte, _ string, err error) {
	defer func(since time.Time) { b.observeThumbnail(since, err) }(time.Now())
	if !validKey(key) {
		return nil, "", httpresponse.ErrBadRequest.Withf("invalid key %q", key)
	}

	// Return a rendered preview if there is one
	if data, err := b.bucket.ReadAll(ctx, thumbnailKey(key)); err == nil {
		return data, thumbnailContentType, nil
	} else if !isNotFound(err) {
		return nil, "", blobErr(err, key)
	}

	// Only images have a preview
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, "", blobErr(err, key)
	}
	if !strings.HasPrefix(attrs.ContentType, "image/") {
		return nil, "", httpresponse.ErrNotFound.Withf("no preview for %q (%s)", key, attrs.ContentType)
	} else if attrs.Size > maxThumbnailSource {
		return nil, "", httpresponse.ErrNotFound.Withf("no preview for %q (too large)", key)
	}

	// Decode the source image
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, "", blobErr(err, key)
	}
	defer r.Close()
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", httpresponse.ErrNotFound.Withf("no preview for %q: %v", key, err)
	}

	// Render
	var buf bytes.Buffer
	thumb := imaging.Fit(img, b.thumbSize, b.thumbSize, imaging.Lanczos)
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, "", httpresponse.ErrInternalError.Withf("render %q: %v", key, err)
	}

	// Keep the preview; a failure here only costs a re-render
	if err := b.bucket.WriteAll(ctx, thumbnailKey(key), buf.Bytes(), &blob.WriterOptions{
		ContentType: thumbnailContentType,
	}); err != nil {
		b.logger.WarnContext(ctx, "thumbnail not cached", "key", key, "err", err)
	}

	// Return success
	return buf.Bytes(), thumbnailContentType, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// observeThumbnail records a render. A missing preview is an outcome, not a
// failure.
func (b *Backend) observeThumbnail(since time.Time, err error) {
	switch {
	case err == nil:
		b.metrics.Thumbnail(metrics.OutcomeFound)
	case errors.Is(err, httpresponse.ErrNotFound):
		b.metrics.Thumbnail(metrics.OutcomeNotFound)
		err = nil
	default:
		b.metrics.Thumbnail(metrics.OutcomeError)
	}
	b.metrics.Observe(metrics.OpThumbnail, since, err)
}
