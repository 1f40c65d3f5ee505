package backend

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	blob "gocloud.dev/blob"
	gcerrors "gocloud.dev/gcerrors"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ReadSigned verifies a signed GET URL and opens the object it names.
// Caller must close the returned reader.
func (b *Backend) ReadSigned(ctx context.Context, u *url.URL) (_ *blob.Reader, err error) {
	defer func(since time.Time) { b.metrics.Observe(metrics.OpView, since, err) }(time.Now())
	key, err := b.verify(ctx, u, http.MethodGet)
	if err != nil {
		return nil, err
	}
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, blobErr(err, key)
	}
	return r, nil
}

// WriteSigned verifies a signed PUT URL and stores the body under the key it
// names. The declared content type must match the signed one. A credential
// writes at most one object: an existing object is a conflict.
func (b *Backend) WriteSigned(ctx context.Context, u *url.URL, contentType string, body io.Reader) (_ string, _ int64, err error) {
	defer func(since time.Time) { b.metrics.Observe(metrics.OpUpload, since, err) }(time.Now())
	key, err := b.verify(ctx, u, http.MethodPut)
	if err != nil {
		return "", 0, err
	}
	if signed := u.Query().Get("contentType"); signed != "" && !sameMediaType(signed, contentType) {
		return "", 0, httpresponse.ErrForbidden.Withf("content type %q does not match signature", contentType)
	}

	// Write the object only if it does not exist. Cancelling the writer
	// context before Close discards a partial write.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := b.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType: contentType,
		IfNotExist:  true,
	})
	if err != nil {
		return "", 0, blobErr(err, key)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		cancel()
		return "", 0, httpresponse.ErrBadRequest.Withf("write %q: %v", key, errors.Join(err, w.Close()))
	} else if err := w.Close(); gcerrors.Code(err) == gcerrors.FailedPrecondition {
		return "", 0, httpresponse.ErrConflict.Withf("object %q already exists", key)
	} else if err != nil {
		return "", 0, blobErr(err, key)
	}

	// Return success
	b.metrics.Uploaded(n)
	return key, n, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// verify checks the signature, expiry and method of a signed URL and returns
// the key it grants access to
func (b *Backend) verify(ctx context.Context, u *url.URL, method string) (string, error) {
	if b.signer == nil {
		return "", httpresponse.ErrNotImplemented.Withf("backend %q does not serve signed urls", b.Name())
	}
	key, err := b.signer.KeyFromURL(ctx, u)
	if err != nil {
		return "", httpresponse.ErrForbidden.With("invalid or expired signature")
	}
	if signed := u.Query().Get("method"); signed != "" && signed != method {
		return "", httpresponse.ErrForbidden.Withf("signature does not permit %s", method)
	}
	if !validKey(key) {
		return "", httpresponse.ErrForbidden.Withf("invalid key %q", key)
	}
	return key, nil
}

func sameMediaType(a, b string) bool {
	ma, _, err := mime.ParseMediaType(a)
	if err != nil {
		return false
	}
	mb, _, err := mime.ParseMediaType(b)
	if err != nil {
		return false
	}
	return ma == mb
}
