package manager

import (
	"context"
	"errors"
	"time"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	transfer "github.com/mutablelogic/go-transfer"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	errgroup "golang.org/x/sync/errgroup"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// GetViewURL returns a time-limited read URL for a key and attaches it to the
// registry item, if there is one. A key which is not in the registry, such as
// one loaded from a stored record, still gets a URL. An unknown or deleted
// key is a *transfer.CredentialError.
func (manager *Manager) GetViewURL(ctx context.Context, formID, key string) (_ string, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("GetViewURL"))
	defer func() { endFunc(err) }()

	url, err := manager.readURL(child, key)
	if err != nil {
		return "", err
	}
	if err := manager.registry.SetViewURL(formID, key, url); err != nil && !errors.Is(err, transfer.ErrUnknownItem) {
		return "", err
	}
	return url, nil
}

// OpenView returns a read URL for immediate use. The registry is not touched.
func (manager *Manager) OpenView(ctx context.Context, formID, key string) (_ string, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("OpenView"))
	defer func() { endFunc(err) }()

	manager.logger.DebugContext(child, "open view", "form", formID, "key", key)
	return manager.readURL(child, key)
}

// FetchThumbnail fetches the preview of a key and returns a new local handle
// to it. Every call gets its own handle, which stays valid until released,
// evicted or expired. A key without a preview is a *transfer.NotFoundError.
func (manager *Manager) FetchThumbnail(ctx context.Context, key string) (_ *schema.Thumbnail, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("FetchThumbnail"))
	defer func() { endFunc(err) }()

	since := time.Now()
	data, contentType, err := manager.gateway.FetchThumbnail(child, key)
	switch {
	case errors.Is(err, transfer.ErrNotFound):
		// Absence is an outcome, not a failure of the operation
		manager.metrics.Observe(metrics.OpThumbnail, since, nil)
		manager.metrics.Thumbnail(metrics.OutcomeNotFound)
		return nil, err
	case err != nil:
		manager.metrics.Observe(metrics.OpThumbnail, since, err)
		manager.metrics.Thumbnail(metrics.OutcomeError)
		manager.logger.WarnContext(child, "thumbnail failed", "key", key, "err", err)
		return nil, err
	}
	manager.metrics.Observe(metrics.OpThumbnail, since, nil)
	manager.metrics.Thumbnail(metrics.OutcomeFound)

	// Wrap the payload in a handle
	thumb := manager.thumbs.Put(key, contentType, data)
	manager.metrics.HandleAcquired()

	// Return success
	return &thumb, nil
}

// FetchThumbnails fetches the previews of keys in parallel. Each key
// resolves or fails on its own, and results are in input order.
func (manager *Manager) FetchThumbnails(ctx context.Context, keys []string) []schema.ThumbnailResult {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("FetchThumbnails"))
	defer func() { endFunc(nil) }()

	result := make([]schema.ThumbnailResult, len(keys))
	var g errgroup.Group
	if manager.concurrency > 0 {
		g.SetLimit(manager.concurrency)
	}
	for i, key := range keys {
		result[i].Key = key
		g.Go(func() error {
			if thumb, err := manager.FetchThumbnail(child, key); err != nil {
				result[i].Err = err
			} else {
				result[i].Handle = thumb.Handle
			}
			return nil
		})
	}
	_ = g.Wait()

	// Return results
	return result
}

// ResolveThumbnail returns the payload and content type behind a handle
func (manager *Manager) ResolveThumbnail(handle string) ([]byte, string, bool) {
	return manager.thumbs.Get(handle)
}

// ReleaseThumbnail releases a handle, returning false if it was not held
func (manager *Manager) ReleaseThumbnail(handle string) bool {
	return manager.thumbs.Release(handle)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (manager *Manager) readURL(ctx context.Context, key string) (_ string, err error) {
	since := time.Now()
	defer func() { manager.metrics.Observe(metrics.OpView, since, err) }()

	cred, err := manager.gateway.RequestReadCredential(ctx, key)
	if err != nil {
		return "", err
	}
	return cred.URL, nil
}
