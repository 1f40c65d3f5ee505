package backend

import (
	"context"
	"time"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// DeleteObjects removes a batch of objects and reports the outcome per key, in
// request order. A key which does not exist is reported as deleted. Invalid
// keys and storage failures are reported as not deleted; they never fail the
// batch. Any rendered thumbnail of a deleted object is dropped as well.
func (b *Backend) DeleteObjects(ctx context.Context, keys []string) (_ *schema.DeleteResponse, err error) {
	defer func(since time.Time) { b.metrics.Observe(metrics.OpDelete, since, err) }(time.Now())
	if len(keys) > schema.MaxDeleteKeys {
		return nil, httpresponse.ErrBadRequest.Withf("too many keys (max %d)", schema.MaxDeleteKeys)
	}

	response := &schema.DeleteResponse{Results: make([]schema.DeleteObjectResult, 0, len(keys))}
	for _, key := range keys {
		// Stop when the request goes away
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		response.Results = append(response.Results, schema.DeleteObjectResult{
			Key:     key,
			Deleted: b.deleteObject(ctx, key),
		})
	}

	// Return success
	b.metrics.Deleted(len(response.Deleted()), len(response.Unconfirmed()))
	return response, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (b *Backend) deleteObject(ctx context.Context, key string) bool {
	if !validKey(key) {
		b.logger.WarnContext(ctx, "delete refused", "key", key)
		return false
	}
	if err := b.bucket.Delete(ctx, key); err != nil && !isNotFound(err) {
		b.logger.ErrorContext(ctx, "delete failed", "key", key, "err", err)
		return false
	}
	if err := b.bucket.Delete(ctx, thumbnailKey(key)); err != nil && !isNotFound(err) {
		b.logger.WarnContext(ctx, "thumbnail delete failed", "key", key, "err", err)
	}
	return true
}
