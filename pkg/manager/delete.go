package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	transfer "github.com/mutablelogic/go-transfer"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	msgDeleteFailed      = "delete failed"
	msgDeleteUnconfirmed = "delete not confirmed by backend"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// DeleteMany removes keys from the backend in one batched call, marking the
// registered items as deleting first. Keys not in the registry are still
// sent to the backend. Items which cannot be deleted in their current state,
// such as those still uploading, are reported as skipped and not sent.
//
// When the call succeeds every requested key is removed from the registry,
// and keys the backend did not confirm are reported as unconfirmed. With
// WithStrictDeletion the unconfirmed keys stay in the registry in the error
// state instead. When the call fails every marked item is rolled back to the
// error state and a *transfer.DeletionError is returned. A batch of more
// than schema.MaxDeleteKeys distinct keys is refused before any item is
// touched.
func (manager *Manager) DeleteMany(ctx context.Context, formID string, keys []string) (_ *schema.DeleteResult, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("DeleteMany"))
	defer func() { endFunc(err) }()

	result := &schema.DeleteResult{FormID: formID}
	if len(keys) == 0 {
		return result, nil
	}

	// Refuse a batch the backend would reject
	unique := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, exists := seen[key]; key != "" && !exists {
			seen[key] = struct{}{}
			unique = append(unique, key)
		}
	}
	if len(unique) > schema.MaxDeleteKeys {
		return result, &transfer.DeletionError{Keys: unique, Err: fmt.Errorf("too many keys (max %d)", schema.MaxDeleteKeys)}
	}

	// Mark registered items as deleting
	var marked, send []string
	for _, key := range unique {
		if err := manager.registry.SetStatus(formID, key, schema.StatusDeleting, ""); err == nil {
			marked = append(marked, key)
		} else if !errors.Is(err, transfer.ErrUnknownItem) {
			manager.logger.WarnContext(child, "delete skipped", "form", formID, "key", key, "err", err)
			result.Skipped = append(result.Skipped, key)
			continue
		}
		send = append(send, key)
	}
	if len(send) == 0 {
		return result, nil
	}

	// Delete in one call
	since := time.Now()
	response, err := manager.gateway.DeleteObjects(child, send)
	manager.metrics.Observe(metrics.OpDelete, since, err)
	if err != nil {
		var deletionErr *transfer.DeletionError
		if !errors.As(err, &deletionErr) {
			err = &transfer.DeletionError{Keys: send, Err: err}
		}
		manager.rollback(child, formID, marked, msgDeleteFailed+": "+err.Error())
		manager.logger.ErrorContext(child, "delete failed", "form", formID, "keys", len(send), "err", err)
		return result, err
	}

	// Partition by the per-key outcome. A key missing from the response is
	// unconfirmed.
	confirmed := response.Deleted()
	for _, key := range send {
		if slices.Contains(confirmed, key) {
			result.Deleted = append(result.Deleted, key)
		} else {
			result.Unconfirmed = append(result.Unconfirmed, key)
		}
	}
	manager.metrics.Deleted(len(result.Deleted), len(result.Unconfirmed))

	// Commit the local removal
	for _, key := range marked {
		if manager.strict && slices.Contains(result.Unconfirmed, key) {
			manager.rollback(child, formID, []string{key}, msgDeleteUnconfirmed)
			continue
		}
		manager.registry.Remove(formID, key)
	}
	if len(result.Unconfirmed) > 0 {
		manager.logger.WarnContext(child, "delete unconfirmed", "form", formID, "keys", result.Unconfirmed, "strict", manager.strict)
	}

	// Return success
	return result, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// rollback moves items from deleting to error
func (manager *Manager) rollback(ctx context.Context, formID string, keys []string, message string) {
	for _, key := range keys {
		if err := manager.registry.SetStatus(formID, key, schema.StatusError, message); err != nil {
			manager.logger.WarnContext(ctx, "rollback failed", "form", formID, "key", key, "err", err)
		}
	}
}
