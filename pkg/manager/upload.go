package manager

import (
	"context"
	"errors"
	"time"

	// Packages
	uuid "github.com/google/uuid"
	otel "github.com/mutablelogic/go-client/pkg/otel"
	transfer "github.com/mutablelogic/go-transfer"
	metrics "github.com/mutablelogic/go-transfer/pkg/metrics"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	errgroup "golang.org/x/sync/errgroup"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// UploadOne uploads a single file to a form. A placeholder item is registered
// under a temporary handle, then re-keyed to the permanent key once the
// backend issues a write credential. Any failure leaves the item in the
// registry with status error and is returned as a *transfer.UploadError.
func (manager *Manager) UploadOne(ctx context.Context, formID string, file transfer.File) (_ *schema.UploadedFile, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("UploadOne"))
	defer func() { endFunc(err) }()

	handle, err := manager.register(formID, file)
	if err != nil {
		return nil, err
	}
	return manager.upload(child, formID, handle, file)
}

// UploadMany uploads files to a form concurrently and waits for every
// outcome. A failure never cancels sibling uploads. Placeholders are
// registered in input order before any transfer starts, so the form order
// is the input order. Successes and failures are listed in input order.
//
// The result is always returned. The error is non-nil only when every file
// failed, and then matches transfer.ErrAllFailed and each failure.
func (manager *Manager) UploadMany(ctx context.Context, formID string, files []transfer.File) (_ *schema.UploadResult, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("UploadMany"))
	defer func() { endFunc(err) }()

	result := &schema.UploadResult{FormID: formID, Results: []schema.UploadedFile{}}
	if len(files) == 0 {
		return result, nil
	}

	// Register all placeholders first
	handles := make([]string, len(files))
	errs := make([]error, len(files))
	for i, file := range files {
		handles[i], errs[i] = manager.register(formID, file)
	}

	// Settle all transfers
	uploaded := make([]*schema.UploadedFile, len(files))
	var g errgroup.Group
	if manager.concurrency > 0 {
		g.SetLimit(manager.concurrency)
	}
	for i, file := range files {
		if errs[i] != nil {
			continue
		}
		g.Go(func() error {
			uploaded[i], errs[i] = manager.upload(child, formID, handles[i], file)
			return nil
		})
	}
	_ = g.Wait()

	// Partition in input order
	for i, file := range uploaded {
		if errs[i] == nil {
			result.Results = append(result.Results, *file)
			continue
		}
		failure := schema.UploadFailure{Key: handles[i], Error: errs[i].Error(), Err: errs[i]}
		var uploadErr *transfer.UploadError
		if errors.As(errs[i], &uploadErr) {
			failure.Key = uploadErr.Key
			failure.FileName = uploadErr.FileName
		}
		result.Failures = append(result.Failures, failure)
	}
	if len(result.Results) == 0 {
		err = errors.Join(append([]error{transfer.ErrAllFailed}, errs...)...)
	} else if len(result.Failures) > 0 {
		manager.logger.WarnContext(child, "partial upload", "form", formID, "uploaded", len(result.Results), "failed", len(result.Failures))
	}

	// Return the result, and an error if nothing was uploaded
	return result, err
}

// RetryUpload restarts a failed upload in place, keeping the position of the
// item in the form. Only items in the error state can be retried; any other
// state is a transfer.ErrInvalidTransition. The item takes the permanent key
// of the new credential.
func (manager *Manager) RetryUpload(ctx context.Context, formID, key string, file transfer.File) (_ *schema.UploadedFile, err error) {
	child, endFunc := otel.StartSpan(manager.tracer, ctx, spanManagerName("RetryUpload"))
	defer func() { endFunc(err) }()

	if file == nil {
		return nil, &transfer.UploadError{FormID: formID, Key: key, Err: errors.New("missing file")}
	}
	if item, exists := manager.registry.Item(formID, key); !exists {
		return nil, &transfer.UploadError{FormID: formID, Key: key, FileName: file.Name(), Err: transfer.ErrUnknownItem}
	} else if item.Status != schema.StatusError {
		return nil, &transfer.UploadError{FormID: formID, Key: key, FileName: file.Name(), Err: transfer.ErrInvalidTransition}
	}

	// The transition is the guard against concurrent retries of the same item
	if err := manager.registry.SetStatus(formID, key, schema.StatusPresigning, ""); err != nil {
		return nil, &transfer.UploadError{FormID: formID, Key: key, FileName: file.Name(), Err: err}
	}
	if err := manager.registry.Register(formID, placeholder(key, file)); err != nil {
		return nil, &transfer.UploadError{FormID: formID, Key: key, FileName: file.Name(), Err: err}
	}

	return manager.upload(child, formID, key, file)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// register adds a placeholder for a file under a new temporary handle
func (manager *Manager) register(formID string, file transfer.File) (string, error) {
	if file == nil {
		return "", &transfer.UploadError{FormID: formID, Err: errors.New("missing file")}
	}
	handle := schema.TempKeyPrefix + uuid.NewString()
	if err := manager.registry.Register(formID, placeholder(handle, file)); err != nil {
		return "", &transfer.UploadError{FormID: formID, Key: handle, FileName: file.Name(), Err: err}
	}
	return handle, nil
}

// upload runs credential, transfer and status update, strictly in that order,
// for an item registered in the presigning state
func (manager *Manager) upload(ctx context.Context, formID, handle string, file transfer.File) (_ *schema.UploadedFile, err error) {
	since := time.Now()
	defer func() { manager.metrics.Observe(metrics.OpUpload, since, err) }()

	// Obtain a write credential
	cred, err := manager.gateway.RequestWriteCredential(ctx, file.ContentType())
	if err != nil {
		return nil, manager.fail(ctx, formID, handle, file, err)
	}

	// Adopt the permanent key
	if err := manager.registry.Rekey(formID, handle, cred.Key); err != nil {
		return nil, manager.fail(ctx, formID, handle, file, err)
	}
	if err := manager.registry.SetStatus(formID, cred.Key, schema.StatusUploading, ""); err != nil {
		return nil, manager.fail(ctx, formID, cred.Key, file, err)
	}

	// Write the bytes
	if err := manager.executor.Execute(ctx, *cred, file, func(percent int) {
		_ = manager.registry.SetProgress(formID, cred.Key, percent)
	}); err != nil {
		return nil, manager.fail(ctx, formID, cred.Key, file, err)
	}

	// Mark as complete
	if err := manager.registry.SetStatus(formID, cred.Key, schema.StatusSuccess, ""); err != nil {
		return nil, manager.fail(ctx, formID, cred.Key, file, err)
	}
	manager.metrics.Uploaded(file.Size())
	manager.logger.InfoContext(ctx, "uploaded", "form", formID, "key", cred.Key, "file", file.Name(), "size", file.Size())

	// Return success
	return &schema.UploadedFile{FormID: formID, Key: cred.Key, FileName: file.Name()}, nil
}

// fail records an upload failure on the item and returns it tagged with the
// form, key and file name
func (manager *Manager) fail(ctx context.Context, formID, key string, file transfer.File, err error) error {
	if statusErr := manager.registry.SetStatus(formID, key, schema.StatusError, err.Error()); statusErr != nil {
		manager.logger.WarnContext(ctx, "upload state not recorded", "form", formID, "key", key, "err", statusErr)
	}
	manager.logger.ErrorContext(ctx, "upload failed", "form", formID, "key", key, "file", file.Name(), "err", err)
	return &transfer.UploadError{FormID: formID, Key: key, FileName: file.Name(), Err: err}
}

func placeholder(key string, file transfer.File) schema.TransferItem {
	return schema.TransferItem{
		Key:         key,
		FileName:    file.Name(),
		ContentType: file.ContentType(),
		Size:        file.Size(),
		Status:      schema.StatusPresigning,
	}
}
