package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
	transfer "github.com/mutablelogic/go-transfer"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// progressReadCloser reports the percentage of bytes read, calling cb only
// when the percentage increases.
type progressReadCloser struct {
	sync.Mutex
	r       io.ReadCloser
	total   int64
	written int64
	last    int
	cb      func(percent int)
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Execute writes the contents of file to the destination of a presigned
// credential. The Content-Type and Content-Length headers are always set,
// since presigned destinations refuse chunked bodies. onProgress, which may
// be nil, receives strictly increasing percentages. Any response outside the
// 2xx range is a *transfer.TransferError. There is no retry.
func (c *Client) Execute(ctx context.Context, cred schema.Credential, file transfer.File, onProgress func(percent int)) error {
	if cred.URL == "" {
		return &transfer.TransferError{Key: cred.Key, Err: errors.New("credential has no destination")}
	}
	method := cred.Method
	if method == "" {
		method = http.MethodPut
	}

	// Open the file
	body, err := file.Open()
	if err != nil {
		return &transfer.TransferError{Key: cred.Key, Err: err}
	}
	progress := newProgressReadCloser(body, file.Size(), onProgress)

	// Build the request
	req, err := http.NewRequestWithContext(ctx, method, cred.URL, progress)
	if err != nil {
		body.Close()
		return &transfer.TransferError{Key: cred.Key, Err: err}
	}
	req.ContentLength = file.Size()
	if req.ContentLength == 0 {
		body.Close()
		req.Body = http.NoBody
	}
	for k, v := range cred.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get(types.ContentTypeHeader) == "" {
		req.Header.Set(types.ContentTypeHeader, file.ContentType())
	}

	// Perform the request. The transport closes the body.
	resp, err := c.Client.Client.Do(req)
	if err != nil {
		return &transfer.TransferError{Key: cred.Key, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return &transfer.TransferError{Key: cred.Key, StatusCode: resp.StatusCode, Err: responseErr(resp)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	// Report completion, for empty files and bodies which were not read to the end
	progress.emit(100)

	// Return success
	return nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func newProgressReadCloser(r io.ReadCloser, total int64, cb func(percent int)) *progressReadCloser {
	return &progressReadCloser{
		r:     r,
		total: total,
		cb:    cb,
	}
}

func (r *progressReadCloser) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.written += int64(n)
		if r.total > 0 {
			r.emit(int(min(r.written, r.total) * 100 / r.total))
		}
	}
	return n, err
}

func (r *progressReadCloser) Close() error {
	return r.r.Close()
}

// emit may be called from the transport goroutine and the caller at once
func (r *progressReadCloser) emit(percent int) {
	r.Lock()
	defer r.Unlock()
	if r.cb == nil || percent <= r.last {
		return
	}
	r.last = percent
	r.cb(percent)
}
