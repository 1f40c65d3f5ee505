package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	// Packages
	client "github.com/mutablelogic/go-client"
	types "github.com/mutablelogic/go-server/pkg/types"
	transfer "github.com/mutablelogic/go-transfer"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// maxThumbnailSize bounds the payload read from a thumbnail response
const maxThumbnailSize = 16 << 20

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RequestWriteCredential asks the backend to mint a destination for a new
// object of the given content type.
func (c *Client) RequestWriteCredential(ctx context.Context, contentType string) (*schema.Credential, error) {
	return c.presign(ctx, schema.PresignRequest{Op: schema.OpPut, ContentType: contentType})
}

// RequestReadCredential mints a time-limited read URL for an existing key.
// An unknown or deleted key is reported as a credential error.
func (c *Client) RequestReadCredential(ctx context.Context, key string) (*schema.Credential, error) {
	return c.presign(ctx, schema.PresignRequest{Op: schema.OpGet, Key: key})
}

// DeleteObjects removes a batch of keys in a single request. The per-key
// results are returned as reported; only a failure of the call itself is an
// error.
func (c *Client) DeleteObjects(ctx context.Context, keys []string) (*schema.DeleteResponse, error) {
	payload, err := client.NewJSONRequest(schema.DeleteRequest{Keys: keys})
	if err != nil {
		return nil, &transfer.DeletionError{Keys: keys, Err: err}
	}

	var response schema.DeleteResponse
	if err := c.DoWithContext(ctx, payload, &response, client.OptPath("storage", "delete")); err != nil {
		return nil, &transfer.DeletionError{Keys: keys, Err: err}
	}

	// Return the response
	return &response, nil
}

// FetchThumbnail returns the rendered preview of a key and its content type.
// A missing preview is a *transfer.NotFoundError.
func (c *Client) FetchThumbnail(ctx context.Context, key string) ([]byte, string, error) {
	u, err := url.JoinPath(c.endpoint, "storage", "thumbnail", key)
	if err != nil {
		return nil, "", &transfer.TransferError{Key: key, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", &transfer.TransferError{Key: key, Err: err}
	}
	req.Header.Set("Accept", "image/*")

	// Perform the request
	resp, err := c.Client.Client.Do(req)
	if err != nil {
		return nil, "", &transfer.TransferError{Key: key, Err: err}
	}
	defer resp.Body.Close()

	// Classify the response
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", &transfer.NotFoundError{Key: key}
	case resp.StatusCode/100 != 2:
		return nil, "", &transfer.TransferError{Key: key, StatusCode: resp.StatusCode, Err: responseErr(resp)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailSize))
	if err != nil {
		return nil, "", &transfer.TransferError{Key: key, Err: err}
	}
	contentType := resp.Header.Get(types.ContentTypeHeader)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	// Return success
	return data, contentType, nil
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (c *Client) presign(ctx context.Context, req schema.PresignRequest) (*schema.Credential, error) {
	credErr := func(err error) error {
		return &transfer.CredentialError{Op: req.Op, Key: req.Key, Err: err}
	}

	payload, err := client.NewJSONRequest(req)
	if err != nil {
		return nil, credErr(err)
	}

	// Perform request
	var response schema.Credential
	if err := c.DoWithContext(ctx, payload, &response, client.OptPath("storage", "presign")); err != nil {
		return nil, credErr(err)
	}

	// A credential without a key or destination is unusable
	if response.Key == "" || response.URL == "" {
		return nil, credErr(errors.New("incomplete credential in response"))
	}
	if req.Op == schema.OpGet && response.Key != req.Key {
		return nil, credErr(fmt.Errorf("credential issued for %q", response.Key))
	}
	if response.Method == "" {
		if req.Op == schema.OpPut {
			response.Method = http.MethodPut
		} else {
			response.Method = http.MethodGet
		}
	}

	// Return success
	return &response, nil
}

// responseErr returns an error carrying the status and the start of the body
func responseErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(body) == 0 {
		return errors.New(resp.Status)
	}
	return fmt.Errorf("%s: %s", resp.Status, body)
}
