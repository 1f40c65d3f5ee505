package transfer

import (
	"context"
	"io"

	// Packages
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// INTERFACES

// File is one local attachment waiting to be uploaded. Open may be called
// more than once (for example on retry); each call returns a fresh reader.
type File interface {
	// Name is the original local file name, used for display
	Name() string

	// ContentType is the declared MIME type of the file
	ContentType() string

	// Size is the number of bytes Open will yield
	Size() int64

	// Open returns a reader over the file contents. Caller must close it.
	Open() (io.ReadCloser, error)
}

// Gateway talks to the backend that issues presigned credentials, batch
// deletions and rendered thumbnails. Every method is a single round trip
// and owns no state.
type Gateway interface {
	// RequestWriteCredential mints a single-use destination for a new object
	RequestWriteCredential(ctx context.Context, contentType string) (*schema.Credential, error)

	// RequestReadCredential mints a time-limited read URL for an existing key
	RequestReadCredential(ctx context.Context, key string) (*schema.Credential, error)

	// DeleteObjects removes a batch of keys, reporting the outcome per key
	DeleteObjects(ctx context.Context, keys []string) (*schema.DeleteResponse, error)

	// FetchThumbnail returns the rendered preview for a key and its content type
	FetchThumbnail(ctx context.Context, key string) ([]byte, string, error)
}

// Executor writes the bytes of one file to the object store using a
// write credential. onProgress receives non-decreasing percentages.
type Executor interface {
	Execute(ctx context.Context, cred schema.Credential, file File, onProgress func(percent int)) error
}
