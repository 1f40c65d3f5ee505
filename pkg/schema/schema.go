package schema

import "time"

////////////////////////////////////////////////////////////////////////////////
// CONSTANTS

const (
	SchemaName = "transfer"

	// Presign operations
	OpPut = "put"
	OpGet = "get"

	// Default lifetime of a presigned credential
	DefaultExpiry = 15 * time.Minute

	// MaxDeleteKeys bounds the number of keys in one delete request
	MaxDeleteKeys = 1000

	// TempKeyPrefix marks a registry key as a temporary handle which has not
	// yet been replaced by a backend-issued key.
	TempKeyPrefix = "tmp-"

	// ThumbnailPrefix is the bucket prefix under which rendered previews are kept
	ThumbnailPrefix = ".thumbnails/"

	// ThumbnailHandlePrefix is the scheme of a local thumbnail handle
	ThumbnailHandlePrefix = "blob:"
)
