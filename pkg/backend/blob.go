package backend

import (
	"errors"
	"mime"
	"path"
	"strings"
	"syscall"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	gcerrors "gocloud.dev/gcerrors"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// validKey reports whether a key names an object a client may address.
// Keys under the thumbnail prefix, and keys which are not clean relative
// paths, are refused.
func validKey(key string) bool {
	if key == "" || len(key) > 1024 {
		return false
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, ".") || strings.Contains(key, "\\") {
		return false
	}
	return path.Clean(key) == key
}

// thumbnailKey returns the storage key of the rendered preview for a key
func thumbnailKey(key string) string {
	return schema.ThumbnailPrefix + key + ".jpg"
}

// acceptContentType returns the normalised media type if it matches one of
// the allowed patterns
func (b *Backend) acceptContentType(contentType string) (string, error) {
	mediatype, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", httpresponse.ErrBadRequest.Withf("invalid content type %q", contentType)
	}
	for _, pattern := range b.contentTypes {
		if ok, _ := path.Match(pattern, mediatype); ok {
			return mime.FormatMediaType(mediatype, params), nil
		}
	}
	return "", httpresponse.ErrForbidden.Withf("content type %q is not allowed", mediatype)
}

// isNotFound reports whether a blob error means the object is absent
func isNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

// blobErr wraps a go-cloud blob error with the appropriate httpresponse error
func blobErr(err error, key string) error {
	if err == nil {
		return nil
	}
	// Check for OS-level errors before go-cloud classification, since the
	// gcerrors default path wraps with %v and breaks the chain.
	if errors.Is(err, syscall.EISDIR) || errors.Is(err, syscall.EEXIST) {
		return httpresponse.ErrBadRequest.Withf("cannot overwrite directory with object: %q", key)
	}
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return httpresponse.ErrNotFound.Withf("object %q not found", key)
	case gcerrors.PermissionDenied:
		return httpresponse.ErrForbidden.Withf("permission denied for %q", key)
	case gcerrors.InvalidArgument:
		return httpresponse.ErrBadRequest.Withf("invalid argument for %q: %v", key, err)
	case gcerrors.FailedPrecondition, gcerrors.AlreadyExists:
		return httpresponse.ErrConflict.Withf("precondition failed for %q: %v", key, err)
	case gcerrors.Unimplemented:
		return httpresponse.ErrNotImplemented.Withf("operation not supported for %q", key)
	default:
		return httpresponse.ErrInternalError.Withf("blob operation failed: %v", err)
	}
}
