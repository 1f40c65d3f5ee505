package httphandler

import (
	"net/http"
	"path"

	// Packages
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	jsonschema "github.com/mutablelogic/go-server/pkg/jsonschema"
	openapi "github.com/mutablelogic/go-server/pkg/openapi"
	types "github.com/mutablelogic/go-server/pkg/types"
	backend "github.com/mutablelogic/go-transfer/pkg/backend"
)

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: storage/object
// GET and HEAD read, and PUT writes, the object named by a signed URL. This
// is the destination of presigned credentials for buckets which cannot sign
// URLs themselves.
func ObjectHandler(b *backend.Backend) (string, *jsonschema.Schema, httprequest.PathItem) {
	get := func(w http.ResponseWriter, r *http.Request) {
		_ = objectGet(w, r, b)
	}
	return "storage/object", nil, httprequest.NewPathItem(
		"Object", "Signed object access", tagStorage,
	).Get(
		get, "Download an object using a signed URL",
		openapi.WithErrorResponse(http.StatusForbidden, "Invalid or expired signature"),
	).Head(
		get, "Get object metadata using a signed URL",
	).Put(func(w http.ResponseWriter, r *http.Request) {
		_ = objectPut(w, r, b)
	}, "Upload an object using a signed URL",
		openapi.WithNoContentResponse(http.StatusOK),
		openapi.WithErrorResponse(http.StatusForbidden, "Invalid or expired signature"),
		openapi.WithErrorResponse(http.StatusConflict, "Credential already used"),
	)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func objectGet(w http.ResponseWriter, r *http.Request, b *backend.Backend) error {
	reader, err := b.ReadSigned(r.Context(), r.URL)
	if err != nil {
		return httpresponse.Error(w, err)
	}
	defer reader.Close()

	// ServeContent handles HEAD, ranges and conditional requests
	if contentType := reader.ContentType(); contentType != "" {
		w.Header().Set(types.ContentTypeHeader, contentType)
	}
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, path.Base(r.URL.Query().Get("obj")), reader.ModTime(), reader)
	return nil
}

func objectPut(w http.ResponseWriter, r *http.Request, b *backend.Backend) error {
	// Presigned destinations do not accept chunked bodies
	if r.ContentLength < 0 {
		return httpresponse.Error(w, httpresponse.Err(http.StatusLengthRequired), "Content-Length is required")
	}
	contentType := r.Header.Get(types.ContentTypeHeader)
	if contentType == "" {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With("missing Content-Type"))
	}
	if _, _, err := b.WriteSigned(r.Context(), r.URL, contentType, r.Body); err != nil {
		return httpresponse.Error(w, err)
	}
	return httpresponse.Empty(w, http.StatusOK)
}
