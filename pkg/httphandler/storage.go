package httphandler

import (
	"net/http"
	"strconv"

	// Packages
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	jsonschema "github.com/mutablelogic/go-server/pkg/jsonschema"
	openapi "github.com/mutablelogic/go-server/pkg/openapi"
	types "github.com/mutablelogic/go-server/pkg/types"
	backend "github.com/mutablelogic/go-transfer/pkg/backend"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const tagStorage = "Storage"

///////////////////////////////////////////////////////////////////////////////
// HANDLER FUNCTIONS

// Path: storage/presign
// POST mints a write credential ({op:"put", contentType}) or a read
// credential ({op:"get", key}).
func PresignHandler(b *backend.Backend) (string, *jsonschema.Schema, httprequest.PathItem) {
	return "storage/presign", nil, httprequest.NewPathItem(
		"Presign", "Mint presigned credentials for direct object access", tagStorage,
	).Post(func(w http.ResponseWriter, r *http.Request) {
		_ = presign(w, r, b)
	}, "Mint a credential to write a new object or read an existing one",
		openapi.WithJSONRequest(jsonschema.MustFor[schema.PresignRequest]()),
		openapi.WithJSONResponse(http.StatusOK, jsonschema.MustFor[schema.Credential]()),
		openapi.WithErrorResponse(http.StatusBadRequest, "Invalid operation, key or content type"),
		openapi.WithErrorResponse(http.StatusForbidden, "Content type not allowed"),
		openapi.WithErrorResponse(http.StatusNotFound, "Object not found"),
	)
}

// Path: storage/delete
// POST removes a batch of objects and reports the outcome per key.
func DeleteHandler(b *backend.Backend) (string, *jsonschema.Schema, httprequest.PathItem) {
	return "storage/delete", nil, httprequest.NewPathItem(
		"Delete", "Delete objects in batches", tagStorage,
	).Post(func(w http.ResponseWriter, r *http.Request) {
		_ = deleteObjects(w, r, b)
	}, "Delete a batch of objects",
		openapi.WithJSONRequest(jsonschema.MustFor[schema.DeleteRequest]()),
		openapi.WithJSONResponse(http.StatusOK, jsonschema.MustFor[schema.DeleteResponse]()),
		openapi.WithErrorResponse(http.StatusBadRequest, "Too many keys"),
	)
}

// Path: storage/thumbnail/{key...}
// GET returns a rendered preview of an image object, or not found.
func ThumbnailHandler(b *backend.Backend) (string, *jsonschema.Schema, httprequest.PathItem) {
	return "storage/thumbnail/{key...}", nil, httprequest.NewPathItem(
		"Thumbnail", "Rendered previews of image objects", tagStorage,
	).Get(func(w http.ResponseWriter, r *http.Request) {
		_ = thumbnail(w, r, b)
	}, "Get the thumbnail of an image object",
		openapi.WithErrorResponse(http.StatusNotFound, "No thumbnail for the object"),
	)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func presign(w http.ResponseWriter, r *http.Request, b *backend.Backend) error {
	var req schema.PresignRequest
	if err := httprequest.Read(r, &req); err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With(err.Error()))
	}
	cred, err := b.Presign(r.Context(), req)
	if err != nil {
		return httpresponse.Error(w, err)
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), cred)
}

func deleteObjects(w http.ResponseWriter, r *http.Request, b *backend.Backend) error {
	var req schema.DeleteRequest
	if err := httprequest.Read(r, &req); err != nil {
		return httpresponse.Error(w, httpresponse.ErrBadRequest.With(err.Error()))
	}
	response, err := b.DeleteObjects(r.Context(), req.Keys)
	if err != nil {
		return httpresponse.Error(w, err)
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), response)
}

func thumbnail(w http.ResponseWriter, r *http.Request, b *backend.Backend) error {
	data, contentType, err := b.Thumbnail(r.Context(), r.PathValue("key"))
	if err != nil {
		return httpresponse.Error(w, err)
	}
	w.Header().Set(types.ContentTypeHeader, contentType)
	w.Header().Set(types.ContentLengthHeader, strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}
