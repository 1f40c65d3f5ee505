package httphandler

import (
	"errors"

	// Packages
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	jsonschema "github.com/mutablelogic/go-server/pkg/jsonschema"
	backend "github.com/mutablelogic/go-transfer/pkg/backend"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Router is the interface required to register HTTP handlers. Relative
// paths are registered under the router prefix.
type Router interface {
	RegisterPath(path string, params *jsonschema.Schema, pathitem httprequest.PathItem) error
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterHandlers registers the storage handlers on the provided router
func RegisterHandlers(b *backend.Backend, router Router) error {
	var result error
	register := func(path string, params *jsonschema.Schema, pathitem httprequest.PathItem) {
		result = errors.Join(result, router.RegisterPath(path, params, pathitem))
	}
	register(PresignHandler(b))
	register(DeleteHandler(b))
	register(ThumbnailHandler(b))
	register(ObjectHandler(b))
	return result
}
