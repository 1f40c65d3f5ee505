package manager

import (
	"context"

	// Packages
	registry "github.com/mutablelogic/go-transfer/pkg/registry"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
	thumbcache "github.com/mutablelogic/go-transfer/pkg/thumbcache"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Manager orchestrates uploads, deletions, view URLs and thumbnails against
// a backend, recording the state of every item in the registry.
type Manager struct {
	opts
	thumbs *thumbcache.Cache
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a new transfer manager. A gateway and an executor are required,
// usually both from WithClient.
func New(ctx context.Context, opts ...Opt) (*Manager, error) {
	self := new(Manager)

	// Apply options
	if opt, err := applyOpts(opts); err != nil {
		return nil, err
	} else {
		self.opts = opt
	}

	// Handle store for thumbnails
	self.thumbs = thumbcache.New(self.thumbSize, self.thumbTTL, func(handle, key string) {
		self.metrics.HandleReleased()
		self.logger.Debug("thumbnail released", "handle", handle, "key", key)
	})

	// Return success
	return self, nil
}

// Close releases all thumbnail handles and stops their expiry. The registry
// is left untouched, since it may be shared.
func (manager *Manager) Close() error {
	manager.thumbs.Close()
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Registry returns the item registry the manager records state in
func (manager *Manager) Registry() *registry.Registry {
	return manager.registry
}

// Snapshot returns the items of a form in registration order
func (manager *Manager) Snapshot(formID string) schema.FormView {
	return manager.registry.Snapshot(formID)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func spanManagerName(op string) string {
	return schema.SchemaName + ".manager." + op
}
