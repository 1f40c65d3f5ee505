// Package registry holds the form-scoped state of every transfer item. It is
// the single source of truth for upload and deletion progress: orchestrators
// mutate items only through the methods here, and readers take snapshots or
// subscribe to change events.
package registry

import (
	"fmt"
	"sync"

	// Packages
	transfer "github.com/mutablelogic/go-transfer"
	schema "github.com/mutablelogic/go-transfer/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Registry maps form identifiers to buckets of transfer items. The zero value
// is not usable; call New.
type Registry struct {
	sync.RWMutex
	forms map[string]*bucket
	subs  map[uint64]subscriber
	seq   uint64
}

// bucket keeps a key->item map and the registration order in lockstep
type bucket struct {
	items map[string]*schema.TransferItem
	order []string
}

type subscriber struct {
	formID string // empty subscribes to every form
	fn     func(schema.Event)
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

var defaultRegistry = sync.OnceValue(New)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns an empty registry
func New() *Registry {
	return &Registry{
		forms: make(map[string]*bucket),
		subs:  make(map[uint64]subscriber),
	}
}

// Default returns the process-wide registry
func Default() *Registry {
	return defaultRegistry()
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - MUTATION

// Register adds an item to a form, appending its key to the form order. An
// existing item with the same key is replaced in place, keeping its position.
func (r *Registry) Register(formID string, item schema.TransferItem) error {
	if item.Key == "" {
		return fmt.Errorf("register: missing key")
	}
	if item.Status == "" {
		item.Status = schema.StatusIdle
	} else if !item.Status.Valid() {
		return fmt.Errorf("register %q: %w: unknown status %q", item.Key, transfer.ErrInvalidTransition, item.Status)
	}
	item.Progress = clamp(item.Progress)
	if item.Status != schema.StatusError {
		item.Error = ""
	}

	r.Lock()
	b := r.bucket(formID)
	if _, exists := b.items[item.Key]; !exists {
		b.order = append(b.order, item.Key)
	}
	b.items[item.Key] = &item
	event := schema.Event{Type: schema.EventRegister, FormID: formID, Key: item.Key, Item: item}
	r.Unlock()

	r.notify(event)
	return nil
}

// Rekey replaces the key of an item with a new, permanent key, keeping its
// position in the form order.
func (r *Registry) Rekey(formID, oldKey, newKey string) error {
	if newKey == "" {
		return fmt.Errorf("rekey %q: missing key", oldKey)
	}

	r.Lock()
	b := r.bucket(formID)
	item, exists := b.items[oldKey]
	if !exists {
		r.Unlock()
		return fmt.Errorf("rekey %q: %w", oldKey, transfer.ErrUnknownItem)
	}
	if oldKey == newKey {
		r.Unlock()
		return nil
	}
	if _, exists := b.items[newKey]; exists {
		r.Unlock()
		return fmt.Errorf("rekey %q: key %q already registered", oldKey, newKey)
	}
	delete(b.items, oldKey)
	item.Key = newKey
	b.items[newKey] = item
	for i, key := range b.order {
		if key == oldKey {
			b.order[i] = newKey
			break
		}
	}
	event := schema.Event{Type: schema.EventRekey, FormID: formID, Key: newKey, OldKey: oldKey, Item: *item}
	r.Unlock()

	r.notify(event)
	return nil
}

// SetProgress updates the progress of an item. Values are clamped to 0-100
// and a value lower than the current progress is ignored, as is any update
// to an item which is not uploading.
func (r *Registry) SetProgress(formID, key string, percent int) error {
	percent = clamp(percent)

	r.Lock()
	item, err := r.item(formID, key)
	if err != nil {
		r.Unlock()
		return err
	}
	if item.Status != schema.StatusUploading || percent <= item.Progress {
		r.Unlock()
		return nil
	}
	item.Progress = percent
	event := schema.Event{Type: schema.EventProgress, FormID: formID, Key: key, Item: *item}
	r.Unlock()

	r.notify(event)
	return nil
}

// SetStatus transitions an item to a new status. The message is recorded only
// when entering the error status; any other status clears it. Entering success
// sets the progress to 100, and entering presigning resets it to zero.
func (r *Registry) SetStatus(formID, key string, status schema.Status, message string) error {
	r.Lock()
	item, err := r.item(formID, key)
	if err != nil {
		r.Unlock()
		return err
	}
	if !item.Status.CanTransition(status) {
		from := item.Status
		r.Unlock()
		return fmt.Errorf("%q: %w from %q to %q", key, transfer.ErrInvalidTransition, from, status)
	}
	item.Status = status
	switch status {
	case schema.StatusError:
		if message == "" {
			message = "unknown error"
		}
		item.Error = message
	case schema.StatusSuccess:
		item.Error = ""
		item.Progress = 100
	case schema.StatusPresigning:
		item.Error = ""
		item.Progress = 0
	default:
		item.Error = ""
	}
	event := schema.Event{Type: schema.EventStatus, FormID: formID, Key: key, Item: *item}
	r.Unlock()

	r.notify(event)
	return nil
}

// SetViewURL attaches a read URL to an item
func (r *Registry) SetViewURL(formID, key, url string) error {
	r.Lock()
	item, err := r.item(formID, key)
	if err != nil {
		r.Unlock()
		return err
	}
	item.ViewURL = url
	event := schema.Event{Type: schema.EventView, FormID: formID, Key: key, Item: *item}
	r.Unlock()

	r.notify(event)
	return nil
}

// Remove deletes an item from a form, returning false if it was not present
func (r *Registry) Remove(formID, key string) bool {
	r.Lock()
	b := r.bucket(formID)
	item, exists := b.items[key]
	if !exists {
		r.Unlock()
		return false
	}
	delete(b.items, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	event := schema.Event{Type: schema.EventRemove, FormID: formID, Key: key, Item: *item}
	r.Unlock()

	r.notify(event)
	return true
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS - READ

// Snapshot returns a copy of the items of a form in registration order. An
// unknown form yields an empty view.
func (r *Registry) Snapshot(formID string) schema.FormView {
	r.RLock()
	defer r.RUnlock()

	view := schema.FormView{FormID: formID, Items: []schema.TransferItem{}}
	if b, exists := r.forms[formID]; exists {
		view.Items = make([]schema.TransferItem, 0, len(b.order))
		for _, key := range b.order {
			view.Items = append(view.Items, *b.items[key])
		}
	}
	return view
}

// Item returns a copy of one item and true, or false if the key is not
// registered in the form.
func (r *Registry) Item(formID, key string) (schema.TransferItem, bool) {
	r.RLock()
	defer r.RUnlock()

	if b, exists := r.forms[formID]; exists {
		if item, exists := b.items[key]; exists {
			return *item, true
		}
	}
	return schema.TransferItem{}, false
}

// Forms returns the identifiers of every form which has been referenced
func (r *Registry) Forms() []string {
	r.RLock()
	defer r.RUnlock()

	result := make([]string, 0, len(r.forms))
	for formID := range r.forms {
		result = append(result, formID)
	}
	return result
}

// Subscribe registers fn to receive every event of a form, or of every form
// when formID is empty. Events are delivered synchronously after the mutation
// has been applied, outside the registry lock. The returned function cancels
// the subscription.
func (r *Registry) Subscribe(formID string, fn func(schema.Event)) func() {
	r.Lock()
	defer r.Unlock()

	r.seq++
	id := r.seq
	r.subs[id] = subscriber{formID: formID, fn: fn}
	return func() {
		r.Lock()
		defer r.Unlock()
		delete(r.subs, id)
	}
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// bucket returns the bucket for a form, creating it on first reference.
// Caller must hold the write lock.
func (r *Registry) bucket(formID string) *bucket {
	b, exists := r.forms[formID]
	if !exists {
		b = &bucket{items: make(map[string]*schema.TransferItem)}
		r.forms[formID] = b
	}
	return b
}

// item returns the item for a key. Caller must hold the write lock.
func (r *Registry) item(formID, key string) (*schema.TransferItem, error) {
	if item, exists := r.bucket(formID).items[key]; exists {
		return item, nil
	}
	return nil, fmt.Errorf("%q in form %q: %w", key, formID, transfer.ErrUnknownItem)
}

func (r *Registry) notify(event schema.Event) {
	r.RLock()
	fns := make([]func(schema.Event), 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.formID == "" || sub.formID == event.FormID {
			fns = append(fns, sub.fn)
		}
	}
	r.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}

func clamp(percent int) int {
	return min(max(percent, 0), 100)
}
