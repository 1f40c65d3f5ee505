package schema

////////////////////////////////////////////////////////////////////////////////
// CONSTANTS

// EventType names the registry mutation which produced an event
type EventType string

const (
	// EventRegister is sent when an item is added to a form (or replaced)
	EventRegister EventType = "register"

	// EventRekey is sent when a temporary handle is replaced by a permanent key.
	// OldKey carries the temporary handle.
	EventRekey EventType = "rekey"

	// EventProgress is sent when the progress of an item increases
	EventProgress EventType = "progress"

	// EventStatus is sent on every status transition
	EventStatus EventType = "status"

	// EventView is sent when a view URL is attached to an item
	EventView EventType = "view"

	// EventRemove is sent when an item is removed. Item carries its last state.
	EventRemove EventType = "remove"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Event describes one registry mutation. Item is a copy of the item after the
// mutation was applied.
type Event struct {
	Type   EventType    `json:"type"`
	FormID string       `json:"formId"`
	Key    string       `json:"key"`
	OldKey string       `json:"oldKey,omitempty"`
	Item   TransferItem `json:"item"`
}
