package schema

import (
	"slices"

	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Status is the lifecycle state of a transfer item
type Status string

// TransferItem is one attachment, keyed by its remote object key
type TransferItem struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	Progress    int    `json:"progress"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
	ViewURL     string `json:"viewUrl,omitempty"`
}

// FormView is a read-only projection of one form, items in registration order
type FormView struct {
	FormID string         `json:"formId"`
	Items  []TransferItem `json:"items"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	StatusIdle       Status = "idle"
	StatusPresigning Status = "presigning"
	StatusUploading  Status = "uploading"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusDeleting   Status = "deleting"
)

var transitions = map[Status][]Status{
	StatusIdle:       {StatusPresigning, StatusDeleting},
	StatusPresigning: {StatusUploading, StatusError},
	StatusUploading:  {StatusSuccess, StatusError},
	StatusSuccess:    {StatusDeleting},
	StatusError:      {StatusPresigning, StatusDeleting},
	StatusDeleting:   {StatusError},
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (i TransferItem) String() string {
	return types.Stringify(i)
}

func (v FormView) String() string {
	return types.Stringify(v)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CanTransition reports whether an item in status s may move to status to.
// Removal is not a transition.
func (s Status) CanTransition(to Status) bool {
	return slices.Contains(transitions[s], to)
}

// Active reports whether a network operation is in flight for the item
func (s Status) Active() bool {
	switch s {
	case StatusPresigning, StatusUploading, StatusDeleting:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, exists := transitions[s]
	return exists
}

// Keys returns the item keys of the view in order
func (v FormView) Keys() []string {
	result := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		result = append(result, item.Key)
	}
	return result
}
