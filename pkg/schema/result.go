package schema

import (
	// Packages
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// UploadedFile is the durable reference to a stored attachment. Only the key
// and file name should be persisted by domain records.
type UploadedFile struct {
	FormID   string `json:"formId"`
	Key      string `json:"key"`
	FileName string `json:"fileName"`
}

// UploadFailure records a file which could not be uploaded. Key is the
// temporary handle when no credential was issued.
type UploadFailure struct {
	Key      string `json:"key"`
	FileName string `json:"fileName"`
	Error    string `json:"error"`
	Err      error  `json:"-"`
}

// UploadResult partitions a batch upload into successes and failures, each
// listed in input order.
type UploadResult struct {
	FormID   string          `json:"formId"`
	Results  []UploadedFile  `json:"results"`
	Failures []UploadFailure `json:"failures,omitempty"`
}

// DeleteResult reports the outcome of a batch deletion
type DeleteResult struct {
	FormID      string   `json:"formId"`
	Deleted     []string `json:"deleted,omitempty"`
	Unconfirmed []string `json:"unconfirmed,omitempty"` // backend reported deleted:false
	Skipped     []string `json:"skipped,omitempty"`     // busy items, not sent to the backend
}

// Thumbnail is a locally-addressable handle to a fetched preview
type Thumbnail struct {
	Key         string `json:"key"`
	Handle      string `json:"handle"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size"`
}

// ThumbnailResult is one entry of a batch thumbnail fetch
type ThumbnailResult struct {
	Key    string `json:"key"`
	Handle string `json:"handle,omitempty"`
	Err    error  `json:"-"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r UploadedFile) String() string {
	return types.Stringify(r)
}

func (r UploadResult) String() string {
	return types.Stringify(r)
}

func (r DeleteResult) String() string {
	return types.Stringify(r)
}

func (r Thumbnail) String() string {
	return types.Stringify(r)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Keys returns the keys of the successful uploads
func (r UploadResult) Keys() []string {
	result := make([]string, 0, len(r.Results))
	for _, file := range r.Results {
		result = append(result, file.Key)
	}
	return result
}
