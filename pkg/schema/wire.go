package schema

import (
	"strings"

	// Packages
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	types "github.com/mutablelogic/go-server/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// PresignRequest asks the backend for a write ("put") or read ("get") credential
type PresignRequest struct {
	Op          string `json:"op"`
	ContentType string `json:"contentType,omitempty"` // required for put
	Key         string `json:"key,omitempty"`         // required for get
}

// Credential is a presigned, time-limited destination for one object
type Credential struct {
	Key     string            `json:"key"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
}

type DeleteRequest struct {
	Keys []string `json:"keys"`
}

type DeleteResponse struct {
	Results []DeleteObjectResult `json:"results"`
}

type DeleteObjectResult struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r PresignRequest) String() string {
	return types.Stringify(r)
}

func (c Credential) String() string {
	return types.Stringify(c)
}

func (r DeleteRequest) String() string {
	return types.Stringify(r)
}

func (r DeleteResponse) String() string {
	return types.Stringify(r)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Validate checks the request fields required by the operation
func (r PresignRequest) Validate() error {
	switch strings.ToLower(r.Op) {
	case OpPut:
		if strings.TrimSpace(r.ContentType) == "" {
			return httpresponse.ErrBadRequest.With("missing contentType")
		}
	case OpGet:
		if strings.TrimSpace(r.Key) == "" {
			return httpresponse.ErrBadRequest.With("missing key")
		}
	default:
		return httpresponse.ErrBadRequest.Withf("unsupported op %q", r.Op)
	}
	return nil
}

// Deleted returns the keys reported as deleted
func (r DeleteResponse) Deleted() []string {
	return r.filter(true)
}

// Unconfirmed returns the keys the backend did not confirm as deleted
func (r DeleteResponse) Unconfirmed() []string {
	return r.filter(false)
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (r DeleteResponse) filter(deleted bool) []string {
	var result []string
	for _, res := range r.Results {
		if res.Deleted == deleted {
			result = append(result, res.Key)
		}
	}
	return result
}
