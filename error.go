package transfer

import (
	"errors"
	"fmt"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	// ErrCredential is matched by every CredentialError
	ErrCredential = errors.New("credential request failed")

	// ErrTransfer is matched by every TransferError
	ErrTransfer = errors.New("transfer failed")

	// ErrDeletion is matched by every DeletionError
	ErrDeletion = errors.New("deletion failed")

	// ErrNotFound is matched by every NotFoundError
	ErrNotFound = errors.New("not found")

	// ErrAllFailed is returned by UploadMany when no file was uploaded
	ErrAllFailed = errors.New("all uploads failed")

	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnknownItem is returned when a key is not registered in a form
	ErrUnknownItem = errors.New("unknown item")
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// CredentialError is returned when the backend is unreachable or refuses
// to mint a presigned credential.
type CredentialError struct {
	Op  string // "put" or "get"
	Key string // requested key, empty for write credentials
	Err error
}

// TransferError is returned when a direct read or write against the object
// store fails, or the response status is outside the 2xx range.
type TransferError struct {
	Key        string
	StatusCode int // zero for network-level failures
	Err        error
}

// DeletionError is returned when the batched delete call itself fails. It is
// distinct from a per-key "deleted: false" result.
type DeletionError struct {
	Keys []string
	Err  error
}

// NotFoundError signals that no thumbnail exists for a key. Absence is a
// valid outcome, not a transport failure.
type NotFoundError struct {
	Key string
}

// UploadError tags a failed upload with the form and the key (temporary or
// permanent) so callers can correlate which file failed.
type UploadError struct {
	FormID   string
	Key      string
	FileName string
	Err      error
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (e *CredentialError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%v (%s %q): %v", ErrCredential, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%v (%s): %v", ErrCredential, e.Op, e.Err)
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: %q: status %d: %v", ErrTransfer, e.Key, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%v: %q: %v", ErrTransfer, e.Key, e.Err)
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("%v (%d keys): %v", ErrDeletion, len(e.Keys), e.Err)
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("thumbnail %q %v", e.Key, ErrNotFound)
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q to %q failed: %v", e.FileName, e.FormID, e.Err)
}

////////////////////////////////////////////////////////////////////////////////
// UNWRAP

func (e *CredentialError) Unwrap() []error {
	return []error{ErrCredential, e.Err}
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransfer, e.Err}
}

func (e *DeletionError) Unwrap() []error {
	return []error{ErrDeletion, e.Err}
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
