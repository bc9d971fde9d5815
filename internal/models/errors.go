package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the remote client and the pipeline.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrRemoteCallFailed = errors.New("remote call failed")
	ErrCorruptRecord    = errors.New("corrupt record")
	ErrStore            = errors.New("store error")
	ErrNotFound         = errors.New("not found")
)

// RemoteError describes a failed outbound call. It matches ErrRemoteCallFailed.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed: %d - %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRemoteCallFailed}
	}
	return []error{ErrRemoteCallFailed, e.Err}
}

// InvalidArgument builds an error matching ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// StoreFailure wraps an engine error so it matches ErrStore.
func StoreFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// Corrupt wraps a decode error so it matches ErrCorruptRecord.
func Corrupt(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorruptRecord, what, err)
}
