package services

import (
	"errors"
	"fmt"
)

// ErrNotProjectMember rejects an activity-emitting write whose user does
// not belong to the target project under either membership view. The
// store itself enforces nothing here; the emitting flow must.
var ErrNotProjectMember = errors.New("user is not a member of the project")

// ValidationError reports a missing or malformed required input. It is
// raised before any store access and is never retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

// StoreError wraps a document-store failure. The layer never retries;
// retry and backoff are the caller's responsibility.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PartialWriteError reports that a state mutation succeeded but the
// follow-up audit-log append failed. The two writes are not atomic as a
// pair; the caller sees the drift explicitly instead of a silent swallow.
type PartialWriteError struct {
	Op  string
	Err error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: state updated but audit append failed: %v", e.Op, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
