package location

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable category of an Error.
type Kind string

const (
	// KindPermissionDenied indicates the position source refused access.
	KindPermissionDenied Kind = "PERMISSION_DENIED"

	// KindPositionUnavailable indicates the source could not produce a fix.
	KindPositionUnavailable Kind = "POSITION_UNAVAILABLE"

	// KindPositionTimeout indicates the source did not answer in time.
	KindPositionTimeout Kind = "POSITION_TIMEOUT"

	// KindPositionError covers any other source failure.
	KindPositionError Kind = "POSITION_ERROR"

	// KindInvalidSample indicates non-finite coordinates were rejected.
	KindInvalidSample Kind = "INVALID_SAMPLE"

	// KindDurabilityWriteFailed indicates a flush did not reach the backend.
	// The in-memory mutation it followed is still applied.
	KindDurabilityWriteFailed Kind = "DURABILITY_WRITE_FAILED"

	// KindDurabilityLoadFailed indicates the stored snapshot could not be read.
	KindDurabilityLoadFailed Kind = "DURABILITY_LOAD_FAILED"

	// KindStoreQuery indicates malformed pagination arguments.
	KindStoreQuery Kind = "STORE_QUERY_ERROR"
)

// Error is the error type surfaced to callers of the store, the durability
// layer and the tracker. Detail is human-readable; Kind is stable.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// NewError creates an Error with a formatted detail.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error around an underlying cause.
func WrapError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// NewInvalidSample creates a KindInvalidSample error.
func NewInvalidSample(format string, args ...any) *Error {
	return NewError(KindInvalidSample, format, args...)
}

// NewQueryError creates a KindStoreQuery error.
func NewQueryError(format string, args ...any) *Error {
	return NewError(KindStoreQuery, format, args...)
}
