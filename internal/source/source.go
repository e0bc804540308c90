package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/loctrack/internal/location"
)

// Default request options.
const (
	DefaultTimeoutMs     uint32 = 10000
	DefaultMaxCacheAgeMs uint32 = 30000
)

// Config is passed unchanged to the source on every probe and subscription.
type Config struct {
	HighAccuracy  bool   `json:"high_accuracy" yaml:"high_accuracy"`
	TimeoutMs     uint32 `json:"timeout_ms" yaml:"timeout_ms"`
	MaxCacheAgeMs uint32 `json:"max_cache_age_ms" yaml:"max_cache_age_ms"`
}

// DefaultConfig returns high accuracy, a 10s timeout and a 30s cache age.
func DefaultConfig() Config {
	return Config{
		HighAccuracy:  true,
		TimeoutMs:     DefaultTimeoutMs,
		MaxCacheAgeMs: DefaultMaxCacheAgeMs,
	}
}

// Subscription is a live position stream.
type Subscription interface {
	// Unsubscribe stops delivery. After it returns no further callbacks
	// start. It is safe to call more than once.
	Unsubscribe()
}

// PositionSource produces positions.
type PositionSource interface {
	// ProbeOnce returns a single fix or a *PositionError.
	ProbeOnce(ctx context.Context, cfg Config) (location.Position, error)

	// Subscribe starts delivering fixes to onUpdate and failures to onError.
	Subscribe(cfg Config, onUpdate func(location.Position), onError func(error)) (Subscription, error)
}

// Code classifies a source failure.
type Code int

const (
	CodeOther Code = iota
	CodePermissionDenied
	CodeUnavailable
	CodeTimeout
)

// String returns the lowercase code name used in track files.
func (c Code) String() string {
	switch c {
	case CodePermissionDenied:
		return "permission_denied"
	case CodeUnavailable:
		return "unavailable"
	case CodeTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// ParseCode maps a track-file error name to a Code.
func ParseCode(s string) (Code, error) {
	switch s {
	case "permission_denied":
		return CodePermissionDenied, nil
	case "unavailable":
		return CodeUnavailable, nil
	case "timeout":
		return CodeTimeout, nil
	case "other":
		return CodeOther, nil
	default:
		return CodeOther, fmt.Errorf("unknown position error code %q", s)
	}
}

// Kind returns the location error kind this code surfaces as.
func (c Code) Kind() location.Kind {
	switch c {
	case CodePermissionDenied:
		return location.KindPermissionDenied
	case CodeUnavailable:
		return location.KindPositionUnavailable
	case CodeTimeout:
		return location.KindPositionTimeout
	default:
		return location.KindPositionError
	}
}

// PositionError is the failure type sources report.
type PositionError struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *PositionError) Error() string {
	return fmt.Sprintf("position %s: %s", e.Code, e.Message)
}

// NewPositionError creates a PositionError.
func NewPositionError(code Code, format string, args ...any) *PositionError {
	return &PositionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Classify converts any source failure into a *location.Error.
// A context deadline counts as a timeout.
func Classify(err error) *location.Error {
	if err == nil {
		return nil
	}
	var le *location.Error
	if errors.As(err, &le) {
		return le
	}
	var pe *PositionError
	if errors.As(err, &pe) {
		return location.WrapError(pe.Code.Kind(), pe.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return location.WrapError(location.KindPositionTimeout, "position request timed out", err)
	}
	return location.WrapError(location.KindPositionError, "position request failed", err)
}
