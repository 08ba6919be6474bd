// Package enginerr defines the error taxonomy every public engine
// operation returns failures through. No exception escapes the engine
// boundary; callers switch on Kind via errors.As.
package enginerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way spec §7 enumerates it.
type Kind string

const (
	// Usage errors: caller contract violation.
	SessionNotFound    Kind = "session_not_found"
	InvalidSampleRate  Kind = "invalid_sample_rate"
	InvalidState       Kind = "invalid_state"
	DimensionMismatch  Kind = "dimension_mismatch"
	AlreadyFinalized   Kind = "already_finalized"
	LimitExceeded      Kind = "limit_exceeded"
	InvalidConfig      Kind = "invalid_config"
	InvalidSize        Kind = "invalid_size"

	// Data errors.
	Malformed     Kind = "malformed"
	NotFound      Kind = "not_found"
	InvalidAudio  Kind = "invalid_audio"
	EmptyInput    Kind = "empty_input"

	// Reliability signal, not a hard failure: distinct from a
	// genuine zero score.
	InsufficientData Kind = "insufficient_data"

	// Internal errors: fatal to the owning session.
	FFTFailure        Kind = "fft_failure"
	AllocationFailure Kind = "allocation_failure"
)

// Error wraps a Kind with context, matching the teacher's
// fmt.Errorf("...: %w", err) wrapping convention throughout
// internal/config and internal/analysis/db.go.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, SomeKind) work by comparing Kind against a
// sentinel wrapped the same way.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an *Error for the given operation and kind.
func New(op string, kind Kind) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap constructs an *Error that also carries an underlying cause.
func Wrap(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Of returns the Kind the way errors.Is/As does, or "" if err does not
// carry one of ours.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinel helpers for errors.Is(err, enginerr.SentinelFor(Kind)).
func SentinelFor(kind Kind) error { return &Error{Kind: kind} }
