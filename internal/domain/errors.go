package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the service matches exactly one of
// them with errors.Is. AsKind never adds a kind to an ErrInternal failure.
var (
	ErrInvalidReference       = errors.New("invalid video reference")
	ErrCaptionsDisabled       = errors.New("captions disabled")
	ErrNoTranscriptInLanguage = errors.New("no transcript in requested languages")
	ErrEmptyTranscript        = errors.New("empty transcript")
	ErrFetch                  = errors.New("transcript fetch failed")
	ErrChunkingFailed         = errors.New("chunking failed")
	ErrEmbedding              = errors.New("embedding failed")
	ErrGeneration             = errors.New("generation failed")
	ErrNotReady               = errors.New("no video processed")
	ErrInternal               = errors.New("internal error")
)

// Sub-kind sentinels for provider failures.
var (
	ErrAuth         = errors.New("authentication rejected")
	ErrRateLimited  = errors.New("rate limited")
	ErrConnectivity = errors.New("provider unreachable")
)

// FailureKind narrows an embedding or generation failure.
type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureAuth
	FailureRateLimit
	FailureConnectivity
)

func (k FailureKind) String() string {
	switch k {
	case FailureAuth:
		return "auth"
	case FailureRateLimit:
		return "rate_limit"
	case FailureConnectivity:
		return "connectivity"
	default:
		return "other"
	}
}

func (k FailureKind) sentinel() error {
	switch k {
	case FailureAuth:
		return ErrAuth
	case FailureRateLimit:
		return ErrRateLimited
	case FailureConnectivity:
		return ErrConnectivity
	default:
		return nil
	}
}

// ServiceError carries the kind of a provider failure and its cause.
type ServiceError struct {
	Op   string
	Kind error
	Sub  FailureKind
	Err  error
}

func (e *ServiceError) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Sub != FailureOther {
		msg += " (" + e.Sub.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind, the sub-kind sentinel and the cause.
func (e *ServiceError) Unwrap() []error {
	errs := []error{e.Kind}
	if s := e.Sub.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewServiceError builds a ServiceError. A nil kind is reported as ErrInternal.
func NewServiceError(op string, kind error, sub FailureKind, err error) *ServiceError {
	if kind == nil {
		kind = ErrInternal
	}
	return &ServiceError{Op: op, Kind: kind, Sub: sub, Err: err}
}

// FailureOf returns the sub-kind of err, or FailureOther when err carries none.
func FailureOf(err error) FailureKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Sub
	}
	return FailureOther
}

// AsKind returns err unchanged when it already matches kind or is an
// ErrInternal failure, otherwise wraps it in a ServiceError of that kind.
func AsKind(op string, kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) || errors.Is(err, ErrInternal) {
		return err
	}
	return NewServiceError(op, kind, FailureOf(err), err)
}

// Internal wraps an unexpected failure as ErrInternal.
func Internal(op string, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, fmt.Errorf(format, args...))
}
