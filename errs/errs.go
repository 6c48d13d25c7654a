// Package errs declares the error-kind taxonomy the orchestration core
// surfaces: a Kind plus Unwrap, so callers can errors.Is/errors.As against
// the taxonomy instead of matching on strings.
package errs

import "fmt"

// Kind discriminates the error classes surfaced to callers.
type Kind uint8

const (
	// KindInvalidRequestConfig is a malformed RequestEntity: unknown proof
	// type, missing required field, inconsistent image-id for a zk
	// prover. Reported to the caller; never retried.
	KindInvalidRequestConfig Kind = iota
	// KindRPC is a provider failure surfaced by the input builder.
	KindRPC
	// KindStatelessValidation wraps a validator.Error kind.
	KindStatelessValidation
	// KindProver is a backend error string.
	KindProver
	// KindPool is a transport/serialization fault from the pool; it never
	// advances request state.
	KindPool
	// KindSystemPaused is returned synchronously to a caller who checks
	// pause state before submitting an action while the system is paused.
	KindSystemPaused
	// KindCapacityFull is returned when the actor's bounded action channel
	// is full.
	KindCapacityFull
	// KindHandleDropped is returned when an action was handed to the actor
	// but the caller's context ended before the reply arrived.
	KindHandleDropped
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequestConfig:
		return "invalid_request_config"
	case KindRPC:
		return "rpc"
	case KindStatelessValidation:
		return "stateless_validation"
	case KindProver:
		return "prover"
	case KindPool:
		return "pool"
	case KindSystemPaused:
		return "system_paused"
	case KindCapacityFull:
		return "capacity_full"
	case KindHandleDropped:
		return "handle_dropped"
	default:
		return "unknown"
	}
}

// Error is the standardized error the orchestration core returns. It wraps
// an underlying cause (if any) so errors.Unwrap / errors.Is keep working.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Msg: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, SystemPaused) work against the sentinel-style
// package vars below without requiring callers to compare Kind directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	SystemPaused  = &Error{Kind: KindSystemPaused, Msg: "system is paused"}
	CapacityFull  = &Error{Kind: KindCapacityFull, Msg: "capacity full"}
	HandleDropped = &Error{Kind: KindHandleDropped, Msg: "task handle unexpectedly dropped"}
)
