// Package optimizererr defines the discriminated error taxonomy returned
// across component boundaries: every failure path carries a machine
// readable Kind and a human message, never a bare error string or a
// language-level exception.
package optimizererr

import "fmt"

// Kind discriminates the category of failure.
type Kind string

const (
	// KindValidation covers malformed inputs: empty content, missing id,
	// wrong embedding dimension, negative budget.
	KindValidation Kind = "validation_error"
	// KindEmbedding is surfaced when the embedding collaborator fails.
	// Never raised by the core itself.
	KindEmbedding Kind = "embedding_error"
	// KindIndex covers inconsistencies detected by the vector index:
	// duplicate id across a batch, corrupt counts.
	KindIndex Kind = "index_error"
	// KindScoring is a defensive category for arithmetic safety failures
	// in the relevance scorer. Never expected in practice.
	KindScoring Kind = "scoring_error"
	// KindSelection is unreachable under the selector's invariants,
	// retained so the selector cannot mask bugs by silently returning
	// empty.
	KindSelection Kind = "selection_error"
	// KindCompression marks a single chunk failing to compress; the
	// orchestrator recovers by emitting that chunk uncompressed.
	KindCompression Kind = "compression_error"
	// KindCancelled marks cooperative cancellation having been observed.
	KindCancelled Kind = "cancelled"
)

// Error is the discriminated error type returned by the core. It carries
// a machine-readable Kind and a human Message, and optionally wraps an
// underlying cause (e.g. an EmbeddingError surfaced from a collaborator).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As mirrors errors.As for this package's Error type without requiring
// callers to import the errors package directly at call sites that only
// care about optimizererr.Error.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Cancelled constructs the sentinel cancellation error.
func Cancelled() *Error {
	return &Error{Kind: KindCancelled, Message: "operation cancelled"}
}
