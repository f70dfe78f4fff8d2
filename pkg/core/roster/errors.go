package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/jakechorley/activity-log/pkg/db"
	"github.com/jakechorley/activity-log/pkg/sheetssql"
)

// Kind classifies a roster failure so callers can map it to an outcome
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInvalidTransition
	KindConsistency
	KindSchema
	KindStoreIO
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindInvalidTransition:
		return "invalid transition"
	case KindConsistency:
		return "consistency"
	case KindSchema:
		return "schema"
	case KindStoreIO:
		return "store I/O"
	default:
		return "unknown"
	}
}

// Error is a roster failure of a distinguishable kind
type Error struct {
	Kind    Kind
	Message string
	Err     error

	sentinel bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the exported sentinel of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.sentinel && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed", sentinel: true}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found", sentinel: true}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid transition", sentinel: true}
	ErrConsistency       = &Error{Kind: KindConsistency, Message: "inconsistent store state", sentinel: true}
	ErrSchema            = &Error{Kind: KindSchema, Message: "store schema mismatch", sentinel: true}
	ErrStoreIO           = &Error{Kind: KindStoreIO, Message: "store I/O failed", sentinel: true}
)

// KindOf returns the kind of the first roster error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the failed operation may be retried unchanged
func Retryable(err error) bool {
	return KindOf(err) == KindStoreIO
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// classifyStoreError assigns a kind to an error returned by the row store
func classifyStoreError(op string, err error) error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var schemaErr *sheetssql.SchemaError
	switch {
	case errors.As(err, &schemaErr):
		return &Error{Kind: KindSchema, Message: op, Err: err}
	case errors.Is(err, db.ErrStoreNotFound):
		return &Error{Kind: KindConsistency, Message: op, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindStoreIO, Message: op + " timed out", Err: err}
	default:
		return &Error{Kind: KindStoreIO, Message: op, Err: err}
	}
}
