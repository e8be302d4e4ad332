// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// Kind classifies an error for callers that need to react to it.
type Kind string

// Kinds of errors returned across layer boundaries.
const (
	KindInvalidAmount          Kind = "INVALID_AMOUNT"
	KindAccountNotFound        Kind = "ACCOUNT_NOT_FOUND"
	KindInsufficientFunds      Kind = "INSUFFICIENT_FUNDS"
	KindDuplicateAccountNumber Kind = "DUPLICATE_ACCOUNT_NUMBER"
	KindConcurrencyConflict    Kind = "CONCURRENCY_CONFLICT"
	KindStorage                Kind = "STORAGE"
)

// Error is an error tagged with a Kind.
//
// Errors created with NewKind are roots: errors.Is reports true for any
// Error of the same kind when the target is a root.
type Error struct {
	Kind Kind
	Msg  string
	root bool
}

// NewKind returns a root error for the given kind.
func NewKind(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, root: true}
}

// New returns an error of the given kind that matches the kind root via errors.Is.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	return e.Msg
}

// Is implements matching against kind roots.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.root && t.Kind == e.Kind
}

// ErrInternal indicates internal server error.
var ErrInternal = NewKind(KindStorage, "internal")

// KindOf returns the kind of err. Untagged errors are reported as KindStorage.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindStorage
}
