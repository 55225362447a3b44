// Package failure defines the typed failure kinds returned by the account
// directory and the expense ledger. Handlers translate a Kind into an HTTP
// status; the reason string is terse and machine-usable.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	Validation
	DuplicateIdentity
	WeakCredential
	Unauthorized
	NotFound
	Persistence
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case DuplicateIdentity:
		return "duplicate_identity"
	case WeakCredential:
		return "weak_credential"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Persistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error carries a failure kind, a short reason and an optional cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, failure.ErrNotFound)
// holds for any not-found failure regardless of reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation        = &Error{Kind: Validation}
	ErrDuplicateIdentity = &Error{Kind: DuplicateIdentity}
	ErrWeakCredential    = &Error{Kind: WeakCredential}
	ErrUnauthorized      = &Error{Kind: Unauthorized}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrPersistence       = &Error{Kind: Persistence}
)

func New(kind Kind, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

func Wrap(kind Kind, reason string, err error) error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func Invalid(reason string) error {
	return New(Validation, reason)
}

// Storage wraps a collaborator error unless it already carries a kind.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return Wrap(Persistence, op, err)
}

// KindOf reports the kind of err, or Unknown for untyped errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// ReasonOf returns the reason of a typed failure, falling back to err.Error().
func ReasonOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
