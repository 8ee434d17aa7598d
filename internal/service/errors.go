package service

import "errors"

// Error kinds. Every error returned by the services wraps exactly one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("not authorized")
	ErrNotFound   = errors.New("not found")
	ErrBadState   = errors.New("operation not allowed in current state")
	ErrUnexpected = errors.New("unexpected failure")
)

// Error carries a caller-facing message together with its kind and, for
// unexpected failures, the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationError(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }
func conflictError(msg string) error   { return &Error{Kind: ErrConflict, Message: msg} }
func authError(msg string) error       { return &Error{Kind: ErrAuth, Message: msg} }
func notFoundError(msg string) error   { return &Error{Kind: ErrNotFound, Message: msg} }
func badStateError(msg string) error   { return &Error{Kind: ErrBadState, Message: msg} }

func unexpectedError(msg string, cause error) error {
	return &Error{Kind: ErrUnexpected, Message: msg, Err: cause}
}

// Message returns the caller-facing text of err. Unexpected failures never
// leak their cause.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) && !errors.Is(se.Kind, ErrUnexpected) {
		return se.Message
	}
	return "Server error"
}

func IsValidationError(err error) bool { return errors.Is(err, ErrValidation) }
func IsConflictError(err error) bool   { return errors.Is(err, ErrConflict) }
func IsAuthError(err error) bool       { return errors.Is(err, ErrAuth) }
func IsNotFoundError(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsBadStateError(err error) bool   { return errors.Is(err, ErrBadState) }
