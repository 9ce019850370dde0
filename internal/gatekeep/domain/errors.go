package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups errors by how a caller should react to them.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindStateConflict  ErrorKind = "state_conflict"
	KindAuthentication ErrorKind = "authentication"
	KindDependency     ErrorKind = "dependency"
)

// Error is a classified failure. Code is the stable machine readable name
// and is what errors.Is compares on.
type Error struct {
	Kind ErrorKind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so a wrapped sentinel still
// satisfies errors.Is(err, ErrCodeMismatch).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

var (
	ErrInvalidCodeFormat = newError(KindValidation, "invalid_code_format")
	ErrInvalidPage       = newError(KindValidation, "invalid_page")
	ErrUnknownFactor     = newError(KindValidation, "unknown_factor")

	ErrChallengeNotFound = newError(KindNotFound, "challenge_not_found")
	ErrUserNotFound      = newError(KindNotFound, "user_not_found")

	ErrChallengeConsumed    = newError(KindStateConflict, "challenge_consumed")
	ErrChallengeExpired     = newError(KindStateConflict, "challenge_expired")
	ErrFactorAlreadyEnabled = newError(KindStateConflict, "factor_already_enabled")
	ErrFactorNotEnabled     = newError(KindStateConflict, "factor_not_enabled")
	ErrInvalidSessionState  = newError(KindStateConflict, "invalid_session_state")

	ErrCodeMismatch       = newError(KindAuthentication, "code_mismatch")
	ErrInvalidCredentials = newError(KindAuthentication, "invalid_credentials")

	ErrDependency = newError(KindDependency, "dependency_unavailable")
)

// Dependency wraps a collaborator failure (user store, challenge store,
// dispatcher) so it classifies as KindDependency while keeping the cause
// reachable through errors.Is and errors.As.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindDependency, Code: ErrDependency.Code, Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" for
// unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
