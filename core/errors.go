package core

import (
	"errors"

	"github.com/kidwatch/jwks-strategy/jwks"
)

// Sentinel errors for token checking.
var (
	// ErrJWTMissing is returned when the token is missing from the request.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid is returned when the token was rejected.
	// It is matched by every *ValidationError.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrTokenNotFound is returned when no validated token is stored in the
	// context.
	ErrTokenNotFound = errors.New("validated token not found in context")
)

// ErrorCodeTokenMissing is the code reported for ErrJWTMissing.
const ErrorCodeTokenMissing = "token_missing"

// ValidationError wraps a rejected token with its machine-readable code.
type ValidationError struct {
	// Code is one of the jwks error codes, e.g. "kid_does_not_match".
	Code string

	// Message is a human-readable error message
	Message string

	// Details contains the underlying error
	Details error
}

// NewValidationError wraps a validator error with its jwks code. Uncoded
// errors are reported as invalid_signature.
func NewValidationError(err error) *ValidationError {
	code := jwks.ErrorCode(err)
	if code == "" {
		code = jwks.CodeInvalidSignature
	}
	return &ValidationError{Code: code, Message: "token rejected", Details: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is allows the error to be compared with ErrJWTInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrJWTInvalid
}

// ErrorCode returns the code to report for err: token_missing for
// ErrJWTMissing, the jwks code of a rejected token, or "".
func ErrorCode(err error) string {
	if errors.Is(err, ErrJWTMissing) {
		return ErrorCodeTokenMissing
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Code
	}
	return jwks.ErrorCode(err)
}

// IsUnavailable reports whether err means the key source has not fetched
// any signer yet. Transports answer it as a temporary failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, jwks.ErrNoSignersFetched)
}
