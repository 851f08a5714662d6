package jwks

import "errors"

// Error codes. They are stable, machine-readable strings suitable for
// logging, metrics labels and API responses.
const (
	// Verification-path errors.
	CodeNoKidInTokenHeader = "no_kid_in_token_header"
	CodeTokenMalformed     = "token_malformed"
	CodeKidDoesNotMatch    = "kid_does_not_match"
	CodeNoSignersFetched   = "no_signers_fetched"
	CodeInvalidSignature   = "invalid_signature"

	// Fetch errors.
	CodeClientHTTPError      = "jwks_client_http_error"
	CodeServerHTTPError      = "jwks_server_http_error"
	CodeCouldNotReachJWKSURL = "could_not_reach_jwks_url"
	CodeNoKeysOnResponse     = "no_keys_on_response"

	// Parse errors. They abort the whole fetch cycle.
	CodeKidNotBinary        = "kid_not_binary"
	CodeNoAlgorithmSupplied = "no_algorithm_supplied"
	CodeBadAlgorithm        = "bad_algorithm"
	CodeInvalidKeyParams    = "invalid_key_params"

	// Registry and configuration errors.
	CodeInvalidConfiguration   = "invalid_configuration"
	CodeStrategyNotFound       = "strategy_not_found"
	CodeStrategyAlreadyStarted = "strategy_already_started"
)

// Error is the error type returned by every operation of this package.
// Two errors are considered equal by errors.Is when their codes match, so
// callers can compare against the exported sentinels:
//
//	if errors.Is(err, jwks.ErrKidDoesNotMatch) {
//	    // the key set will be refreshed on the next tick
//	}
type Error struct {
	// Code is one of the Code* constants.
	Code string

	// Message is a human-readable description.
	Message string

	// Details contains the underlying error, if any.
	Details error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Details
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors, one per code.
var (
	ErrNoKidInTokenHeader = &Error{Code: CodeNoKidInTokenHeader, Message: "no kid in token header"}
	ErrTokenMalformed     = &Error{Code: CodeTokenMalformed, Message: "token malformed"}
	ErrKidDoesNotMatch    = &Error{Code: CodeKidDoesNotMatch, Message: "kid does not match any fetched signer"}
	ErrNoSignersFetched   = &Error{Code: CodeNoSignersFetched, Message: "no signers fetched"}
	ErrInvalidSignature   = &Error{Code: CodeInvalidSignature, Message: "token signature is invalid"}

	ErrClientHTTPError      = &Error{Code: CodeClientHTTPError, Message: "jwks endpoint returned a client error"}
	ErrServerHTTPError      = &Error{Code: CodeServerHTTPError, Message: "jwks endpoint returned a server error"}
	ErrCouldNotReachJWKSURL = &Error{Code: CodeCouldNotReachJWKSURL, Message: "could not reach jwks url"}
	ErrNoKeysOnResponse     = &Error{Code: CodeNoKeysOnResponse, Message: "no keys on jwks response"}

	ErrKidNotBinary        = &Error{Code: CodeKidNotBinary, Message: "jwk kid is missing or not a string"}
	ErrNoAlgorithmSupplied = &Error{Code: CodeNoAlgorithmSupplied, Message: "no algorithm supplied"}
	ErrBadAlgorithm        = &Error{Code: CodeBadAlgorithm, Message: "bad algorithm"}
	ErrInvalidKeyParams    = &Error{Code: CodeInvalidKeyParams, Message: "invalid key params"}

	ErrInvalidConfiguration   = &Error{Code: CodeInvalidConfiguration, Message: "invalid configuration"}
	ErrStrategyNotFound       = &Error{Code: CodeStrategyNotFound, Message: "strategy not found"}
	ErrStrategyAlreadyStarted = &Error{Code: CodeStrategyAlreadyStarted, Message: "strategy already started"}
)

// newError returns a copy of the sentinel carrying details.
func newError(sentinel *Error, details error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Details: details}
}

// ErrorCode returns the code of the first *Error in err's chain, or the
// empty string when there is none.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
