package jwksstrategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kidwatch/jwks-strategy/core"
)

var (
	// ErrJWTMissing is returned when the JWT is missing.
	ErrJWTMissing = core.ErrJWTMissing

	// ErrJWTInvalid is returned when the JWT is invalid.
	ErrJWTInvalid = core.ErrJWTInvalid
)

// ErrorHandler is a handler which is called when an error occurs in the
// JWTMiddleware. Among some general errors, this handler also determines the
// response of the JWTMiddleware when a token is not found or is invalid. The
// err can be checked to be ErrJWTMissing or ErrJWTInvalid for specific cases,
// and core.ErrorCode(err) returns the machine-readable code.
//
// If you implement your own ErrorHandler you MUST take into consideration the
// error types, as not properly responding to them could result in the
// JWTMiddleware not functioning as intended.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorStatus maps err to the status code and body DefaultErrorHandler
// writes:
//
//   - 400 for ErrJWTMissing
//   - 503 when no signer has been fetched yet ("no_signers_fetched")
//   - 401 for any other ErrJWTInvalid
//   - 500 for everything else
//
// The gin and echo adapters answer with the same mapping.
func ErrorStatus(err error) (int, ErrorResponse) {
	body := ErrorResponse{Code: core.ErrorCode(err)}
	switch {
	case errors.Is(err, ErrJWTMissing):
		body.Message = "JWT is missing."
		return http.StatusBadRequest, body
	case core.IsUnavailable(err):
		body.Message = "Signing keys are not available yet."
		return http.StatusServiceUnavailable, body
	case errors.Is(err, ErrJWTInvalid):
		body.Message = "JWT is invalid."
		return http.StatusUnauthorized, body
	default:
		body.Message = "Something went wrong while checking the JWT."
		return http.StatusInternalServerError, body
	}
}

// DefaultErrorHandler is the default error handler implementation for the
// JWTMiddleware. It writes the ErrorStatus response as JSON. 400 and 401
// responses carry a WWW-Authenticate challenge (RFC 6750).
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, body := ErrorStatus(err)

	switch status {
	case http.StatusBadRequest:
		w.Header().Set("WWW-Authenticate", "Bearer")
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error="invalid_token", error_description=%q`, body.Code))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
