package jwtgrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kidwatch/jwks-strategy/core"
)

// ErrorHandler converts validation errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps checking errors to gRPC status codes:
//
//   - missing credentials and rejected tokens: Unauthenticated
//   - no signer fetched yet: Unavailable, so clients may retry
//   - malformed authorization metadata: InvalidArgument
//   - anything else: Internal
//
// Rejected-token messages carry the jwks error code.
func DefaultErrorHandler(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, core.ErrJWTMissing):
		return status.Error(codes.Unauthenticated, "missing credentials")
	case core.IsUnavailable(err):
		return status.Error(codes.Unavailable, core.ErrorCode(err))
	case errors.Is(err, core.ErrJWTInvalid):
		return status.Error(codes.Unauthenticated, core.ErrorCode(err))
	case errors.Is(err, ErrMultipleAuthHeaders), errors.Is(err, ErrInvalidAuthFormat):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "unable to verify token")
	}
}
