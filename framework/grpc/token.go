package jwtgrpc

import (
	"context"

	"github.com/kidwatch/jwks-strategy/core"
	"github.com/kidwatch/jwks-strategy/validator"
)

// GetToken retrieves the validated token stored by the interceptors.
//
// Example:
//
//	token, err := jwtgrpc.GetToken(ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get token")
//	}
//	fmt.Println(token.Claims["sub"])
func GetToken(ctx context.Context) (*validator.ValidatedToken, error) {
	return core.GetToken(ctx)
}

// HasToken checks if a validated token exists in the context.
func HasToken(ctx context.Context) bool {
	return core.HasToken(ctx)
}
