package core

import (
	"context"

	"github.com/kidwatch/jwks-strategy/validator"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	tokenKey contextKey = iota
)

// SetToken stores a validated token in the context.
// This is a helper function for adapters to set the token after validation.
func SetToken(ctx context.Context, token *validator.ValidatedToken) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// GetToken retrieves the validated token from the context.
//
// Example usage:
//
//	token, err := core.GetToken(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(token.Claims["sub"])
func GetToken(ctx context.Context) (*validator.ValidatedToken, error) {
	token, ok := ctx.Value(tokenKey).(*validator.ValidatedToken)
	if !ok || token == nil {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

// HasToken checks if a validated token exists in the context.
func HasToken(ctx context.Context) bool {
	token, ok := ctx.Value(tokenKey).(*validator.ValidatedToken)
	return ok && token != nil
}
