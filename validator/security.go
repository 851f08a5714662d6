package validator

import (
	"errors"
	"strings"
)

var (
	// ErrExcessiveTokenDots is returned when a token has more segments than
	// a compact JWS.
	ErrExcessiveTokenDots = errors.New("token contains excessive dots")

	// ErrTokenEmpty is returned for an empty token.
	ErrTokenEmpty = errors.New("token is empty")

	// ErrTokenTooLarge is returned for tokens above maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size (1MB)")
)

const (
	// maxTokenDots is the number of dots in a compact JWS:
	// header.payload.signature.
	maxTokenDots = 2

	maxTokenSize = 1024 * 1024
)

// validateTokenFormat rejects obviously malformed input before it reaches
// the JWT parser.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return ErrTokenEmpty
	}

	if len(tokenString) > maxTokenSize {
		return ErrTokenTooLarge
	}

	if strings.Count(tokenString, ".") > maxTokenDots {
		return ErrExcessiveTokenDots
	}

	return nil
}
