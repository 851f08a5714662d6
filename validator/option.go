package validator

import (
	"errors"
	"fmt"

	"github.com/kidwatch/jwks-strategy/jwks"
)

// ErrSourceRequired is returned by New when no key source is given.
var ErrSourceRequired = errors.New("signing key source is required but was nil")

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithAllowedAlgorithms restricts the signature algorithms tokens may use.
// Without it, any algorithm published for the matching signer is accepted.
//
// Supported algorithms: RS256, RS384, RS512, ES256, ES384, ES512,
// PS256, PS384, PS512, HS256, HS384, HS512, EdDSA.
func WithAllowedAlgorithms(algorithms ...SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if len(algorithms) == 0 {
			return errors.New("allowed algorithms cannot be empty")
		}

		allowed := make(map[SignatureAlgorithm]bool, len(algorithms))
		for _, alg := range algorithms {
			if !jwks.SupportedAlgorithm(string(alg)) {
				return fmt.Errorf("unsupported signature algorithm: %s", alg)
			}
			allowed[alg] = true
		}
		v.allowedAlgorithms = allowed
		return nil
	}
}
