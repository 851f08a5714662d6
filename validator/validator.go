package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kidwatch/jwks-strategy/jwks"
)

// Signature algorithms
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	HS256 = SignatureAlgorithm("HS256") // HMAC using SHA-256
	HS384 = SignatureAlgorithm("HS384") // HMAC using SHA-384
	HS512 = SignatureAlgorithm("HS512") // HMAC using SHA-512
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

// Validator verifies token signatures against the signers of a
// jwks.SigningKeySource. Claims are decoded but not validated.
type Validator struct {
	source            jwks.SigningKeySource       // Required.
	allowedAlgorithms map[SignatureAlgorithm]bool // Optional.
	parser            *jwt.Parser                 // Internal.
}

// ValidatedToken is the result of a successful validation.
type ValidatedToken struct {
	// KeyID is the kid of the signer that verified the token.
	KeyID string

	// Algorithm is the JWS algorithm the token was signed with.
	Algorithm string

	// Claims are the decoded, unvalidated claims of the token.
	Claims jwt.MapClaims
}

// New sets up a new Validator backed by source.
//
// A nil source is a configuration error: tokens cannot be verified without
// a strategy to resolve their kid.
func New(source jwks.SigningKeySource, opts ...Option) (*Validator, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}

	v := &Validator{source: source}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	v.parser = jwt.NewParser(jwt.WithoutClaimsValidation())
	return v, nil
}

// ValidateToken verifies the signature of tokenString.
//
// The returned error is a *jwks.Error:
//   - token_malformed when the token is not a compact JWS
//   - no_kid_in_token_header when its header has no string kid
//   - kid_does_not_match or no_signers_fetched from the key source
//   - invalid_signature when the algorithm or the signature do not check out
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*ValidatedToken, error) {
	if err := validateTokenFormat(tokenString); err != nil {
		return nil, &jwks.Error{Code: jwks.CodeTokenMalformed, Message: jwks.ErrTokenMalformed.Message, Details: err}
	}

	unverified, _, err := v.parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, parseError(err)
	}

	kid, ok := unverified.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, jwks.ErrNoKidInTokenHeader
	}

	alg := unverified.Method.Alg()
	if v.allowedAlgorithms != nil && !v.allowedAlgorithms[SignatureAlgorithm(alg)] {
		return nil, invalidSignature(fmt.Errorf("algorithm %q is not allowed", alg))
	}

	signer, err := v.source.MatchSigner(kid)
	if err != nil {
		return nil, err
	}

	if alg != signer.Algorithm {
		return nil, invalidSignature(fmt.Errorf("expected %q signing algorithm but token specified %q", signer.Algorithm, alg))
	}

	claims := jwt.MapClaims{}
	_, err = v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return signer.Key, nil
	})
	if err != nil {
		return nil, parseError(err)
	}

	return &ValidatedToken{
		KeyID:     kid,
		Algorithm: alg,
		Claims:    claims,
	}, nil
}

func parseError(err error) error {
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return &jwks.Error{Code: jwks.CodeTokenMalformed, Message: jwks.ErrTokenMalformed.Message, Details: err}
	}
	return invalidSignature(err)
}

func invalidSignature(err error) error {
	return &jwks.Error{Code: jwks.CodeInvalidSignature, Message: jwks.ErrInvalidSignature.Message, Details: err}
}
