/*
Package validator verifies JWT signatures against keys resolved from a
jwks.SigningKeySource, such as a jwks.Strategy or a jwks.Registry source.

# Features

  - Signature verification for RS, PS, ES, HS and EdDSA algorithms
  - Key selection by the kid header of the token
  - Optional allow-list of signature algorithms
  - Typed errors carrying the jwks error codes

Claims are decoded and returned but not validated: expiry, audience and
issuer checks belong to the caller.

# Basic Usage

	strategy, err := jwks.New("default",
	    jwks.WithJWKSURL("https://issuer.example.com/.well-known/jwks.json"),
	)
	if err != nil {
	    log.Fatal(err)
	}
	if err := strategy.Start(ctx); err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(strategy, validator.WithAllowedAlgorithms(validator.RS256))
	if err != nil {
	    log.Fatal(err)
	}

	token, err := v.ValidateToken(ctx, tokenString)
	if err != nil {
	    log.Printf("rejected: %s", jwks.ErrorCode(err))
	    return
	}
	log.Printf("subject: %v", token.Claims["sub"])

# Error Handling

Every error returned by ValidateToken is a *jwks.Error:

  - token_malformed: the input is not a compact JWS
  - no_kid_in_token_header: the header carries no string kid
  - kid_does_not_match: the kid is unknown; the strategy refreshes on its next tick
  - no_signers_fetched: the strategy has not fetched its endpoint yet
  - invalid_signature: the algorithm or the signature do not check out

A token with more segments than a compact JWS is rejected before parsing.
*/
package validator
