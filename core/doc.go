/*
Package core provides framework-agnostic token checking that is shared by the
net/http middleware and the gin, echo and gRPC adapters.

The Core type holds the checking logic without depending on any transport:

	┌─────────────────────────────────────────────┐
	│  Transport adapters (net/http, gin, echo,   │
	│  gRPC) extract the token and write errors   │
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│  Core: credentials optional, logging,       │
	│  error codes                                │
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│  validator.Validator backed by a            │
	│  jwks.Strategy or jwks.Registry source      │
	└─────────────────────────────────────────────┘

# Basic Usage

	strategy, err := jwks.New("default", jwks.WithJWKSURL(url))
	if err != nil {
	    log.Fatal(err)
	}
	if err := strategy.Start(ctx); err != nil {
	    log.Fatal(err)
	}

	val, err := validator.New(strategy)
	if err != nil {
	    log.Fatal(err)
	}

	c, err := core.New(core.WithValidator(val))
	if err != nil {
	    log.Fatal(err)
	}

	token, err := c.CheckToken(ctx, raw)

# Context Helpers

Adapters store the validated token in the request context:

	ctx = core.SetToken(ctx, token)

	token, err := core.GetToken(ctx)
	if err != nil {
	    // no validated token
	}

# Error Handling

CheckToken returns ErrJWTMissing when the token is absent and required, and a
*ValidationError otherwise. Every *ValidationError matches ErrJWTInvalid and
carries the jwks error code:

	if errors.Is(err, core.ErrJWTInvalid) {
	    code := core.ErrorCode(err) // e.g. "kid_does_not_match"
	}

IsUnavailable reports the "no_signers_fetched" case, which transports answer
as a temporary failure rather than an authentication failure.
*/
package core
