/*
Package jwks keeps the signing keys published at remote JWKS endpoints
available for JWT signature verification.

# Overview

A Strategy owns the key set of one JWKS endpoint:
  - A single background goroutine fetches the endpoint on a fixed tick
  - Lookups are lock-free reads of an immutable snapshot
  - A lookup miss flags the key set for refresh; the next tick fetches it
  - Misses within one tick interval are coalesced into a single fetch

A Registry runs many strategies side by side, one per tenant or identity
provider, each fully isolated from the others.

# Basic Usage

	s, err := jwks.New("default",
	    jwks.WithJWKSURL("https://issuer.example.com/.well-known/jwks.json"),
	    jwks.WithFirstFetchSync(true),
	)
	if err != nil {
	    log.Fatal(err)
	}
	if err := s.Start(ctx); err != nil {
	    log.Fatal(err)
	}
	defer s.Stop()

	signer, err := s.MatchSigner(kid)
	switch {
	case errors.Is(err, jwks.ErrKidDoesNotMatch):
	    // unknown kid, a refresh is scheduled
	case errors.Is(err, jwks.ErrNoSignersFetched):
	    // the endpoint has not been fetched successfully yet
	}

# Fetching

Each refresh issues one GET per attempt. Transport errors and 5xx responses
are retried up to WithHTTPMaxRetries times with a fixed WithHTTPDelayPerRetry
delay. 4xx responses and 200 responses without a "keys" array fail the
refresh immediately. A failed refresh leaves the previous key set in place
and the next tick tries again.

# Parsing

Entries are processed in order:
 1. "use": "enc" entries are skipped
 2. a missing or non-string kid fails the whole batch (kid_not_binary)
 3. the algorithm is WithExplicitAlg, else the entry's alg; none fails the
    batch (no_algorithm_supplied)
 4. algorithms the verifier does not support are skipped
 5. key parameters that do not produce a usable key fail the batch
    (invalid_key_params)

An empty result is installed like any other and logged as a warning.

# Error Handling

Every error returned by this package is a *Error carrying one of the Code*
constants. Use errors.Is with the exported sentinels, or ErrorCode to get
the code as a string.
*/
package jwks
