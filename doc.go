/*
Package jwksstrategy verifies JWTs against signing keys published at a JWKS
endpoint and rotated without restarts.

The module is split into layers:

  - jwks: the refresh engine. A Strategy fetches a JWKS document, parses it
    into Signers, and refreshes it on a timer only after a token arrived with
    an unknown kid. A Registry runs several named strategies side by side.
  - validator: verifies a compact JWS with the Signer matched by its kid.
  - core: transport-agnostic token checking shared by every adapter.
  - this package: net/http middleware.
  - framework/gin, framework/echo, framework/grpc: adapters for those stacks.
  - config, telemetry and cmd/jwks-strategy: YAML configuration, logging and
    metrics, and a small daemon.

# Basic Usage

	strategy, err := jwks.New("default",
	    jwks.WithJWKSURL("https://issuer.example.com/.well-known/jwks.json"),
	    jwks.WithTimeInterval(5*time.Second),
	    jwks.WithFirstFetchSync(true),
	)
	if err != nil {
	    log.Fatal(err)
	}
	if err := strategy.Start(ctx); err != nil {
	    log.Fatal(err)
	}
	defer strategy.Stop()

	v, err := validator.New(strategy)
	if err != nil {
	    log.Fatal(err)
	}

	middleware, err := jwksstrategy.New(jwksstrategy.WithValidator(v))
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/api", middleware.CheckJWT(handler))

Inside the handler:

	token, err := jwksstrategy.GetToken(r.Context())
	if err != nil {
	    // not reached behind CheckJWT unless credentials are optional
	}
	fmt.Println(token.KeyID, token.Claims["sub"])

# Options

  - WithValidator (required): the token validator
  - WithCredentialsOptional: let requests without a token through
  - WithValidateOnOptions: validate OPTIONS requests (default true)
  - WithTokenExtractor: where to read the token from
  - WithExclusionUrls: paths or URLs that skip validation
  - WithErrorHandler: custom error responses
  - WithLogger: a logrus logger

# Token Extraction

AuthHeaderTokenExtractor is the default. HeaderTokenExtractor,
CookieTokenExtractor and ParameterTokenExtractor read other sources, and
MultiTokenExtractor tries several in order:

	jwksstrategy.WithTokenExtractor(jwksstrategy.MultiTokenExtractor(
	    jwksstrategy.AuthHeaderTokenExtractor,
	    jwksstrategy.CookieTokenExtractor("jwt"),
	))

# Error Handling

DefaultErrorHandler writes a JSON body with a message and the error code:

	400 {"message":"JWT is missing.","code":"token_missing"}
	401 {"message":"JWT is invalid.","code":"kid_does_not_match"}
	503 {"message":"Signing keys are not available yet.","code":"no_signers_fetched"}
	500 {"message":"Something went wrong while checking the JWT."}

A 401 for an unknown kid also schedules a refresh, so a token signed with a
freshly rotated key is accepted once the next tick has fetched the new set.
*/
package jwksstrategy
