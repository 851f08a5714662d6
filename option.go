package jwksstrategy

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/kidwatch/jwks-strategy/core"
)

// Option configures the JWTMiddleware.
// Returns error for validation failures.
type Option func(*JWTMiddleware) error

// WithValidator sets the validator used to verify tokens (REQUIRED).
// *validator.Validator satisfies core.TokenValidator.
//
// Example:
//
//	v, err := validator.New(strategy, validator.WithAllowedAlgorithms(validator.RS256))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := jwksstrategy.New(
//	    jwksstrategy.WithValidator(v),
//	)
func WithValidator(v core.TokenValidator) Option {
	return func(m *JWTMiddleware) error {
		if v == nil {
			return ErrValidatorNil
		}
		m.validator = v
		return nil
	}
}

// WithCredentialsOptional lets requests without a token through to the
// next handler with no token in their context. A token that is present is
// still checked against the strategy and rejected when it fails.
func WithCredentialsOptional(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions controls whether CORS preflight (OPTIONS) requests
// go through key lookup. Defaults to true.
func WithValidateOnOptions(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler replaces DefaultErrorHandler. The handler receives
// ErrJWTMissing, a *core.ValidationError carrying the jwks error code, or
// an extraction error.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *JWTMiddleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor replaces AuthHeaderTokenExtractor.
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *JWTMiddleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls skips token checks for requests whose path or full URL
// equals one of exclusions, e.g. "/healthz" or "https://api.example.com/metrics".
func WithExclusionUrls(exclusions []string) Option {
	return func(m *JWTMiddleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}

		skip := make(map[string]struct{}, len(exclusions))
		for _, e := range exclusions {
			skip[e] = struct{}{}
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			if _, ok := skip[r.URL.Path]; ok {
				return true
			}
			_, ok := skip[r.URL.String()]
			return ok
		}
		return nil
	}
}

// WithLogger sets an optional logger for the middleware.
// The logger is shared with the core, so validation failures are logged with
// their error code.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *JWTMiddleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrValidatorNil       = errors.New("validator cannot be nil (use WithValidator)")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
)
