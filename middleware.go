package jwksstrategy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/kidwatch/jwks-strategy/core"
	"github.com/kidwatch/jwks-strategy/validator"
)

// JWTMiddleware verifies bearer tokens on net/http requests against the
// signers of a jwks.Strategy (through a validator.Validator).
type JWTMiddleware struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              logrus.FieldLogger

	// Temporary fields used during construction
	validator           core.TokenValidator
	credentialsOptional bool
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from JWT validation.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new JWTMiddleware instance with the supplied options.
//
// Example:
//
//	v, err := validator.New(strategy)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := jwksstrategy.New(
//	    jwksstrategy.WithValidator(v),
//	    jwksstrategy.WithCredentialsOptional(false),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*JWTMiddleware, error) {
	m := &JWTMiddleware{
		validateOnOptions:   true,
		credentialsOptional: false,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", err)
	}

	m.applyDefaults()

	if err := m.createCore(); err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	return m, nil
}

func (m *JWTMiddleware) validate() error {
	if m.validator == nil {
		return ErrValidatorNil
	}
	return nil
}

func (m *JWTMiddleware) createCore() error {
	coreOpts := []core.Option{
		core.WithValidator(m.validator),
		core.WithCredentialsOptional(m.credentialsOptional),
	}
	if m.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(m.logger))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return err
	}
	m.core = c
	return nil
}

func (m *JWTMiddleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
}

// GetToken retrieves the validated token stored by CheckJWT.
//
// Example:
//
//	token, err := jwksstrategy.GetToken(r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get token", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(token.KeyID, token.Claims["sub"])
func GetToken(ctx context.Context) (*validator.ValidatedToken, error) {
	return core.GetToken(ctx)
}

// MustGetToken retrieves the validated token or panics.
// Use only behind CheckJWT with credentials required.
func MustGetToken(ctx context.Context) *validator.ValidatedToken {
	token, err := core.GetToken(ctx)
	if err != nil {
		panic(err)
	}
	return token
}

// HasToken checks if a validated token exists in the context.
func HasToken(ctx context.Context) bool {
	return core.HasToken(ctx)
}

// CheckJWT is the main JWTMiddleware function which performs the main logic. It
// is passed a http.Handler which will be called if the JWT passes validation.
func (m *JWTMiddleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := m.requestLogger(r)

		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			if log != nil {
				log.Debug("skipping JWT validation for excluded URL")
			}
			next.ServeHTTP(w, r)
			return
		}

		if !m.validateOnOptions && r.Method == http.MethodOptions {
			if log != nil {
				log.Debug("skipping JWT validation for OPTIONS request")
			}
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.tokenExtractor(r)
		if err != nil {
			// Not ErrJWTMissing: the extractor found a token but could not
			// read it.
			if log != nil {
				log.WithError(err).Error("failed to extract token from request")
			}
			m.errorHandler(w, r, fmt.Errorf("error extracting token: %w", err))
			return
		}

		validToken, err := m.core.CheckToken(r.Context(), token)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		if validToken == nil {
			if log != nil {
				log.Debug("no credentials provided, continuing without token (credentials optional)")
			}
			next.ServeHTTP(w, r)
			return
		}

		r = r.Clone(core.SetToken(r.Context(), validToken))
		next.ServeHTTP(w, r)
	})
}

func (m *JWTMiddleware) requestLogger(r *http.Request) logrus.FieldLogger {
	if m.logger == nil {
		return nil
	}
	return m.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})
}
