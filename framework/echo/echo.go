// Package jwtecho verifies bearer tokens in echo middleware.
package jwtecho

import (
	"github.com/labstack/echo/v4"

	jwksstrategy "github.com/kidwatch/jwks-strategy"
	"github.com/kidwatch/jwks-strategy/core"
	"github.com/kidwatch/jwks-strategy/validator"
)

// DefaultTokenKey is the echo context key holding the validated token.
var DefaultTokenKey = "jwt"

type config struct {
	errorHandler        func(echo.Context, error) error
	contextKey          string
	tokenExtractor      jwksstrategy.TokenExtractor
	credentialsOptional bool
}

// New creates an echo middleware backed by v.
func New(v core.TokenValidator, opts ...Option) (echo.MiddlewareFunc, error) {
	cfg := &config{
		errorHandler:   DefaultErrorHandler,
		contextKey:     DefaultTokenKey,
		tokenExtractor: jwksstrategy.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	checker, err := core.New(
		core.WithValidator(v),
		core.WithCredentialsOptional(cfg.credentialsOptional),
	)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := cfg.tokenExtractor(c.Request())
			if err != nil {
				return cfg.errorHandler(c, err)
			}

			token, err := checker.CheckToken(c.Request().Context(), raw)
			if err != nil {
				return cfg.errorHandler(c, err)
			}

			if token != nil {
				c.Set(cfg.contextKey, token)
				c.SetRequest(c.Request().WithContext(core.SetToken(c.Request().Context(), token)))
			}
			return next(c)
		}
	}, nil
}

// DefaultErrorHandler answers with the statuses and JSON body of
// jwksstrategy.DefaultErrorHandler.
func DefaultErrorHandler(c echo.Context, err error) error {
	status, body := jwksstrategy.ErrorStatus(err)
	return c.JSON(status, body)
}

// GetToken extracts the validated token from the echo context
func GetToken(c echo.Context, contextKey string) (*validator.ValidatedToken, bool) {
	token, ok := c.Get(contextKey).(*validator.ValidatedToken)
	return token, ok && token != nil
}
