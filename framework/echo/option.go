package jwtecho

import (
	"errors"

	"github.com/labstack/echo/v4"

	jwksstrategy "github.com/kidwatch/jwks-strategy"
)

// Option is a function that configures the middleware
type Option func(*config) error

// WithErrorHandler sets a custom error handler
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(cfg *config) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		cfg.errorHandler = handler
		return nil
	}
}

// WithContextKey sets a custom context key to store the validated token
func WithContextKey(key string) Option {
	return func(cfg *config) error {
		if key == "" {
			return errors.New("context key cannot be empty")
		}
		cfg.contextKey = key
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor jwksstrategy.TokenExtractor) Option {
	return func(cfg *config) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		cfg.tokenExtractor = extractor
		return nil
	}
}

// WithCredentialsOptional lets requests without a token reach the handler
func WithCredentialsOptional(optional bool) Option {
	return func(cfg *config) error {
		cfg.credentialsOptional = optional
		return nil
	}
}
