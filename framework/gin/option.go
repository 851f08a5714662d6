package jwtgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	jwksstrategy "github.com/kidwatch/jwks-strategy"
)

// Option defines a functional option for configuring the middleware
type Option func(*config) error

// WithErrorHandler sets a custom error handler for the middleware
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(cfg *config) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		cfg.errorHandler = handler
		return nil
	}
}

// WithContextKey sets the gin context key for the validated token
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

// WithCredentialsOptional lets requests without a token reach the handlers
func WithCredentialsOptional(optional bool) Option {
	return func(cfg *config) error {
		cfg.credentialsOptional = optional
		return nil
	}
}
