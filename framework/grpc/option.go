package jwtgrpc

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/kidwatch/jwks-strategy/core"
)

// Option configures the JWT interceptor.
type Option func(*JWTInterceptor) error

// WithValidator sets the token validator (REQUIRED).
//
// Example:
//
//	interceptor, _ := jwtgrpc.New(
//	    jwtgrpc.WithValidator(v),
//	    jwtgrpc.WithLogger(logger),
//	    jwtgrpc.WithCredentialsOptional(true),
//	)
func WithValidator(v core.TokenValidator) Option {
	return func(i *JWTInterceptor) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		i.coreOpts = append(i.coreOpts, core.WithValidator(v))
		return nil
	}
}

// WithCredentialsOptional allows requests without JWT tokens to proceed.
// Such requests carry no validated token in their context.
//
// Default: false (credentials required)
func WithCredentialsOptional(optional bool) Option {
	return func(i *JWTInterceptor) error {
		i.coreOpts = append(i.coreOpts, core.WithCredentialsOptional(optional))
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor and its core.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(i *JWTInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.coreOpts = append(i.coreOpts, core.WithLogger(logger))
		i.logger = logger
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor which extracts from "authorization" metadata.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *JWTInterceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler which maps errors to gRPC status codes.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *JWTInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes specific gRPC methods from JWT validation.
// Methods use the "/package.Service/Method" form, e.g.
// "/grpc.health.v1.Health/Check".
func WithExcludedMethods(methods ...string) Option {
	return func(i *JWTInterceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
