package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kidwatch/jwks-strategy/validator"
)

// TokenValidator validates a raw token. *validator.Validator implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*validator.ValidatedToken, error)
}

// Core holds the checking logic without any dependency on a transport.
type Core struct {
	validator           TokenValidator
	credentialsOptional bool
	logger              logrus.FieldLogger
}

// CheckToken validates token and returns the verified token.
//
//   - An empty token with credentials optional returns (nil, nil)
//   - An empty token with credentials required returns ErrJWTMissing
//   - A rejected token returns a *ValidationError carrying the error code
func (c *Core) CheckToken(ctx context.Context, token string) (*validator.ValidatedToken, error) {
	if token == "" {
		if c.credentialsOptional {
			if c.logger != nil {
				c.logger.Debug("no token provided, but credentials are optional")
			}
			return nil, nil
		}

		if c.logger != nil {
			c.logger.Warn("no token provided and credentials are required")
		}
		return nil, ErrJWTMissing
	}

	start := time.Now()
	validated, err := c.validator.ValidateToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		verr := NewValidationError(err)
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{
				"code":     verr.Code,
				"duration": duration,
			}).WithError(err).Warn("token validation failed")
		}
		return nil, verr
	}

	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"kid":      validated.KeyID,
			"alg":      validated.Algorithm,
			"duration": duration,
		}).Debug("token validated successfully")
	}

	return validated, nil
}
