package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidwatch/jwks-strategy/validator"
)

func TestTokenContext(t *testing.T) {
	t.Run("it round trips a validated token", func(t *testing.T) {
		token := &validator.ValidatedToken{KeyID: "kid-1", Algorithm: "RS256"}
		ctx := SetToken(context.Background(), token)

		assert.True(t, HasToken(ctx))
		got, err := GetToken(ctx)
		require.NoError(t, err)
		assert.Same(t, token, got)
	})

	t.Run("it reports a missing token", func(t *testing.T) {
		assert.False(t, HasToken(context.Background()))
		_, err := GetToken(context.Background())
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("it treats a stored nil as missing", func(t *testing.T) {
		ctx := SetToken(context.Background(), nil)
		assert.False(t, HasToken(ctx))
		_, err := GetToken(ctx)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("it ignores values stored under other keys", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), contextKey(99), &validator.ValidatedToken{})
		assert.False(t, HasToken(ctx))
	})
}
