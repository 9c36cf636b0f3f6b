package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSParser_RoundTrip(t *testing.T) {
	p := NewHSParser("secret")
	uid := uuid.New()

	tok, err := p.Sign(uid, true, time.Minute)
	require.NoError(t, err)

	claims, err := p.ParseAccess(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestHSParser_Rejects(t *testing.T) {
	p := NewHSParser("secret")
	uid := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewHSParser("other").Sign(uid, false, time.Minute)
		require.NoError(t, err)
		_, err = p.ParseAccess(context.Background(), tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := p.Sign(uid, false, time.Minute)
		require.NoError(t, err)
		late := &HSParser{secret: p.secret, now: func() time.Time { return time.Now().Add(time.Hour) }}
		_, err = late.ParseAccess(context.Background(), tok)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, customClaims{ID: uid.String()}).SignedString(p.secret)
		require.NoError(t, err)
		_, err = p.ParseAccess(context.Background(), tok)
		assert.Error(t, err)
	})

	t.Run("subject fallback", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, customClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: uid.String()},
		}).SignedString(p.secret)
		require.NoError(t, err)
		claims, err := p.ParseAccess(context.Background(), tok)
		require.NoError(t, err)
		assert.Equal(t, uid, claims.UserID)
		assert.False(t, claims.IsAdmin)
	})
}
