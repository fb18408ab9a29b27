package jwtinfra

import (
	"testing"
	"time"

	"github.com/marketplace-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(&config.Config{
		JWTAccessSecret:  "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresSecrets(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTAccessSecret: "a"})
	assert.Error(t, err)
}

func TestAccessRoundTrip(t *testing.T) {
	p := newTestProvider(t)
	tok, err := p.SignAccess("01HX", "seller")
	require.NoError(t, err)

	claims, err := p.VerifyAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, "01HX", claims.ID)
	assert.Equal(t, "seller", claims.Role)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	p := newTestProvider(t)
	tok, err := p.SignRefresh("01HX", "user")
	require.NoError(t, err)

	_, err = p.VerifyAccess(tok)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)

	claims, err := p.VerifyRefresh(tok)
	require.NoError(t, err)
	assert.Equal(t, "user", claims.Role)
}

func TestExpiredAccessToken(t *testing.T) {
	p := newTestProvider(t)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return issued }
	tok, err := p.SignAccess("01HX", "user")
	require.NoError(t, err)

	p.now = func() time.Time { return issued.Add(16 * time.Minute) }
	_, err = p.VerifyAccess(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestGarbageToken(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.VerifyAccess("not-a-jwt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)
}
