package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager() *TokenManager {
	return NewTokenManager(TokenConfig{
		AccessSecret:        "access-secret-for-tests-0123456789",
		ChallengeSecret:     "challenge-secret-for-tests-012345",
		PasswordResetSecret: "reset-secret-for-tests-0123456789",
		AccessExpiry:        30 * time.Minute,
		ChallengeExpiry:     5 * time.Minute,
		PasswordResetExpiry: 30 * time.Minute,
		Issuer:              "warden",
		Audience:            "warden-services",
	})
}

// ============================================================================
// Access tokens
// ============================================================================

func TestTokenManager_AccessToken_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateAccessToken(42, "user@example.com", []string{models.AMRPassword})
	require.NoError(t, err)

	claims, err := tm.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, []string{models.AMRPassword}, claims.AMR)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_AccessToken_Expired(t *testing.T) {
	tm := newTestTokenManager()
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := tm.GenerateAccessToken(1, "a@b.c", nil)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ValidateAccessToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_AccessToken_BadSignature(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateAccessToken(1, "a@b.c", nil)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = tm.ValidateAccessToken(tampered)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_AccessToken_MalformedSubject(t *testing.T) {
	tm := newTestTokenManager()

	for _, subject := range []string{"abc", "", "-3", "0"} {
		claims := &models.TokenClaims{
			Type: models.TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				Issuer:    "warden",
				Audience:  jwt.ClaimStrings{"warden-services"},
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.access.key)
		require.NoError(t, err)

		_, err = tm.ValidateAccessToken(token)
		assert.ErrorIs(t, err, models.ErrUnauthorized, "subject %q", subject)
	}
}

func TestTokenManager_AccessToken_WrongAudienceOrIssuer(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager(TokenConfig{
		AccessSecret: "access-secret-for-tests-0123456789",
		AccessExpiry: time.Minute,
		Issuer:       "someone-else",
		Audience:     "other-audience",
	})

	token, err := other.GenerateAccessToken(1, "a@b.c", nil)
	require.NoError(t, err)

	_, err = tm.ValidateAccessToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	tm := newTestTokenManager()
	claims := &models.TokenClaims{
		Type: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "warden",
			Audience:  jwt.ClaimStrings{"warden-services"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.ValidateAccessToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

// ============================================================================
// Token classes are not interchangeable
// ============================================================================

func TestTokenManager_ClassesAreScoped(t *testing.T) {
	tm := newTestTokenManager()

	access, err := tm.GenerateAccessToken(7, "a@b.c", nil)
	require.NoError(t, err)
	challenge, challengeClaims, err := tm.GenerateChallengeToken(7, []string{models.AMRPassword})
	require.NoError(t, err)
	reset, _, err := tm.GeneratePasswordResetToken(7, "a@b.c")
	require.NoError(t, err)

	_, err = tm.ValidateChallengeToken(access)
	assert.True(t, errors.Is(err, models.ErrUnauthorized), "access token must not pass as challenge")

	_, err = tm.ValidateAccessToken(challenge)
	assert.True(t, errors.Is(err, models.ErrUnauthorized), "challenge must not pass as access token")

	_, err = tm.ValidateAccessToken(reset)
	assert.True(t, errors.Is(err, models.ErrUnauthorized), "reset token must not pass as access token")

	claims, err := tm.ValidateChallengeToken(challenge)
	require.NoError(t, err)
	assert.Equal(t, challengeClaims.ID, claims.ID)
	assert.Equal(t, int64(7), claims.UserID)

	claims, err = tm.ValidatePasswordResetToken(reset)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", claims.Email)
}

func TestTokenManager_ChallengeExpiry(t *testing.T) {
	tm := newTestTokenManager()

	_, claims, err := tm.GenerateChallengeToken(3, nil)
	require.NoError(t, err)

	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.Equal(t, 5*time.Minute, lifetime)
	assert.Equal(t, 5*time.Minute, tm.ChallengeExpiry())
	assert.Equal(t, 30*time.Minute, tm.AccessTokenExpiry())
}
