package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig carries one signing secret and lifetime per token class.
type TokenConfig struct {
	AccessSecret        string
	ChallengeSecret     string
	PasswordResetSecret string
	AccessExpiry        time.Duration
	ChallengeExpiry     time.Duration
	PasswordResetExpiry time.Duration
	Issuer              string
	Audience            string
}

type tokenClass struct {
	tokenType string
	key       []byte
	expiry    time.Duration
}

// TokenManager mints and verifies the signed tokens: access, MFA challenge and
// password reset. Each class has its own key so a leak of one cannot forge another.
type TokenManager struct {
	access    tokenClass
	challenge tokenClass
	reset     tokenClass
	issuer    string
	audience  string
	now       func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(cfg TokenConfig) *TokenManager {
	return &TokenManager{
		access:    tokenClass{models.TokenTypeAccess, []byte(cfg.AccessSecret), cfg.AccessExpiry},
		challenge: tokenClass{models.TokenTypeMFAChallenge, []byte(cfg.ChallengeSecret), cfg.ChallengeExpiry},
		reset:     tokenClass{models.TokenTypePasswordReset, []byte(cfg.PasswordResetSecret), cfg.PasswordResetExpiry},
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		now:       time.Now,
	}
}

// AccessTokenExpiry is reported to clients as expires_in.
func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.access.expiry
}

func (tm *TokenManager) ChallengeExpiry() time.Duration {
	return tm.challenge.expiry
}

// GenerateAccessToken creates a short-lived access token whose subject is the user id.
func (tm *TokenManager) GenerateAccessToken(userID int64, email string, amr []string) (string, error) {
	token, _, err := tm.sign(tm.access, userID, email, amr)
	return token, err
}

// GenerateChallengeToken creates the token that bridges password success and the
// second factor. The returned claims carry the jti used for consumption tracking.
func (tm *TokenManager) GenerateChallengeToken(userID int64, amr []string) (string, *models.TokenClaims, error) {
	return tm.sign(tm.challenge, userID, "", amr)
}

// GeneratePasswordResetToken creates a reset token bound to the user's email.
func (tm *TokenManager) GeneratePasswordResetToken(userID int64, email string) (string, *models.TokenClaims, error) {
	return tm.sign(tm.reset, userID, email, nil)
}

func (tm *TokenManager) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return tm.validate(tm.access, tokenString)
}

func (tm *TokenManager) ValidateChallengeToken(tokenString string) (*models.TokenClaims, error) {
	return tm.validate(tm.challenge, tokenString)
}

func (tm *TokenManager) ValidatePasswordResetToken(tokenString string) (*models.TokenClaims, error) {
	return tm.validate(tm.reset, tokenString)
}

func (tm *TokenManager) sign(class tokenClass, userID int64, email string, amr []string) (string, *models.TokenClaims, error) {
	now := tm.now()
	claims := &models.TokenClaims{
		Type:   class.tokenType,
		Email:  email,
		AMR:    amr,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(class.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(class.key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", class.tokenType, err)
	}

	return tokenString, claims, nil
}

// validate checks signature, algorithm, issuer, audience, expiry, token type and
// the integer subject. Every failure collapses into ErrUnauthorized.
func (tm *TokenManager) validate(class tokenClass, tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}
	if tm.audience != "" {
		opts = append(opts, jwt.WithAudience(tm.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return class.key, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	if claims.Type != class.tokenType {
		return nil, fmt.Errorf("%w: unexpected token type %q", models.ErrUnauthorized, claims.Type)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: malformed subject", models.ErrUnauthorized)
	}
	claims.UserID = userID

	return claims, nil
}
