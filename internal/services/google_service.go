package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the OIDC issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// ExternalIdentity is a verified identity asserted by an outside provider.
type ExternalIdentity struct {
	Subject  string
	Email    string
	FullName string
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleAuthService runs the authorization code exchange and verifies the
// returned ID token.
type GoogleAuthService struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	logger   *slog.Logger
}

// NewGoogleAuthService discovers Google's OIDC configuration.
func NewGoogleAuthService(ctx context.Context, cfg GoogleConfig, logger *slog.Logger) (*GoogleAuthService, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover google oidc provider: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}

	return newGoogleAuthService(oauthCfg, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}), logger), nil
}

func newGoogleAuthService(oauthCfg *oauth2.Config, verifier *oidc.IDTokenVerifier, logger *slog.Logger) *GoogleAuthService {
	return &GoogleAuthService{
		oauth:    oauthCfg,
		verifier: verifier,
		logger:   logger,
	}
}

// AuthURL returns the consent URL and the state value the client must echo back.
func (s *GoogleAuthService) AuthURL() (string, string, error) {
	state, err := auth.GenerateOpaqueToken(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

// Exchange trades an authorization code for a verified identity. Accounts
// whose email Google has not verified are refused.
func (s *GoogleAuthService) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	if code == "" {
		return nil, models.ErrUnauthorized
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("google code exchange failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		s.logger.Warn("google token response has no id_token")
		return nil, models.ErrUnauthorized
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		s.logger.Warn("google id token rejected", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, errors.Join(models.ErrUnauthorized, errors.New("google email not verified"))
	}

	return &ExternalIdentity{
		Subject:  idToken.Subject,
		Email:    claims.Email,
		FullName: claims.Name,
	}, nil
}
