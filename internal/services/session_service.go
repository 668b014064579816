package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
)

// RefreshTokenRepository defines the persistence SessionService needs.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)
	Redeem(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeByID(ctx context.Context, userID, id int64) error
	RevokeAllForUser(ctx context.Context, userID int64, exceptHash string) (int64, error)
	ListActive(ctx context.Context, userID int64) ([]*models.RefreshToken, error)
	DeleteStale(ctx context.Context, retention time.Duration) (int64, error)
}

// SessionConfig holds refresh token lifetimes.
type SessionConfig struct {
	RefreshTokenExpiry time.Duration
	Retention          time.Duration // how long expired or revoked rows are kept
}

// SessionService issues, rotates and revokes refresh tokens. Only SHA-256
// hashes reach the repository.
type SessionService struct {
	repo   RefreshTokenRepository
	logger *slog.Logger
	config SessionConfig
	now    func() time.Time
}

func NewSessionService(repo RefreshTokenRepository, logger *slog.Logger, config SessionConfig) *SessionService {
	return &SessionService{
		repo:   repo,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// Create mints a refresh token for the user. The plaintext is returned once.
func (s *SessionService) Create(ctx context.Context, userID int64, client models.ClientInfo) (string, *models.RefreshToken, error) {
	plain, err := auth.GenerateOpaqueToken(auth.RefreshTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	token, err := s.repo.Create(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: auth.HashToken(plain),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: s.now().Add(s.config.RefreshTokenExpiry),
	})
	if err != nil {
		return "", nil, err
	}

	return plain, token, nil
}

// Redeem consumes a refresh token. Each token can be redeemed exactly once;
// the caller is expected to issue a replacement.
func (s *SessionService) Redeem(ctx context.Context, plain string) (*models.RefreshToken, error) {
	if plain = strings.TrimSpace(plain); plain == "" {
		return nil, models.ErrUnauthorized
	}

	token, err := s.repo.Redeem(ctx, auth.HashToken(plain))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("refresh token rejected: unknown, expired or already used")
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to redeem refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return token, nil
}

// RevokeOne revokes the session behind plain. Unknown tokens are ignored so
// logout is idempotent.
func (s *SessionService) RevokeOne(ctx context.Context, plain string) error {
	if plain == "" {
		return nil
	}
	if _, err := s.repo.RevokeByHash(ctx, auth.HashToken(plain)); err != nil {
		s.logger.Error("failed to revoke refresh token", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// RevokeByID revokes one of the user's own sessions.
func (s *SessionService) RevokeByID(ctx context.Context, userID, id int64) error {
	if err := s.repo.RevokeByID(ctx, userID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to revoke session",
			slog.Int64("user_id", userID), slog.Int64("session_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// RevokeAll revokes every session of the user, keeping exceptPlain alive when set.
func (s *SessionService) RevokeAll(ctx context.Context, userID int64, exceptPlain string) (int64, error) {
	exceptHash := ""
	if exceptPlain != "" {
		exceptHash = auth.HashToken(exceptPlain)
	}

	n, err := s.repo.RevokeAllForUser(ctx, userID, exceptHash)
	if err != nil {
		s.logger.Error("failed to revoke sessions", slog.Int64("user_id", userID), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.logger.Info("sessions revoked", slog.Int64("user_id", userID), slog.Int64("count", n))
	return n, nil
}

// ListActive returns the user's live sessions, flagging the one that
// currentPlain belongs to.
func (s *SessionService) ListActive(ctx context.Context, userID int64, currentPlain string) ([]models.SessionInfo, error) {
	tokens, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list sessions", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	currentHash := ""
	if currentPlain != "" {
		currentHash = auth.HashToken(currentPlain)
	}

	sessions := make([]models.SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, models.SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
			Current:   currentHash != "" && auth.ConstantTimeHashCompare(t.TokenHash, currentHash),
		})
	}
	return sessions, nil
}

// Sweep deletes rows past the retention window.
func (s *SessionService) Sweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteStale(ctx, s.config.Retention)
}

// RefreshTokenExpiry is used for the refresh cookie max-age.
func (s *SessionService) RefreshTokenExpiry() time.Duration {
	return s.config.RefreshTokenExpiry
}
