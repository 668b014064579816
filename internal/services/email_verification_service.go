package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// EmailVerificationRepository defines the interface for email verification token operations
type EmailVerificationRepository interface {
	Create(ctx context.Context, userID int64, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error)
	MarkAsUsed(ctx context.Context, id int64) error
	DeleteByUserID(ctx context.Context, userID int64) error
	CleanupExpired(ctx context.Context, retention time.Duration) (int64, error)
	GetPendingByEmail(ctx context.Context, email string) (*models.EmailVerificationToken, error)
}

// EmailVerificationService handles email verification business logic
type EmailVerificationService struct {
	emailVerificationRepo EmailVerificationRepository
	userRepo              UserRepository
	emailService          EmailService
	logger                *slog.Logger
	auditLogger           *pkglogger.AuditLogger
	tokenExpiry           time.Duration
	resendCooldown        time.Duration
	now                   func() time.Time
}

// NewEmailVerificationService creates a new EmailVerificationService
func NewEmailVerificationService(
	emailVerificationRepo EmailVerificationRepository,
	userRepo UserRepository,
	emailService EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	tokenExpiry time.Duration,
	resendCooldown time.Duration,
) *EmailVerificationService {
	return &EmailVerificationService{
		emailVerificationRepo: emailVerificationRepo,
		userRepo:              userRepo,
		emailService:          emailService,
		logger:                logger,
		auditLogger:           auditLogger,
		tokenExpiry:           tokenExpiry,
		resendCooldown:        resendCooldown,
		now:                   time.Now,
	}
}

// SendVerificationEmail generates a token and sends a verification email
func (s *EmailVerificationService) SendVerificationEmail(ctx context.Context, userID int64, email string) error {
	plainToken, err := auth.GenerateOpaqueToken(auth.VerificationTokenBytes)
	if err != nil {
		s.logger.Error("failed to generate random token", slog.Any("error", err))
		return fmt.Errorf("failed to generate token: %w", err)
	}

	expiresAt := s.now().Add(s.tokenExpiry)

	if _, err := s.emailVerificationRepo.Create(ctx, userID, auth.HashToken(plainToken), email, expiresAt); err != nil {
		s.logger.Error("failed to create email verification token",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return fmt.Errorf("failed to create token: %w", err)
	}

	if err := s.emailService.SendVerificationEmail(ctx, email, plainToken, expiresAt); err != nil {
		s.logger.Error("failed to send verification email",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification email sent", slog.Int64("user_id", userID))

	return nil
}

// VerifyEmail verifies a token and marks the user's email as verified
func (s *EmailVerificationService) VerifyEmail(ctx context.Context, plainToken string) (int64, error) {
	if plainToken == "" {
		s.logger.Warn("empty verification token provided")
		return 0, models.ErrUnauthorized
	}

	token, err := s.emailVerificationRepo.GetByTokenHash(ctx, auth.HashToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification token not found")
			return 0, models.ErrUnauthorized
		}
		s.logger.Error("failed to retrieve verification token", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	if token.IsUsed() {
		s.logger.Warn("attempt to reuse verification token", slog.Int64("token_id", token.ID))
		return 0, models.ErrUnauthorized
	}

	if token.IsExpired() {
		s.logger.Info("verification token expired",
			slog.Int64("token_id", token.ID),
			slog.Time("expires_at", token.ExpiresAt))
		return 0, models.ErrUnauthorized
	}

	// The conditional update makes the token single-use under concurrency.
	if err := s.emailVerificationRepo.MarkAsUsed(ctx, token.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, models.ErrUnauthorized
		}
		s.logger.Error("failed to mark token as used",
			slog.Int64("token_id", token.ID),
			slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	if err := s.userRepo.MarkEmailVerified(ctx, token.UserID); err != nil {
		s.logger.Error("failed to update user email verification status",
			slog.Int64("user_id", token.UserID),
			slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.logger.Info("email verified successfully", slog.Int64("user_id", token.UserID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventEmailVerified, token.UserID, "", nil)

	return token.UserID, nil
}

// ResendVerification sends a new verification email if the cooldown allows.
// It returns nil for unknown or already verified addresses so callers cannot
// discover which emails are registered.
func (s *EmailVerificationService) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for resend", slog.Any("error", err))
		}
		return nil
	}
	if user.EmailVerified || !user.IsActive {
		return nil
	}

	existingToken, err := s.emailVerificationRepo.GetPendingByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check for existing tokens", slog.Any("error", err))
		return nil
	}

	if existingToken != nil {
		if since := s.now().Sub(existingToken.CreatedAt); since < s.resendCooldown {
			s.logger.Info("resend rate limited",
				slog.Int64("user_id", user.ID),
				slog.Duration("time_since_last_send", since))
			return nil
		}
	}

	if err := s.emailVerificationRepo.DeleteByUserID(ctx, user.ID); err != nil {
		s.logger.Error("failed to delete old tokens",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
	}

	if err := s.SendVerificationEmail(ctx, user.ID, email); err != nil {
		s.logger.Error("failed to resend verification email", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}

// Sweep removes tokens that expired more than retention ago.
func (s *EmailVerificationService) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	return s.emailVerificationRepo.CleanupExpired(ctx, retention)
}
