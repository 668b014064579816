package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
)

type TrustedDeviceRepository interface {
	Create(ctx context.Context, device *models.TrustedDevice) (*models.TrustedDevice, error)
	FindActive(ctx context.Context, userID int64, tokenHash string) (*models.TrustedDevice, error)
	List(ctx context.Context, userID int64) ([]*models.TrustedDevice, error)
	Delete(ctx context.Context, userID, id int64) error
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// TrustedDeviceService manages the long-lived device tokens that let a
// browser skip the second factor.
type TrustedDeviceService struct {
	repo   TrustedDeviceRepository
	logger *slog.Logger
	expiry time.Duration
	now    func() time.Time
}

func NewTrustedDeviceService(repo TrustedDeviceRepository, logger *slog.Logger, expiry time.Duration) *TrustedDeviceService {
	return &TrustedDeviceService{
		repo:   repo,
		logger: logger,
		expiry: expiry,
		now:    time.Now,
	}
}

// Create registers a device for the user and returns its plaintext token once.
func (s *TrustedDeviceService) Create(ctx context.Context, userID int64, client models.ClientInfo) (string, *models.TrustedDevice, error) {
	plain, err := auth.GenerateOpaqueToken(auth.TrustedDeviceTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate device token: %w", err)
	}

	device, err := s.repo.Create(ctx, &models.TrustedDevice{
		UserID:    userID,
		TokenHash: auth.HashToken(plain),
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: s.now().Add(s.expiry),
	})
	if err != nil {
		return "", nil, err
	}

	return plain, device, nil
}

// Lookup returns the device only if it belongs to userID and has not expired.
func (s *TrustedDeviceService) Lookup(ctx context.Context, userID int64, plain string) (*models.TrustedDevice, error) {
	if plain == "" {
		return nil, models.ErrNotFound
	}

	device, err := s.repo.FindActive(ctx, userID, auth.HashToken(plain))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to look up trusted device", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if device.IsExpired(s.now()) {
		return nil, models.ErrNotFound
	}

	return device, nil
}

func (s *TrustedDeviceService) List(ctx context.Context, userID int64) ([]*models.TrustedDevice, error) {
	devices, err := s.repo.List(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list trusted devices", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return devices, nil
}

func (s *TrustedDeviceService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete trusted device", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *TrustedDeviceService) DeleteAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to delete trusted devices", slog.Int64("user_id", userID), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}
	return n, nil
}

func (s *TrustedDeviceService) Sweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}

// Expiry is used for the device cookie max-age.
func (s *TrustedDeviceService) Expiry() time.Duration {
	return s.expiry
}
