package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// RecoveryCodeRepository defines the interface for recovery code storage
type RecoveryCodeRepository interface {
	Replace(ctx context.Context, userID int64, codeHashes []string) error
	ListUnused(ctx context.Context, userID int64) ([]*models.RecoveryCode, error)
	MarkUsed(ctx context.Context, id int64) (bool, error)
	CountUnused(ctx context.Context, userID int64) (int, error)
}

// MFAConfig holds MFA configuration
type MFAConfig struct {
	RecoveryCodeCount int
}

// MFAService handles TOTP enrolment and second-factor verification.
type MFAService struct {
	userRepo    UserRepository
	codeRepo    RecoveryCodeRepository
	totpMgr     *auth.TOTPManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	config      MFAConfig
	now         func() time.Time
}

// NewMFAService creates a new MFA service
func NewMFAService(
	userRepo UserRepository,
	codeRepo RecoveryCodeRepository,
	totpMgr *auth.TOTPManager,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	config MFAConfig,
) *MFAService {
	if config.RecoveryCodeCount <= 0 {
		config.RecoveryCodeCount = 8
	}
	return &MFAService{
		userRepo:    userRepo,
		codeRepo:    codeRepo,
		totpMgr:     totpMgr,
		logger:      logger,
		auditLogger: auditLogger,
		config:      config,
		now:         time.Now,
	}
}

func (s *MFAService) getUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load user", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !user.IsActive {
		return nil, models.ErrAccountInactive
	}
	return user, nil
}

// Status reports enrolment state and the number of recovery codes left.
func (s *MFAService) Status(ctx context.Context, userID int64) (*models.MFAStatus, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &models.MFAStatus{
		MFAEnabled:        user.MFAEnabled,
		EnrollmentPending: user.HasPendingMFASecret(),
		EnrolledAt:        user.MFAEnrolledAt,
	}

	if user.MFAEnabled {
		n, err := s.codeRepo.CountUnused(ctx, userID)
		if err != nil {
			s.logger.Error("failed to count recovery codes", slog.Int64("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		status.RecoveryCodesRemaining = n
	}

	return status, nil
}

// BeginEnrollment provisions a new pending secret. Calling it again before
// confirmation replaces the pending secret.
func (s *MFAService) BeginEnrollment(ctx context.Context, userID int64) (*models.MFASetupResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, models.ErrMFAAlreadyEnabled
	}

	prov, err := s.totpMgr.Provision(user.Email)
	if err != nil {
		s.logger.Error("failed to provision TOTP secret", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.userRepo.SetPendingMFASecret(ctx, userID, prov.EncryptedSecret, prov.Nonce); err != nil {
		if errors.Is(err, models.ErrMFAAlreadyEnabled) {
			return nil, err
		}
		s.logger.Error("failed to store pending TOTP secret", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("mfa enrollment started", slog.Int64("user_id", userID))

	return &models.MFASetupResponse{
		Secret:     prov.Secret,
		OTPAuthURI: prov.URI,
		QRCode:     prov.QRCodeDataURL,
	}, nil
}

// ConfirmEnrollment checks the first code from the authenticator, enables MFA
// and hands out a fresh set of recovery codes.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, userID int64, code string) (*models.MFAConfirmResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, models.ErrMFAAlreadyEnabled
	}
	if !user.HasPendingMFASecret() {
		return nil, models.ErrMFASetupRequired
	}

	step, err := s.matchTOTP(user, code)
	if err != nil {
		s.auditLogger.LogMFAEvent(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventMFAEnabled,
			UserID:        userID,
			Success:       false,
			FailureReason: "invalid_code",
		})
		return nil, err
	}

	codes, hashes, err := s.newRecoveryCodes()
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.EnableMFA(ctx, userID, step, hashes); err != nil {
		if errors.Is(err, models.ErrMFAAlreadyEnabled) {
			return nil, err
		}
		s.logger.Error("failed to enable mfa", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	updated, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("mfa enabled", slog.Int64("user_id", userID))
	s.auditLogger.LogMFAEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventMFAEnabled,
		UserID:    userID,
		Success:   true,
	})

	return &models.MFAConfirmResponse{
		User:          updated.ToResponse(),
		RecoveryCodes: codes,
	}, nil
}

// Disable turns MFA off after a valid TOTP code and wipes the secret,
// recovery codes and trusted devices.
func (s *MFAService) Disable(ctx context.Context, userID int64, code string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return models.ErrMFANotEnabled
	}

	if err := s.VerifyTOTP(ctx, user, code); err != nil {
		return err
	}

	if err := s.userRepo.DisableMFA(ctx, userID); err != nil {
		s.logger.Error("failed to disable mfa", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("mfa disabled", slog.Int64("user_id", userID))
	s.auditLogger.LogMFAEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventMFADisabled,
		UserID:    userID,
		Success:   true,
	})
	return nil
}

// RegenerateRecoveryCodes replaces the whole set after a valid TOTP code.
func (s *MFAService) RegenerateRecoveryCodes(ctx context.Context, userID int64, code string) ([]string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.MFAEnabled {
		return nil, models.ErrMFANotEnabled
	}

	if err := s.VerifyTOTP(ctx, user, code); err != nil {
		return nil, err
	}

	codes, hashes, err := s.newRecoveryCodes()
	if err != nil {
		return nil, err
	}

	if err := s.codeRepo.Replace(ctx, userID, hashes); err != nil {
		s.logger.Error("failed to replace recovery codes", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogMFAEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRecoveryCodesNew,
		UserID:    userID,
		Success:   true,
	})
	return codes, nil
}

// VerifyTOTP accepts a code for an enrolled user. A code whose time step is
// not newer than the last accepted one is treated as a replay.
func (s *MFAService) VerifyTOTP(ctx context.Context, user *models.User, code string) error {
	step, err := s.matchTOTP(user, code)
	if err != nil {
		return err
	}

	advanced, err := s.userRepo.AdvanceTOTPStep(ctx, user.ID, step)
	if err != nil {
		s.logger.Error("failed to record TOTP step", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !advanced {
		s.logger.Warn("replayed TOTP code rejected", slog.Int64("user_id", user.ID))
		return models.ErrInvalidCode
	}

	return nil
}

// ConsumeRecoveryCode marks a matching unused code as used. Every stored
// hash is compared so the scan does not stop at the first match.
func (s *MFAService) ConsumeRecoveryCode(ctx context.Context, userID int64, code string) error {
	if strings.TrimSpace(code) == "" {
		return models.ErrInvalidCode
	}

	codes, err := s.codeRepo.ListUnused(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load recovery codes", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	presented := auth.HashRecoveryCode(code)
	var match *models.RecoveryCode
	for _, c := range codes {
		if auth.ConstantTimeHashCompare(c.CodeHash, presented) && match == nil {
			match = c
		}
	}
	if match == nil {
		return models.ErrInvalidCode
	}

	used, err := s.codeRepo.MarkUsed(ctx, match.ID)
	if err != nil {
		s.logger.Error("failed to mark recovery code used", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !used {
		// Lost a race with a concurrent request using the same code.
		return models.ErrInvalidCode
	}

	s.logger.Info("recovery code used", slog.Int64("user_id", userID))
	return nil
}

func (s *MFAService) matchTOTP(user *models.User, code string) (int64, error) {
	if len(user.TOTPSecretEncrypted) == 0 {
		return 0, models.ErrMFASetupRequired
	}

	secret, err := s.totpMgr.DecryptSecret(user.TOTPSecretEncrypted, user.TOTPSecretNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	step, ok, err := s.totpMgr.MatchCode(secret, code, s.now())
	if err != nil {
		s.logger.Error("failed to validate TOTP code", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}
	if !ok {
		return 0, models.ErrInvalidCode
	}
	return step, nil
}

func (s *MFAService) newRecoveryCodes() ([]string, []string, error) {
	codes, err := s.totpMgr.GenerateRecoveryCodes(s.config.RecoveryCodeCount)
	if err != nil {
		s.logger.Error("failed to generate recovery codes", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = auth.HashRecoveryCode(c)
	}
	return codes, hashes, nil
}
