package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	RecordFailedLogin(ctx context.Context, id int64, threshold int, lockout time.Duration) (*models.User, error)
	ResetFailedLogins(ctx context.Context, id int64) error
	MarkEmailVerified(ctx context.Context, id int64) error
	SetPendingMFASecret(ctx context.Context, id int64, encrypted, nonce []byte) error
	EnableMFA(ctx context.Context, id int64, step int64, codeHashes []string) error
	DisableMFA(ctx context.Context, id int64) error
	AdvanceTOTPStep(ctx context.Context, id int64, step int64) (bool, error)
	Deactivate(ctx context.Context, id int64) error
}

// SessionRevoker is the part of SessionService other services use to sign a
// user out everywhere.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID int64, exceptPlain string) (int64, error)
}

// ProfileDispatcher pushes a newly created profile to sibling services.
type ProfileDispatcher interface {
	Dispatch(profile models.SyncProfile)
}

// CreateUserInput is used by the admin and management surfaces. A nil
// IsActive creates an active account.
type CreateUserInput struct {
	Email         string
	Password      string
	FullName      string
	IsActive      *bool
	IsSuperuser   bool
	EmailVerified bool
	Roles         []string
}

// ProfileUpdate is what a user may change about themselves.
type ProfileUpdate struct {
	FullName        *string
	CurrentPassword string
	NewPassword     string
}

// UserService handles user business logic
type UserService struct {
	repo        UserRepository
	sessions    SessionRevoker
	syncer      ProfileDispatcher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, sessions SessionRevoker, syncer ProfileDispatcher, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		sessions:    sessions,
		syncer:      syncer,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// NormalizeEmail trims and lower-cases an address; emails are stored that way.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Get retrieves a user by ID
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.Int64("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// List retrieves a page of users and the total count
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	return users, total, nil
}

// Create adds a user on behalf of an administrator or operator and syncs the
// profile to sibling services once the row exists.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, models.ErrBadRequest
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		s.logger.Info("user already exists")
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	created, err := s.repo.Create(ctx, &models.User{
		Email:             email,
		PasswordHash:      hash,
		FullName:          strings.TrimSpace(in.FullName),
		IsActive:          in.IsActive == nil || *in.IsActive,
		EmailVerified:     in.EmailVerified,
		IsSuperuser:       in.IsSuperuser,
		Roles:             in.Roles,
		PasswordChangedAt: &now,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user created", slog.Int64("user_id", created.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventRegister, created.ID, "", map[string]string{"source": "admin"})

	if s.syncer != nil {
		s.syncer.Dispatch(models.SyncProfile{
			Email:       created.Email,
			FullName:    created.FullName,
			Password:    in.Password,
			IsActive:    created.IsActive,
			IsSuperuser: created.IsSuperuser,
		})
	}

	return created, nil
}

// EnsureSuperuser creates the bootstrap superuser unless the email already
// exists. The bool reports whether a user was created.
func (s *UserService) EnsureSuperuser(ctx context.Context, email, password string) (*models.User, bool, error) {
	existing, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	created, err := s.Create(ctx, CreateUserInput{
		Email:         email,
		Password:      password,
		FullName:      "Administrator",
		IsSuperuser:   true,
		EmailVerified: true,
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// UpdateProfile applies a self-service change. A password change needs the
// current password and signs out every other session.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate, currentRefresh string) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.ErrAccountInactive
	}

	if upd.NewPassword != "" {
		if err := auth.ComparePassword(user.PasswordHash, upd.CurrentPassword); err != nil {
			return nil, models.ErrInvalidCredentials
		}
		if err := auth.ValidatePassword(upd.NewPassword); err != nil {
			return nil, err
		}

		hash, err := auth.HashPassword(upd.NewPassword)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
			s.logger.Error("failed to update password", slog.Int64("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if _, err := s.sessions.RevokeAll(ctx, userID, currentRefresh); err != nil {
			return nil, err
		}

		s.auditLogger.LogAccountAction(ctx, pkglogger.EventPasswordChange, userID, "", nil)
	}

	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		user, err = s.repo.Update(ctx, userID, models.UserUpdate{FullName: &name})
		if err != nil {
			s.logger.Error("failed to update user", slog.Int64("user_id", userID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	} else if upd.NewPassword != "" {
		return s.Get(ctx, userID)
	}

	return user, nil
}

// AdminUpdate applies an administrative change. Clearing is_active goes
// through Deactivate so sessions are revoked as well.
func (s *UserService) AdminUpdate(ctx context.Context, actorID, id int64, upd models.UserUpdate) (*models.User, error) {
	if upd.IsActive != nil && !*upd.IsActive {
		if err := s.Deactivate(ctx, actorID, id); err != nil {
			return nil, err
		}
		upd.IsActive = nil
	}

	user, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user", slog.Int64("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, "user_updated", id, "", map[string]string{
		"actor_id": strconv.FormatInt(actorID, 10),
	})
	return user, nil
}

// Deactivate soft-deletes a user and revokes everything they hold. Users
// cannot deactivate themselves.
func (s *UserService) Deactivate(ctx context.Context, actorID, id int64) error {
	if actorID != 0 && actorID == id {
		return models.ErrForbidden
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to deactivate user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deactivated", slog.Int64("user_id", id), slog.Int64("actor_id", actorID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventUserDeactivated, id, "", map[string]string{
		"actor_id": strconv.FormatInt(actorID, 10),
	})
	return nil
}

// Unlock clears the failure counter and any lockout window.
func (s *UserService) Unlock(ctx context.Context, id int64) error {
	if err := s.repo.ResetFailedLogins(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to unlock user", slog.Int64("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.EventUserUnlocked, id, "", nil)
	return nil
}
