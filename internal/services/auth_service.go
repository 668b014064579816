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
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti string, userID int64, tokenType string, expiresAt time.Time, reason string) (bool, error)
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// VerificationSender issues and mails an email verification token.
type VerificationSender interface {
	SendVerificationEmail(ctx context.Context, userID int64, email string) error
}

// AuthConfig holds the login policy.
type AuthConfig struct {
	MaxFailedLogins          int
	LockoutDuration          time.Duration
	RequireEmailVerification bool
}

// AuthServiceDeps groups the collaborators of AuthService.
type AuthServiceDeps struct {
	Users       UserRepository
	Revocations TokenRevocationRepository
	Tokens      *auth.TokenManager
	Sessions    *SessionService
	Devices     *TrustedDeviceService
	MFA         *MFAService
	Verifier    VerificationSender
	Mailer      EmailService
	Syncer      ProfileDispatcher
	Timing      *auth.TimingDelay
	Logger      *slog.Logger
	AuditLogger *pkglogger.AuditLogger
}

// AuthService handles authentication business logic
type AuthService struct {
	users       UserRepository
	revocations TokenRevocationRepository
	tokens      *auth.TokenManager
	sessions    *SessionService
	devices     *TrustedDeviceService
	mfa         *MFAService
	verifier    VerificationSender
	mailer      EmailService
	syncer      ProfileDispatcher
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	config      AuthConfig
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(deps AuthServiceDeps, config AuthConfig) *AuthService {
	return &AuthService{
		users:       deps.Users,
		revocations: deps.Revocations,
		tokens:      deps.Tokens,
		sessions:    deps.Sessions,
		devices:     deps.Devices,
		mfa:         deps.MFA,
		verifier:    deps.Verifier,
		mailer:      deps.Mailer,
		syncer:      deps.Syncer,
		timing:      deps.Timing,
		logger:      deps.Logger,
		auditLogger: deps.AuditLogger,
		config:      config,
		now:         time.Now,
	}
}

// LoginInput carries a password login attempt.
type LoginInput struct {
	Email       string
	Password    string
	DeviceToken string // trusted device cookie, may be empty
	Client      models.ClientInfo
}

// VerifyMFAInput completes a challenge with either a TOTP code or a recovery code.
type VerifyMFAInput struct {
	ChallengeToken string
	Code           string
	RecoveryCode   string
	TrustDevice    bool
	Client         models.ClientInfo
}

// RegisterInput is a self-service sign-up.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// LoginResult is either a token pair or an MFA challenge, never both.
type LoginResult struct {
	User        *models.User
	Tokens      *models.TokenPair
	MFA         *models.MFARequiredResponse
	DeviceToken string // set when this login registered a trusted device
}

// Login verifies email and password and either issues tokens or, when MFA is
// enabled and the device is not trusted, a challenge token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	start := time.Now()
	email := NormalizeEmail(in.Email)

	fail := func(userID int64, reason string, err error) (*LoginResult, error) {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLogin,
			UserID:        userID,
			Email:         email,
			IPAddress:     in.Client.IPAddress,
			UserAgent:     in.Client.UserAgent,
			Success:       false,
			FailureReason: reason,
		})
		s.timing.WaitFrom(start, false)
		return nil, err
	}

	if email == "" || in.Password == "" {
		return fail(0, "missing_credentials", models.ErrInvalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Spend the same bcrypt time as a real comparison.
			pkgauth.CompareAgainstDummy(in.Password)
			s.logger.Info("login failed: invalid credentials")
			return fail(0, "invalid_credentials", models.ErrInvalidCredentials)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		pkgauth.CompareAgainstDummy(in.Password)
		s.logger.Info("login blocked: inactive account", slog.Int64("user_id", user.ID))
		return fail(user.ID, "inactive", models.ErrInvalidCredentials)
	}

	now := s.now()
	if user.IsLocked(now) {
		s.logger.Info("login blocked: account locked", slog.Int64("user_id", user.ID))
		return fail(user.ID, "locked", models.ErrAccountLocked)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		s.recordFailure(ctx, user, in.Client)
		s.logger.Info("login failed: invalid credentials", slog.Int64("user_id", user.ID))
		return fail(user.ID, "invalid_credentials", models.ErrInvalidCredentials)
	}

	if err := s.clearFailures(ctx, user); err != nil {
		return nil, err
	}

	if s.config.RequireEmailVerification && !user.EmailVerified {
		s.logger.Info("login blocked: email not verified", slog.Int64("user_id", user.ID))
		return fail(user.ID, "email_not_verified", models.ErrEmailNotVerified)
	}

	return s.completeFirstFactor(ctx, user, models.AMRPassword, in.DeviceToken, in.Client)
}

// LoginExternal signs in a user whose identity an outside provider verified.
// Unknown emails get a password-less account. Lockout does not apply but MFA
// and trusted devices do.
func (s *AuthService) LoginExternal(ctx context.Context, identity *ExternalIdentity, deviceToken string, client models.ClientInfo) (*LoginResult, error) {
	email := NormalizeEmail(identity.Email)
	if email == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		user, err = s.users.Create(ctx, &models.User{
			Email:         email,
			FullName:      strings.TrimSpace(identity.FullName),
			IsActive:      true,
			EmailVerified: true,
		})
		if err != nil {
			s.logger.Error("failed to create external user", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		s.logger.Info("user created from external identity", slog.Int64("user_id", user.ID))
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventRegister, user.ID, client.IPAddress, map[string]string{"source": "google"})
		s.dispatchSync(user, "")
	case err != nil:
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		return nil, models.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			s.logger.Error("failed to mark email verified", slog.Int64("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user.EmailVerified = true
	}

	return s.completeFirstFactor(ctx, user, models.AMRGoogle, deviceToken, client)
}

// completeFirstFactor runs once the first factor succeeded: trusted device
// bypass, MFA challenge, or straight to tokens.
func (s *AuthService) completeFirstFactor(ctx context.Context, user *models.User, method, deviceToken string, client models.ClientInfo) (*LoginResult, error) {
	amr := []string{method}

	if user.MFAEnabled {
		if deviceToken != "" {
			if _, err := s.devices.Lookup(ctx, user.ID, deviceToken); err == nil {
				s.logger.Info("mfa bypassed by trusted device", slog.Int64("user_id", user.ID))
				return s.issue(ctx, user, append(amr, models.AMRTrustedDevice), client)
			} else if !errors.Is(err, models.ErrNotFound) {
				return nil, err
			}
		}

		challenge, _, err := s.tokens.GenerateChallengeToken(user.ID, amr)
		if err != nil {
			s.logger.Error("failed to generate challenge token", slog.Int64("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventLoginMFARequired,
			UserID:    user.ID,
			IPAddress: client.IPAddress,
			UserAgent: client.UserAgent,
			Success:   true,
		})

		return &LoginResult{
			User: user,
			MFA: &models.MFARequiredResponse{
				MFARequired:       true,
				MFAChallengeToken: challenge,
				ExpiresIn:         int64(s.tokens.ChallengeExpiry().Seconds()),
				Detail:            "MFA verification required",
			},
		}, nil
	}

	return s.issue(ctx, user, amr, client)
}

// VerifyMFA completes an MFA challenge. The challenge is consumed only after
// a correct code, and only once.
func (s *AuthService) VerifyMFA(ctx context.Context, in VerifyMFAInput) (*LoginResult, error) {
	claims, err := s.tokens.ValidateChallengeToken(in.ChallengeToken)
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	revoked, err := s.revocations.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check challenge state", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if revoked {
		s.logger.Warn("consumed mfa challenge presented again", slog.Int64("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load user for mfa", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !user.IsActive || !user.MFAEnabled {
		return nil, models.ErrUnauthorized
	}
	if user.IsLocked(s.now()) {
		return nil, models.ErrAccountLocked
	}

	var method string
	switch {
	case in.Code != "":
		method = models.AMROTP
		err = s.mfa.VerifyTOTP(ctx, user, in.Code)
	case in.RecoveryCode != "":
		method = models.AMRRecoveryCode
		err = s.mfa.ConsumeRecoveryCode(ctx, user.ID, in.RecoveryCode)
	default:
		err = models.ErrInvalidCode
	}
	if err != nil {
		if errors.Is(err, models.ErrInvalidCode) {
			s.recordFailure(ctx, user, in.Client)
			s.auditLogger.LogMFAEvent(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventMFAVerify,
				UserID:        user.ID,
				IPAddress:     in.Client.IPAddress,
				UserAgent:     in.Client.UserAgent,
				Success:       false,
				FailureReason: "invalid_code",
			})
		}
		return nil, err
	}

	consumed, err := s.revocations.RevokeToken(ctx, claims.ID, user.ID, models.TokenTypeMFAChallenge, claims.ExpiresAt.Time, "mfa_completed")
	if err != nil {
		s.logger.Error("failed to consume mfa challenge", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !consumed {
		return nil, models.ErrUnauthorized
	}

	if err := s.clearFailures(ctx, user); err != nil {
		return nil, err
	}

	s.auditLogger.LogMFAEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventMFAVerify,
		UserID:    user.ID,
		IPAddress: in.Client.IPAddress,
		UserAgent: in.Client.UserAgent,
		Success:   true,
		Metadata:  map[string]string{"method": method},
	})

	amr := append(append([]string{}, claims.AMR...), method)
	result, err := s.issue(ctx, user, amr, in.Client)
	if err != nil {
		return nil, err
	}

	if in.TrustDevice {
		plain, _, err := s.devices.Create(ctx, user.ID, in.Client)
		if err != nil {
			// The login itself succeeded; the device simply is not remembered.
			s.logger.Error("failed to create trusted device", slog.Int64("user_id", user.ID), slog.Any("error", err))
		} else {
			result.DeviceToken = plain
			s.auditLogger.LogSessionEvent(ctx, pkglogger.AuditEvent{
				EventType: pkglogger.EventTrustedDeviceAdd,
				UserID:    user.ID,
				IPAddress: in.Client.IPAddress,
				UserAgent: in.Client.UserAgent,
				Success:   true,
			})
		}
	}

	return result, nil
}

// Refresh rotates a refresh token: the presented one is consumed and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client models.ClientInfo) (*LoginResult, error) {
	old, err := s.sessions.Redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.Int64("user_id", old.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !user.IsActive {
		s.logger.Info("token refresh blocked: inactive account", slog.Int64("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	result, err := s.issue(ctx, user, nil, client)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogSessionEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventTokenRefresh,
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
	})
	return result, nil
}

// Logout revokes the presented access token and, if given, its refresh token.
func (s *AuthService) Logout(ctx context.Context, claims *models.TokenClaims, refreshToken string) error {
	if err := s.revokeAccessToken(ctx, claims, "logout"); err != nil {
		return err
	}
	if err := s.sessions.RevokeOne(ctx, refreshToken); err != nil {
		return err
	}

	s.logger.Info("user logged out", slog.Int64("user_id", claims.UserID))
	s.auditLogger.LogSessionEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		UserID:    claims.UserID,
		Success:   true,
	})
	return nil
}

// LogoutAll revokes every refresh token of the user. With keepRefresh set the
// session it belongs to survives and the access token stays valid.
func (s *AuthService) LogoutAll(ctx context.Context, claims *models.TokenClaims, keepRefresh string) (int64, error) {
	n, err := s.sessions.RevokeAll(ctx, claims.UserID, keepRefresh)
	if err != nil {
		return 0, err
	}

	if keepRefresh == "" {
		if err := s.revokeAccessToken(ctx, claims, "logout_all"); err != nil {
			return 0, err
		}
	}

	s.logger.Info("user logged out from all devices", slog.Int64("user_id", claims.UserID), slog.Int64("sessions", n))
	s.auditLogger.LogSessionEvent(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogoutAll,
		UserID:    claims.UserID,
		Success:   true,
		Metadata:  map[string]string{"sessions_revoked": fmt.Sprint(n)},
	})
	return n, nil
}

// Register creates an account. The password policy is checked before
// anything is stored.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, models.ErrBadRequest
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.now()
	created, err := s.users.Create(ctx, &models.User{
		Email:             email,
		PasswordHash:      hashedPassword,
		FullName:          strings.TrimSpace(in.FullName),
		IsActive:          true,
		EmailVerified:     !s.config.RequireEmailVerification,
		PasswordChangedAt: &now,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.Int64("user_id", created.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventRegister, created.ID, "", nil)

	if !created.EmailVerified && s.verifier != nil {
		// The account exists either way; the user can ask for a new email.
		if err := s.verifier.SendVerificationEmail(ctx, created.ID, created.Email); err != nil {
			s.logger.Warn("verification email not sent", slog.Int64("user_id", created.ID), slog.Any("error", err))
		}
	}

	s.dispatchSync(created, in.Password)
	return created, nil
}

// ForgotPassword mails a reset link to active accounts. It reports success
// for any input so callers cannot learn which emails exist.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}

	token, claims, err := s.tokens.GeneratePasswordResetToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("failed to send password reset email", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil
	}

	s.logger.Info("password reset requested", slog.Int64("user_id", user.ID))
	return nil
}

// ResetPassword sets a new password from a reset token. The token works once
// and not at all after a later password change. Every session is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	claims, err := s.tokens.ValidatePasswordResetToken(token)
	if err != nil {
		return models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to load user for password reset", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !user.IsActive || claims.Email != user.Email {
		return models.ErrUnauthorized
	}
	// iat has second precision.
	if user.PasswordChangedAt != nil && claims.IssuedAt.Time.Before(user.PasswordChangedAt.Truncate(time.Second)) {
		s.logger.Info("reset token predates last password change", slog.Int64("user_id", user.ID))
		return models.ErrUnauthorized
	}

	consumed, err := s.revocations.RevokeToken(ctx, claims.ID, user.ID, models.TokenTypePasswordReset, claims.ExpiresAt.Time, "password_reset")
	if err != nil {
		s.logger.Error("failed to consume reset token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !consumed {
		return models.ErrUnauthorized
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Error("failed to update password", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if _, err := s.sessions.RevokeAll(ctx, user.ID, ""); err != nil {
		return err
	}

	s.logger.Info("password reset", slog.Int64("user_id", user.ID))
	s.auditLogger.LogAccountAction(ctx, pkglogger.EventPasswordReset, user.ID, "", nil)
	return nil
}

// issue mints an access token and a refresh token for user.
func (s *AuthService) issue(ctx context.Context, user *models.User, amr []string, client models.ClientInfo) (*LoginResult, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email, amr)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, stored, err := s.sessions.Create(ctx, user.ID, client)
	if err != nil {
		s.logger.Error("failed to create refresh token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("tokens issued", slog.Int64("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
		Metadata:  map[string]string{"amr": strings.Join(amr, ",")},
	})

	return &LoginResult{
		User: user,
		Tokens: &models.TokenPair{
			AccessToken:      accessToken,
			RefreshToken:     refreshToken,
			TokenType:        "bearer",
			ExpiresIn:        int64(s.tokens.AccessTokenExpiry().Seconds()),
			RefreshExpiresAt: stored.ExpiresAt,
		},
	}, nil
}

// recordFailure counts a failed first or second factor and logs a lockout.
func (s *AuthService) recordFailure(ctx context.Context, user *models.User, client models.ClientInfo) {
	updated, err := s.users.RecordFailedLogin(ctx, user.ID, s.config.MaxFailedLogins, s.config.LockoutDuration)
	if err != nil {
		s.logger.Error("failed to record failed login", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}

	if updated.IsLocked(s.now()) && !user.IsLocked(s.now()) {
		s.logger.Warn("account locked after repeated failures", slog.Int64("user_id", user.ID))
		s.auditLogger.LogAccountAction(ctx, pkglogger.EventAccountLocked, user.ID, client.IPAddress, map[string]string{
			"locked_until": updated.LockoutUntil.UTC().Format(time.RFC3339),
		})
	}
}

func (s *AuthService) clearFailures(ctx context.Context, user *models.User) error {
	if user.FailedLoginAttempts == 0 && user.LockoutUntil == nil {
		return nil
	}
	if err := s.users.ResetFailedLogins(ctx, user.ID); err != nil {
		s.logger.Error("failed to reset failed logins", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	user.FailedLoginAttempts = 0
	user.LockoutUntil = nil
	return nil
}

func (s *AuthService) revokeAccessToken(ctx context.Context, claims *models.TokenClaims, reason string) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if _, err := s.revocations.RevokeToken(ctx, claims.ID, claims.UserID, models.TokenTypeAccess, claims.ExpiresAt.Time, reason); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *AuthService) dispatchSync(user *models.User, password string) {
	if s.syncer == nil {
		return
	}
	s.syncer.Dispatch(models.SyncProfile{
		Email:       user.Email,
		FullName:    user.FullName,
		Password:    password,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
	})
}
