package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc             func(ctx context.Context, id int64) (*models.User, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.User, error)
	ListFunc                func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CountFunc               func(ctx context.Context) (int64, error)
	CreateFunc              func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc              func(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	UpdatePasswordFunc      func(ctx context.Context, id int64, passwordHash string) error
	RecordFailedLoginFunc   func(ctx context.Context, id int64, threshold int, lockout time.Duration) (*models.User, error)
	ResetFailedLoginsFunc   func(ctx context.Context, id int64) error
	MarkEmailVerifiedFunc   func(ctx context.Context, id int64) error
	SetPendingMFASecretFunc func(ctx context.Context, id int64, encrypted, nonce []byte) error
	EnableMFAFunc           func(ctx context.Context, id int64, step int64, codeHashes []string) error
	DisableMFAFunc          func(ctx context.Context, id int64) error
	AdvanceTOTPStepFunc     func(ctx context.Context, id int64, step int64) (bool, error)
	DeactivateFunc          func(ctx context.Context, id int64) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, upd)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) RecordFailedLogin(ctx context.Context, id int64, threshold int, lockout time.Duration) (*models.User, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, id, threshold, lockout)
	}
	return &models.User{ID: id, FailedLoginAttempts: 1}, nil
}

func (m *MockUserRepository) ResetFailedLogins(ctx context.Context, id int64) error {
	if m.ResetFailedLoginsFunc != nil {
		return m.ResetFailedLoginsFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) SetPendingMFASecret(ctx context.Context, id int64, encrypted, nonce []byte) error {
	if m.SetPendingMFASecretFunc != nil {
		return m.SetPendingMFASecretFunc(ctx, id, encrypted, nonce)
	}
	return nil
}

func (m *MockUserRepository) EnableMFA(ctx context.Context, id int64, step int64, codeHashes []string) error {
	if m.EnableMFAFunc != nil {
		return m.EnableMFAFunc(ctx, id, step, codeHashes)
	}
	return nil
}

func (m *MockUserRepository) DisableMFA(ctx context.Context, id int64) error {
	if m.DisableMFAFunc != nil {
		return m.DisableMFAFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) AdvanceTOTPStep(ctx context.Context, id int64, step int64) (bool, error) {
	if m.AdvanceTOTPStepFunc != nil {
		return m.AdvanceTOTPStepFunc(ctx, id, step)
	}
	return true, nil
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id int64) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id)
	}
	return nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing.
// Without overrides it behaves like the real table: the first revocation of a
// jti inserts, later ones report false.
type MockTokenRevocationRepository struct {
	RevokeTokenFunc    func(ctx context.Context, jti string, userID int64, tokenType string, expiresAt time.Time, reason string) (bool, error)
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)

	mu      sync.Mutex
	revoked map[string]string // jti -> token type
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti string, userID int64, tokenType string, expiresAt time.Time, reason string) (bool, error) {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, tokenType, expiresAt, reason)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = make(map[string]string)
	}
	if _, ok := m.revoked[jti]; ok {
		return false, nil
	}
	m.revoked[jti] = tokenType
	return true, nil
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsTokenRevokedFunc != nil {
		return m.IsTokenRevokedFunc(ctx, jti)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

// RevokedTypes lists the token types recorded by the default implementation.
func (m *MockTokenRevocationRepository) RevokedTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.revoked))
	for _, t := range m.revoked {
		types = append(types, t)
	}
	return types
}

// MockRefreshTokenRepository is an in-memory RefreshTokenRepository.
type MockRefreshTokenRepository struct {
	CreateFunc func(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)

	mu     sync.Mutex
	nextID int64
	tokens []*models.RefreshToken
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := *token
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	m.tokens = append(m.tokens, &stored)
	out := stored
	return &out, nil
}

func (m *MockRefreshTokenRepository) Redeem(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.TokenHash == tokenHash && t.IsValid(now) {
			t.Revoked = true
			t.RevokedAt = &now
			out := *t
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockRefreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.TokenHash == tokenHash && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRefreshTokenRepository) RevokeByID(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if t.ID == id && t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &now
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, exceptHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var n int64
	for _, t := range m.tokens {
		if t.UserID == userID && !t.Revoked && t.TokenHash != exceptHash {
			t.Revoked = true
			t.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (m *MockRefreshTokenRepository) ListActive(ctx context.Context, userID int64) ([]*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []*models.RefreshToken
	for i := len(m.tokens) - 1; i >= 0; i-- {
		t := m.tokens[i]
		if t.UserID == userID && t.IsValid(now) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MockRefreshTokenRepository) DeleteStale(ctx context.Context, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-retention)
	kept := m.tokens[:0]
	var n int64
	for _, t := range m.tokens {
		if t.ExpiresAt.Before(cutoff) || (t.RevokedAt != nil && t.RevokedAt.Before(cutoff)) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.tokens = kept
	return n, nil
}

// ActiveCount counts live tokens for userID.
func (m *MockRefreshTokenRepository) ActiveCount(userID int64) int {
	tokens, _ := m.ListActive(context.Background(), userID)
	return len(tokens)
}

// MockTrustedDeviceRepository is an in-memory TrustedDeviceRepository.
type MockTrustedDeviceRepository struct {
	mu      sync.Mutex
	nextID  int64
	devices []*models.TrustedDevice
}

func (m *MockTrustedDeviceRepository) Create(ctx context.Context, device *models.TrustedDevice) (*models.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := *device
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	m.devices = append(m.devices, &stored)
	out := stored
	return &out, nil
}

func (m *MockTrustedDeviceRepository) FindActive(ctx context.Context, userID int64, tokenHash string) (*models.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.UserID == userID && d.TokenHash == tokenHash && !d.IsExpired(time.Now()) {
			out := *d
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockTrustedDeviceRepository) List(ctx context.Context, userID int64) ([]*models.TrustedDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TrustedDevice
	for _, d := range m.devices {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MockTrustedDeviceRepository) Delete(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.devices {
		if d.ID == id && d.UserID == userID {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *MockTrustedDeviceRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.devices[:0]
	var n int64
	for _, d := range m.devices {
		if d.UserID == userID {
			n++
			continue
		}
		kept = append(kept, d)
	}
	m.devices = kept
	return n, nil
}

func (m *MockTrustedDeviceRepository) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.devices[:0]
	var n int64
	for _, d := range m.devices {
		if d.IsExpired(time.Now()) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	m.devices = kept
	return n, nil
}

// MockRecoveryCodeRepository is an in-memory RecoveryCodeRepository.
type MockRecoveryCodeRepository struct {
	mu     sync.Mutex
	nextID int64
	codes  []*models.RecoveryCode
}

func (m *MockRecoveryCodeRepository) Replace(ctx context.Context, userID int64, codeHashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.codes[:0]
	for _, c := range m.codes {
		if c.UserID != userID {
			kept = append(kept, c)
		}
	}
	m.codes = kept
	for _, h := range codeHashes {
		m.nextID++
		m.codes = append(m.codes, &models.RecoveryCode{ID: m.nextID, UserID: userID, CodeHash: h, CreatedAt: time.Now()})
	}
	return nil
}

func (m *MockRecoveryCodeRepository) ListUnused(ctx context.Context, userID int64) ([]*models.RecoveryCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.RecoveryCode
	for _, c := range m.codes {
		if c.UserID == userID && !c.Used {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRecoveryCodeRepository) MarkUsed(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.ID == id && !c.Used {
			now := time.Now()
			c.Used = true
			c.UsedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRecoveryCodeRepository) CountUnused(ctx context.Context, userID int64) (int, error) {
	codes, _ := m.ListUnused(ctx, userID)
	return len(codes), nil
}

// MockEmailVerificationRepository implements EmailVerificationRepository for testing
type MockEmailVerificationRepository struct {
	CreateFunc            func(ctx context.Context, userID int64, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error)
	GetByTokenHashFunc    func(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error)
	MarkAsUsedFunc        func(ctx context.Context, id int64) error
	DeleteByUserIDFunc    func(ctx context.Context, userID int64) error
	CleanupExpiredFunc    func(ctx context.Context, retention time.Duration) (int64, error)
	GetPendingByEmailFunc func(ctx context.Context, email string) (*models.EmailVerificationToken, error)
}

func (m *MockEmailVerificationRepository) Create(ctx context.Context, userID int64, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, tokenHash, email, expiresAt)
	}
	return &models.EmailVerificationToken{ID: 1, UserID: userID, TokenHash: tokenHash, Email: email, ExpiresAt: expiresAt}, nil
}

func (m *MockEmailVerificationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmailVerificationRepository) MarkAsUsed(ctx context.Context, id int64) error {
	if m.MarkAsUsedFunc != nil {
		return m.MarkAsUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockEmailVerificationRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	if m.DeleteByUserIDFunc != nil {
		return m.DeleteByUserIDFunc(ctx, userID)
	}
	return nil
}

func (m *MockEmailVerificationRepository) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx, retention)
	}
	return 0, nil
}

func (m *MockEmailVerificationRepository) GetPendingByEmail(ctx context.Context, email string) (*models.EmailVerificationToken, error) {
	if m.GetPendingByEmailFunc != nil {
		return m.GetPendingByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

// MockEmailService records what would have been mailed.
type MockEmailService struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error

	mu          sync.Mutex
	Resets      []SentEmail
	Validations []SentEmail
}

// SentEmail is one captured message.
type SentEmail struct {
	Email string
	Token string
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Validations = append(m.Validations, SentEmail{Email: email, Token: token})
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, SentEmail{Email: email, Token: token})
	return nil
}

// MockVerificationSender implements VerificationSender for testing
type MockVerificationSender struct {
	mu    sync.Mutex
	Calls []int64
	Err   error
}

func (m *MockVerificationSender) SendVerificationEmail(ctx context.Context, userID int64, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, userID)
	return m.Err
}

// MockProfileDispatcher records dispatched profiles.
type MockProfileDispatcher struct {
	mu       sync.Mutex
	Profiles []models.SyncProfile
}

func (m *MockProfileDispatcher) Dispatch(profile models.SyncProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Profiles = append(m.Profiles, profile)
}

// MockSessionRevoker implements SessionRevoker for testing
type MockSessionRevoker struct {
	RevokeAllFunc func(ctx context.Context, userID int64, exceptPlain string) (int64, error)
	Calls         []int64
}

func (m *MockSessionRevoker) RevokeAll(ctx context.Context, userID int64, exceptPlain string) (int64, error) {
	m.Calls = append(m.Calls, userID)
	if m.RevokeAllFunc != nil {
		return m.RevokeAllFunc(ctx, userID, exceptPlain)
	}
	return 0, nil
}

// NewTestUser creates an active, verified user for tests.
func NewTestUser(id int64, email, fullName string) *models.User {
	now := time.Now()
	return &models.User{
		ID:            id,
		Email:         email,
		FullName:      fullName,
		IsActive:      true,
		EmailVerified: true,
		Roles:         []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
