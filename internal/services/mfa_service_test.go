package services

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mfaHarness struct {
	svc     *MFAService
	users   *memUsers
	codes   *MockRecoveryCodeRepository
	totpMgr *auth.TOTPManager
}

func newMFAServiceHarness(t *testing.T, users ...*models.User) *mfaHarness {
	t.Helper()
	logger := testLogger()
	h := &mfaHarness{
		users:   newMemUsers(users...),
		codes:   &MockRecoveryCodeRepository{},
		totpMgr: newTestTOTPManager(t),
	}
	h.users.codes = h.codes
	h.svc = NewMFAService(h.users.Repo(), h.codes, h.totpMgr, logger, pkglogger.NewAuditLogger(logger), MFAConfig{})
	return h
}

// enroll runs the real enrollment flow and returns the secret and recovery codes.
func (h *mfaHarness) enroll(t *testing.T, userID int64) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := h.svc.BeginEnrollment(ctx, userID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	resp, err := h.svc.ConfirmEnrollment(ctx, userID, code)
	require.NoError(t, err)
	return setup.Secret, resp.RecoveryCodes
}

// codeAtNextStep returns a code one step ahead so it is not a replay of the
// enrollment code.
func codeAtNextStep(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now().Add(30*time.Second))
	require.NoError(t, err)
	return code
}

// ============================================================================
// Enrollment
// ============================================================================

func TestMFAService_BeginEnrollment(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))

	setup, err := h.svc.BeginEnrollment(context.Background(), 1)

	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.OTPAuthURI, "otpauth://totp/")
	assert.Contains(t, setup.QRCode, "data:image/png;base64,")

	stored := h.users.get(1)
	assert.False(t, stored.MFAEnabled)
	assert.True(t, stored.HasPendingMFASecret())
	assert.NotContains(t, string(stored.TOTPSecretEncrypted), setup.Secret)
}

func TestMFAService_BeginEnrollment_ReplacesPendingSecret(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	ctx := context.Background()

	first, err := h.svc.BeginEnrollment(ctx, 1)
	require.NoError(t, err)
	second, err := h.svc.BeginEnrollment(ctx, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	// Only the newest secret confirms.
	code, err := totp.GenerateCode(second.Secret, time.Now())
	require.NoError(t, err)
	_, err = h.svc.ConfirmEnrollment(ctx, 1, code)
	assert.NoError(t, err)
}

func TestMFAService_BeginEnrollment_AlreadyEnabled(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	h.enroll(t, 1)

	_, err := h.svc.BeginEnrollment(context.Background(), 1)

	assert.ErrorIs(t, err, models.ErrMFAAlreadyEnabled)
}

func TestMFAService_InactiveUser(t *testing.T) {
	user := NewTestUser(1, "user@example.com", "User")
	user.IsActive = false
	h := newMFAServiceHarness(t, user)
	ctx := context.Background()

	_, err := h.svc.BeginEnrollment(ctx, 1)
	assert.ErrorIs(t, err, models.ErrAccountInactive)

	_, err = h.svc.Status(ctx, 1)
	assert.ErrorIs(t, err, models.ErrAccountInactive)

	err = h.svc.Disable(ctx, 1, "123456")
	assert.ErrorIs(t, err, models.ErrAccountInactive)
	assert.False(t, h.users.get(1).HasPendingMFASecret())
}

func TestMFAService_ConfirmEnrollment(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))

	_, codes := h.enroll(t, 1)

	require.Len(t, codes, 8)
	shape := regexp.MustCompile(`^[2-9A-HJKMNP-Z]{4}-[2-9A-HJKMNP-Z]{4}$`)
	for _, c := range codes {
		assert.Regexp(t, shape, c)
	}

	stored := h.users.get(1)
	assert.True(t, stored.MFAEnabled)
	assert.NotZero(t, stored.TOTPLastStep)

	remaining, err := h.codes.CountUnused(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 8, remaining)
}

func TestMFAService_ConfirmEnrollment_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not started", func(t *testing.T) {
		h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
		_, err := h.svc.ConfirmEnrollment(ctx, 1, "123456")
		assert.ErrorIs(t, err, models.ErrMFASetupRequired)
	})

	t.Run("wrong code", func(t *testing.T) {
		h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
		setup, err := h.svc.BeginEnrollment(ctx, 1)
		require.NoError(t, err)

		good, err := totp.GenerateCode(setup.Secret, time.Now())
		require.NoError(t, err)
		bad := "000000"
		if good == bad {
			bad = "111111"
		}

		_, err = h.svc.ConfirmEnrollment(ctx, 1, bad)
		assert.ErrorIs(t, err, models.ErrInvalidCode)
		assert.False(t, h.users.get(1).MFAEnabled)
	})

	t.Run("unknown user", func(t *testing.T) {
		h := newMFAServiceHarness(t)
		_, err := h.svc.ConfirmEnrollment(ctx, 99, "123456")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

// ============================================================================
// Status, disable and regeneration
// ============================================================================

func TestMFAService_Status(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	ctx := context.Background()

	status, err := h.svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.False(t, status.MFAEnabled)
	assert.False(t, status.EnrollmentPending)

	_, codes := h.enroll(t, 1)
	require.NoError(t, h.svc.ConsumeRecoveryCode(ctx, 1, codes[0]))

	status, err = h.svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.True(t, status.MFAEnabled)
	assert.NotNil(t, status.EnrolledAt)
	assert.Equal(t, 7, status.RecoveryCodesRemaining)
}

func TestMFAService_Disable(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	secret, _ := h.enroll(t, 1)

	err := h.svc.Disable(context.Background(), 1, codeAtNextStep(t, secret))

	require.NoError(t, err)
	stored := h.users.get(1)
	assert.False(t, stored.MFAEnabled)
	assert.Empty(t, stored.TOTPSecretEncrypted)
}

func TestMFAService_Disable_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not enabled", func(t *testing.T) {
		h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
		assert.ErrorIs(t, h.svc.Disable(ctx, 1, "123456"), models.ErrMFANotEnabled)
	})

	t.Run("enrollment code replayed", func(t *testing.T) {
		h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
		secret, _ := h.enroll(t, 1)
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		assert.ErrorIs(t, h.svc.Disable(ctx, 1, code), models.ErrInvalidCode)
		assert.True(t, h.users.get(1).MFAEnabled)
	})
}

func TestMFAService_RegenerateRecoveryCodes(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	ctx := context.Background()
	secret, oldCodes := h.enroll(t, 1)

	newCodes, err := h.svc.RegenerateRecoveryCodes(ctx, 1, codeAtNextStep(t, secret))

	require.NoError(t, err)
	assert.Len(t, newCodes, 8)
	assert.ErrorIs(t, h.svc.ConsumeRecoveryCode(ctx, 1, oldCodes[0]), models.ErrInvalidCode)
	assert.NoError(t, h.svc.ConsumeRecoveryCode(ctx, 1, newCodes[0]))
}

// ============================================================================
// Second factor checks
// ============================================================================

func TestMFAService_ConsumeRecoveryCode(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	ctx := context.Background()
	_, codes := h.enroll(t, 1)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"empty", "", models.ErrInvalidCode},
		{"unknown", "AAAA-BBBB", models.ErrInvalidCode},
		{"lower case without dash", strings.ToLower(strings.ReplaceAll(codes[2], "-", "")), nil},
		{"second use", codes[2], models.ErrInvalidCode},
		{"other code", codes[3], nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.svc.ConsumeRecoveryCode(ctx, 1, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMFAService_VerifyTOTP_ReplayGuard(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	ctx := context.Background()
	secret, _ := h.enroll(t, 1)
	code := codeAtNextStep(t, secret)

	require.NoError(t, h.svc.VerifyTOTP(ctx, h.users.get(1), code))
	assert.ErrorIs(t, h.svc.VerifyTOTP(ctx, h.users.get(1), code), models.ErrInvalidCode)
}

func TestMFAService_VerifyTOTP_Malformed(t *testing.T) {
	h := newMFAServiceHarness(t, NewTestUser(1, "user@example.com", "User"))
	h.enroll(t, 1)

	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		assert.ErrorIs(t, h.svc.VerifyTOTP(context.Background(), h.users.get(1), code), models.ErrInvalidCode, "code %q", code)
	}
}
