package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionService(repo RefreshTokenRepository) *SessionService {
	return NewSessionService(repo, testLogger(), SessionConfig{
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Retention:          24 * time.Hour,
	})
}

// ============================================================================
// Refresh tokens
// ============================================================================

func TestSessionService_Create_StoresHashOnly(t *testing.T) {
	repo := &MockRefreshTokenRepository{}
	svc := newTestSessionService(repo)

	plain, stored, err := svc.Create(context.Background(), 1, testClient)

	require.NoError(t, err)
	assert.NotEmpty(t, plain)
	assert.Equal(t, auth.HashToken(plain), stored.TokenHash)
	assert.Equal(t, testClient.UserAgent, stored.UserAgent)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), stored.ExpiresAt, time.Minute)
}

func TestSessionService_Create_RepoError(t *testing.T) {
	repo := &MockRefreshTokenRepository{
		CreateFunc: func(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
			return nil, errors.New("boom")
		},
	}
	svc := newTestSessionService(repo)

	_, _, err := svc.Create(context.Background(), 1, testClient)

	assert.Error(t, err)
}

func TestSessionService_Redeem_OnlyOnce(t *testing.T) {
	svc := newTestSessionService(&MockRefreshTokenRepository{})
	ctx := context.Background()
	plain, _, err := svc.Create(ctx, 1, testClient)
	require.NoError(t, err)

	token, err := svc.Redeem(ctx, plain)
	require.NoError(t, err)
	assert.Equal(t, int64(1), token.UserID)

	_, err = svc.Redeem(ctx, plain)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSessionService_Redeem_Expired(t *testing.T) {
	svc := newTestSessionService(&MockRefreshTokenRepository{})
	svc.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	plain, _, err := svc.Create(context.Background(), 1, testClient)
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), plain)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSessionService_ListActive_FlagsCurrent(t *testing.T) {
	svc := newTestSessionService(&MockRefreshTokenRepository{})
	ctx := context.Background()

	first, _, err := svc.Create(ctx, 1, testClient)
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, 1, models.ClientInfo{UserAgent: "other"})
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, 2, testClient)
	require.NoError(t, err)

	sessions, err := svc.ListActive(ctx, 1, first)

	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "other", sessions[0].UserAgent)
	assert.False(t, sessions[0].Current)
	assert.True(t, sessions[1].Current)
}

func TestSessionService_RevokeByID(t *testing.T) {
	svc := newTestSessionService(&MockRefreshTokenRepository{})
	ctx := context.Background()
	plain, stored, err := svc.Create(ctx, 1, testClient)
	require.NoError(t, err)

	// Another user's id is indistinguishable from a missing one.
	assert.ErrorIs(t, svc.RevokeByID(ctx, 2, stored.ID), models.ErrNotFound)

	require.NoError(t, svc.RevokeByID(ctx, 1, stored.ID))
	_, err = svc.Redeem(ctx, plain)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSessionService_RevokeOne_Idempotent(t *testing.T) {
	svc := newTestSessionService(&MockRefreshTokenRepository{})
	ctx := context.Background()

	assert.NoError(t, svc.RevokeOne(ctx, ""))
	assert.NoError(t, svc.RevokeOne(ctx, "never-issued"))
}

func TestSessionService_Sweep(t *testing.T) {
	repo := &MockRefreshTokenRepository{}
	svc := newTestSessionService(repo)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }
	_, _, err := svc.Create(ctx, 1, testClient)
	require.NoError(t, err)
	svc.now = time.Now
	_, _, err = svc.Create(ctx, 1, testClient)
	require.NoError(t, err)

	n, err := svc.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, repo.ActiveCount(1))
}

// ============================================================================
// Trusted devices
// ============================================================================

func TestTrustedDeviceService_Lookup(t *testing.T) {
	svc := NewTrustedDeviceService(&MockTrustedDeviceRepository{}, testLogger(), 30*24*time.Hour)
	ctx := context.Background()

	plain, device, err := svc.Create(ctx, 1, testClient)
	require.NoError(t, err)
	assert.Len(t, plain, 86) // 64 bytes, unpadded base64url
	assert.Equal(t, auth.HashToken(plain), device.TokenHash)

	found, err := svc.Lookup(ctx, 1, plain)
	require.NoError(t, err)
	assert.Equal(t, device.ID, found.ID)

	_, err = svc.Lookup(ctx, 2, plain)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Lookup(ctx, 1, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTrustedDeviceService_Lookup_Expired(t *testing.T) {
	svc := NewTrustedDeviceService(&MockTrustedDeviceRepository{}, testLogger(), time.Hour)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	plain, _, err := svc.Create(ctx, 1, testClient)
	require.NoError(t, err)
	svc.now = time.Now

	_, err = svc.Lookup(ctx, 1, plain)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTrustedDeviceService_DeleteAndList(t *testing.T) {
	svc := NewTrustedDeviceService(&MockTrustedDeviceRepository{}, testLogger(), time.Hour)
	ctx := context.Background()

	_, first, err := svc.Create(ctx, 1, testClient)
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, 1, testClient)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, 2, first.ID), models.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, 1, first.ID))

	devices, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, devices, 1)

	n, err := svc.DeleteAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
