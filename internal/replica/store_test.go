package replica

import (
	"context"
	"sync"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(DBConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewStore(db)
}

func TestGetOrCreateByEmail_Creates(t *testing.T) {
	store := newTestStore(t)

	profile, created, err := store.GetOrCreateByEmail(context.Background(), models.SyncProfile{
		Email:    " Jane@Example.com ",
		FullName: "Jane",
		Password: "Str0ng!Pass",
		IsActive: true,
	})
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.NotEqual(t, "Str0ng!Pass", profile.PasswordHash)
	assert.NoError(t, pkgauth.ComparePassword(profile.PasswordHash, "Str0ng!Pass"))
}

func TestGetOrCreateByEmail_KeepsInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile, created, err := store.GetOrCreateByEmail(ctx, models.SyncProfile{Email: "off@example.com", IsActive: false})
	require.NoError(t, err)
	require.True(t, created)
	assert.False(t, profile.IsActive)

	stored, err := store.GetByEmail(ctx, "off@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.False(t, stored.IsSuperuser)
}

func TestGetOrCreateByEmail_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, created, err := store.GetOrCreateByEmail(ctx, models.SyncProfile{Email: "jane@example.com", FullName: "Jane", IsActive: true})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := store.GetOrCreateByEmail(ctx, models.SyncProfile{Email: "JANE@example.com", FullName: "Someone Else"})
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Jane", second.FullName)
}

func TestGetOrCreateByEmail_ConcurrentPushes(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	ids := make([]uint, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := store.GetOrCreateByEmail(context.Background(), models.SyncProfile{Email: "race@example.com", IsActive: true})
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByEmail(context.Background(), "ghost@example.com")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(DBConfig{Driver: "mysql"})

	assert.Error(t, err)
}
