package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(repo UserRepository, sessions SessionRevoker, syncer ProfileDispatcher) *UserService {
	logger := testLogger()
	return NewUserService(repo, sessions, syncer, logger, pkglogger.NewAuditLogger(logger))
}

// ============================================================================
// Get and List
// ============================================================================

func TestUserService_Get(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{"found", nil, nil},
		{"not found", models.ErrNotFound, models.ErrNotFound},
		{"database error", errors.New("connection reset"), models.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockUserRepository{
				GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
					if tt.repoErr != nil {
						return nil, tt.repoErr
					}
					return NewTestUser(id, "user@example.com", "User"), nil
				},
			}
			svc := newTestUserService(repo, &MockSessionRevoker{}, nil)

			user, err := svc.Get(context.Background(), 5)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(5), user.ID)
		})
	}
}

func TestUserService_List(t *testing.T) {
	repo := &MockUserRepository{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 20, offset)
			return []*models.User{NewTestUser(1, "a@example.com", "A"), NewTestUser(2, "b@example.com", "B")}, nil
		},
		CountFunc: func(ctx context.Context) (int64, error) {
			return 42, nil
		},
	}
	svc := newTestUserService(repo, &MockSessionRevoker{}, nil)

	users, total, err := svc.List(context.Background(), 10, 20)

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, int64(42), total)
}

func TestUserService_List_DatabaseError(t *testing.T) {
	repo := &MockUserRepository{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.User, error) {
			return nil, errors.New("boom")
		},
	}
	svc := newTestUserService(repo, &MockSessionRevoker{}, nil)

	_, _, err := svc.List(context.Background(), 10, 0)

	assert.ErrorIs(t, err, models.ErrInternalServer)
}

// ============================================================================
// Create
// ============================================================================

func TestUserService_Create(t *testing.T) {
	store := newMemUsers()
	syncer := &MockProfileDispatcher{}
	svc := newTestUserService(store.Repo(), &MockSessionRevoker{}, syncer)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:         "Admin@Example.com",
		Password:      testPassword,
		FullName:      "Admin",
		IsSuperuser:   true,
		EmailVerified: true,
		Roles:         []string{"admin"},
	})

	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsActive)
	assert.Equal(t, []string{"admin"}, user.Roles)
	assert.NoError(t, pkgauth.ComparePassword(user.PasswordHash, testPassword))

	require.Len(t, syncer.Profiles, 1)
	assert.Equal(t, models.SyncProfile{
		Email:       "admin@example.com",
		FullName:    "Admin",
		Password:    testPassword,
		IsActive:    true,
		IsSuperuser: true,
	}, syncer.Profiles[0])
}

func TestUserService_Create_Inactive(t *testing.T) {
	store := newMemUsers()
	syncer := &MockProfileDispatcher{}
	svc := newTestUserService(store.Repo(), &MockSessionRevoker{}, syncer)

	inactive := false
	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:    "parked@example.com",
		Password: testPassword,
		IsActive: &inactive,
	})

	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.False(t, store.get(user.ID).IsActive)
	require.Len(t, syncer.Profiles, 1)
	assert.False(t, syncer.Profiles[0].IsActive)
}

func TestUserService_Create_Errors(t *testing.T) {
	existing := NewTestUser(1, "user@example.com", "User")

	tests := []struct {
		name     string
		input    CreateUserInput
		checkErr func(t *testing.T, err error)
	}{
		{
			name:  "duplicate email",
			input: CreateUserInput{Email: "USER@example.com", Password: testPassword},
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, models.ErrConflict)
			},
		},
		{
			name:  "weak password",
			input: CreateUserInput{Email: "new@example.com", Password: "weak"},
			checkErr: func(t *testing.T, err error) {
				var policyErr *pkgauth.PasswordValidationError
				assert.ErrorAs(t, err, &policyErr)
			},
		},
		{
			name:  "blank email",
			input: CreateUserInput{Email: "  ", Password: testPassword},
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, models.ErrBadRequest)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &MockProfileDispatcher{}
			svc := newTestUserService(newMemUsers(existing).Repo(), &MockSessionRevoker{}, syncer)

			user, err := svc.Create(context.Background(), tt.input)

			tt.checkErr(t, err)
			assert.Nil(t, user)
			assert.Empty(t, syncer.Profiles)
		})
	}
}

func TestUserService_EnsureSuperuser(t *testing.T) {
	store := newMemUsers()
	svc := newTestUserService(store.Repo(), &MockSessionRevoker{}, nil)
	ctx := context.Background()

	user, created, err := svc.EnsureSuperuser(ctx, "root@example.com", testPassword)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.EmailVerified)

	again, created, err := svc.EnsureSuperuser(ctx, "root@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

// ============================================================================
// Updates
// ============================================================================

func TestUserService_UpdateProfile_Name(t *testing.T) {
	user := newPasswordUser(t, 1, "user@example.com")
	repo := newMemUsers(user).Repo()
	repo.UpdateFunc = func(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
		require.NotNil(t, upd.FullName)
		u := NewTestUser(id, "user@example.com", *upd.FullName)
		return u, nil
	}
	sessions := &MockSessionRevoker{}
	svc := newTestUserService(repo, sessions, nil)

	name := "  New Name "
	updated, err := svc.UpdateProfile(context.Background(), 1, ProfileUpdate{FullName: &name}, "")

	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
	assert.Empty(t, sessions.Calls)
}

func TestUserService_UpdateProfile_Password(t *testing.T) {
	user := newPasswordUser(t, 1, "user@example.com")
	store := newMemUsers(user)
	sessions := &MockSessionRevoker{
		RevokeAllFunc: func(ctx context.Context, userID int64, exceptPlain string) (int64, error) {
			assert.Equal(t, "current-refresh", exceptPlain)
			return 2, nil
		},
	}
	svc := newTestUserService(store.Repo(), sessions, nil)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, 1, ProfileUpdate{CurrentPassword: "wrong", NewPassword: "BrandNewPassw0rd!"}, "current-refresh")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Empty(t, sessions.Calls)

	_, err = svc.UpdateProfile(ctx, 1, ProfileUpdate{CurrentPassword: testPassword, NewPassword: "weak"}, "current-refresh")
	var policyErr *pkgauth.PasswordValidationError
	assert.ErrorAs(t, err, &policyErr)

	_, err = svc.UpdateProfile(ctx, 1, ProfileUpdate{CurrentPassword: testPassword, NewPassword: "BrandNewPassw0rd!"}, "current-refresh")
	require.NoError(t, err)
	assert.NoError(t, pkgauth.ComparePassword(store.get(1).PasswordHash, "BrandNewPassw0rd!"))
	assert.Equal(t, []int64{1}, sessions.Calls)
}

func TestUserService_UpdateProfile_InactiveUser(t *testing.T) {
	user := newPasswordUser(t, 7, "off@example.com")
	user.IsActive = false
	store := newMemUsers(user)
	sessions := &MockSessionRevoker{}
	svc := newTestUserService(store.Repo(), sessions, nil)

	name := "Renamed"
	_, err := svc.UpdateProfile(context.Background(), 7, ProfileUpdate{
		FullName:        &name,
		CurrentPassword: testPassword,
		NewPassword:     "N3w!Passw0rdX",
	}, "")

	assert.ErrorIs(t, err, models.ErrAccountInactive)
	assert.NoError(t, pkgauth.ComparePassword(store.get(7).PasswordHash, testPassword))
	assert.Equal(t, "Test User", store.get(7).FullName)
	assert.Empty(t, sessions.Calls)
}

func TestUserService_AdminUpdate(t *testing.T) {
	var got models.UserUpdate
	repo := &MockUserRepository{
		UpdateFunc: func(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
			got = upd
			return NewTestUser(id, "user@example.com", "User"), nil
		},
	}
	svc := newTestUserService(repo, &MockSessionRevoker{}, nil)

	admin := true
	_, err := svc.AdminUpdate(context.Background(), 1, 2, models.UserUpdate{IsSuperuser: &admin, Roles: []string{"ops"}})

	require.NoError(t, err)
	require.NotNil(t, got.IsSuperuser)
	assert.True(t, *got.IsSuperuser)
	assert.Equal(t, []string{"ops"}, got.Roles)
}

func TestUserService_AdminUpdate_DeactivateGoesThroughDeactivate(t *testing.T) {
	deactivated := int64(0)
	repo := &MockUserRepository{
		DeactivateFunc: func(ctx context.Context, id int64) error {
			deactivated = id
			return nil
		},
		UpdateFunc: func(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
			assert.Nil(t, upd.IsActive)
			u := NewTestUser(id, "user@example.com", "User")
			u.IsActive = false
			return u, nil
		},
	}
	svc := newTestUserService(repo, &MockSessionRevoker{}, nil)

	inactive := false
	user, err := svc.AdminUpdate(context.Background(), 1, 2, models.UserUpdate{IsActive: &inactive})

	require.NoError(t, err)
	assert.Equal(t, int64(2), deactivated)
	assert.False(t, user.IsActive)
}

func TestUserService_Deactivate(t *testing.T) {
	tests := []struct {
		name    string
		actor   int64
		target  int64
		repoErr error
		wantErr error
	}{
		{"success", 1, 2, nil, nil},
		{"self", 2, 2, nil, models.ErrForbidden},
		{"operator without actor", 0, 2, nil, nil},
		{"missing", 1, 9, models.ErrNotFound, models.ErrNotFound},
		{"database error", 1, 2, errors.New("boom"), models.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockUserRepository{
				DeactivateFunc: func(ctx context.Context, id int64) error {
					return tt.repoErr
				},
			}
			svc := newTestUserService(repo, &MockSessionRevoker{}, nil)

			err := svc.Deactivate(context.Background(), tt.actor, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUserService_Unlock(t *testing.T) {
	user := NewTestUser(1, "user@example.com", "User")
	user.FailedLoginAttempts = 2
	store := newMemUsers(user)
	svc := newTestUserService(store.Repo(), &MockSessionRevoker{}, nil)

	require.NoError(t, svc.Unlock(context.Background(), 1))
	assert.Equal(t, 0, store.get(1).FailedLoginAttempts)

	assert.ErrorIs(t, svc.Unlock(context.Background(), 99), models.ErrNotFound)
}
