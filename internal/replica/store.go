package replica

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Profile is the replica's local copy of an identity-service user.
type Profile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	IsSuperuser  bool      `gorm:"not null" json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Open connects with the configured driver and migrates the profile table.
func Open(cfg DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&Profile{}); err != nil {
		return nil, fmt.Errorf("failed to migrate profiles: %w", err)
	}
	return db, nil
}

// Store persists profiles.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetOrCreateByEmail is idempotent by email: an existing profile is returned
// untouched, otherwise one is created with the password hashed locally.
func (s *Store) GetOrCreateByEmail(ctx context.Context, in models.SyncProfile) (*Profile, bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	var hash string
	if in.Password != "" {
		if hash, err = pkgauth.HashPassword(in.Password); err != nil {
			return nil, false, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	profile := &Profile{
		Email:        email,
		PasswordHash: hash,
		FullName:     in.FullName,
		IsActive:     in.IsActive,
		IsSuperuser:  in.IsSuperuser,
	}

	// A concurrent push for the same email loses the insert and reads the winner.
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(profile)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		existing, err := s.GetByEmail(ctx, email)
		return existing, false, err
	}
	return profile, true, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	var p Profile
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
