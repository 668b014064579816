package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/migrations"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// DBRunner executes commands against the database described by the environment.
type DBRunner struct {
	logger *slog.Logger
}

func NewDBRunner(logger *slog.Logger) *DBRunner {
	return &DBRunner{logger: logger}
}

// Migrate runs a goose command with the embedded migrations over lib/pq.
func (r *DBRunner) Migrate(ctx context.Context, command string, args ...string) error {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", dbCfg.URL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db, ".", args...)
}

// stack is the subset of the server wiring the user commands need.
type stack struct {
	cfg      *config.Config
	db       *database.DB
	users    *repositories.UserRepository
	service  *services.UserService
	syncer   *services.ProfileSyncer
	sessions *services.SessionService
}

func (r *DBRunner) open() (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(&cfg.Database, r.logger)
	if err != nil {
		return nil, err
	}

	userRepo := repositories.NewUserRepository(db)
	sessions := services.NewSessionService(repositories.NewRefreshTokenRepository(db), r.logger, services.SessionConfig{
		RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
		Retention:          cfg.Auth.SessionRetention,
	})
	syncer := services.NewProfileSyncer(services.SyncConfig{
		Targets:        cfg.Sync.Targets,
		Timeout:        cfg.Sync.Timeout,
		FailureLogSize: cfg.Sync.FailureLogSize,
		APIKey:         cfg.Sync.APIKey,
	}, &http.Client{}, r.logger)

	return &stack{
		cfg:      cfg,
		db:       db,
		users:    userRepo,
		service:  services.NewUserService(userRepo, sessions, syncer, r.logger, pkglogger.NewAuditLogger(r.logger)),
		syncer:   syncer,
		sessions: sessions,
	}, nil
}

// CreateSuperuser ensures the superuser and waits for its profile push.
func (r *DBRunner) CreateSuperuser(ctx context.Context, email, password string) (bool, error) {
	s, err := r.open()
	if err != nil {
		return false, err
	}
	defer s.db.Close()

	_, created, err := s.service.EnsureSuperuser(ctx, email, password)
	if err != nil {
		return false, err
	}
	if err := s.syncer.Wait(ctx); err != nil {
		r.logger.Warn("profile sync did not finish", slog.Any("error", err))
	}
	return created, nil
}

func (r *DBRunner) Unlock(ctx context.Context, email string) error {
	s, err := r.open()
	if err != nil {
		return err
	}
	defer s.db.Close()

	user, err := s.users.GetByEmail(ctx, services.NormalizeEmail(email))
	if err != nil {
		return err
	}
	return s.service.Unlock(ctx, user.ID)
}

// Prune runs one pass of the same sweep set the server runs on its ticker.
func (r *DBRunner) Prune(ctx context.Context) (map[string]int64, error) {
	s, err := r.open()
	if err != nil {
		return nil, err
	}
	defer s.db.Close()

	devices := services.NewTrustedDeviceService(repositories.NewTrustedDeviceRepository(s.db), r.logger, s.cfg.Auth.TrustedDeviceExpiry)
	verification := services.NewEmailVerificationService(
		repositories.NewEmailVerificationRepository(s.db),
		s.users,
		services.NewLogEmailService(r.logger),
		r.logger,
		pkglogger.NewAuditLogger(r.logger),
		s.cfg.Email.VerificationExpiry,
		s.cfg.Email.ResendCooldown,
	)

	tasks := background.SecurityTasks(s.sessions, repositories.NewTokenRevocationRepository(s.db), devices, verification, s.cfg.Auth.SessionRetention)
	return background.NewCleanupManager(r.logger, s.cfg.Auth.CleanupInterval, tasks...).RunOnce(ctx), nil
}
