package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	middlewareCustom "github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)
	refreshRepo := repositories.NewRefreshTokenRepository(db)
	deviceRepo := repositories.NewTrustedDeviceRepository(db)
	recoveryRepo := repositories.NewRecoveryCodeRepository(db)
	emailVerificationRepo := repositories.NewEmailVerificationRepository(db)

	// Token and MFA primitives
	tokenManager := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:        cfg.Auth.JWTSecret,
		ChallengeSecret:     cfg.Auth.MFAChallengeSecret,
		PasswordResetSecret: cfg.Auth.PasswordResetSecret,
		AccessExpiry:        cfg.Auth.AccessTokenExpiry,
		ChallengeExpiry:     cfg.Auth.MFAChallengeExpiry,
		PasswordResetExpiry: cfg.Auth.PasswordResetExpiry,
		Issuer:              cfg.Auth.Issuer,
		Audience:            cfg.Auth.Audience,
	})

	totpManager, err := auth.NewTOTPManager(cfg.MFA.EncryptionKey, cfg.MFA.Issuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	timingDelay := auth.NewTimingDelay(auth.DefaultTimingConfig())

	// Email delivery: SES when enabled, otherwise links are logged
	var emailService services.EmailService = services.NewLogEmailService(logger)
	if cfg.Email.Enabled {
		sesCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ses, err := services.NewAWSSESEmailService(sesCtx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.BaseURL, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = ses
	}

	// Initialize services
	syncer := services.NewProfileSyncer(services.SyncConfig{
		Targets:        cfg.Sync.Targets,
		Timeout:        cfg.Sync.Timeout,
		FailureLogSize: cfg.Sync.FailureLogSize,
		APIKey:         cfg.Sync.APIKey,
	}, &http.Client{}, logger)

	sessionService := services.NewSessionService(refreshRepo, logger, services.SessionConfig{
		RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
		Retention:          cfg.Auth.SessionRetention,
	})
	deviceService := services.NewTrustedDeviceService(deviceRepo, logger, cfg.Auth.TrustedDeviceExpiry)
	mfaService := services.NewMFAService(userRepo, recoveryRepo, totpManager, logger, auditLogger, services.MFAConfig{
		RecoveryCodeCount: cfg.MFA.RecoveryCodeCount,
	})
	emailVerificationService := services.NewEmailVerificationService(
		emailVerificationRepo,
		userRepo,
		emailService,
		logger,
		auditLogger,
		cfg.Email.VerificationExpiry,
		cfg.Email.ResendCooldown,
	)
	userService := services.NewUserService(userRepo, sessionService, syncer, logger, auditLogger)
	authService := services.NewAuthService(services.AuthServiceDeps{
		Users:       userRepo,
		Revocations: revokeRepo,
		Tokens:      tokenManager,
		Sessions:    sessionService,
		Devices:     deviceService,
		MFA:         mfaService,
		Verifier:    emailVerificationService,
		Mailer:      emailService,
		Syncer:      syncer,
		Timing:      timingDelay,
		Logger:      logger,
		AuditLogger: auditLogger,
	}, services.AuthConfig{
		MaxFailedLogins:          cfg.Auth.MaxFailedLogins,
		LockoutDuration:          cfg.Auth.LockoutDuration,
		RequireEmailVerification: cfg.Auth.RequireEmailVerification,
	})

	var googleProvider handlers.GoogleServiceInterface
	if cfg.Google.Enabled() {
		oidcCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		google, err := services.NewGoogleAuthService(oidcCtx, services.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		}, logger)
		cancel()
		if err != nil {
			logger.Error("google sign-in disabled", slog.Any("error", err))
		} else {
			googleProvider = google
		}
	}

	// Bootstrap first superuser if configured
	if cfg.Bootstrap.SuperuserEmail != "" && cfg.Bootstrap.SuperuserPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, created, err := userService.EnsureSuperuser(ctx, cfg.Bootstrap.SuperuserEmail, cfg.Bootstrap.SuperuserPassword); err != nil {
			logger.Error("failed to ensure superuser", slog.Any("error", err))
		} else if created {
			logger.Info("superuser created")
		}
		cancel()
	}

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	cookies := handlers.CookieSettings{
		Cookie: auth.CookieConfig{
			Domain:   cfg.Auth.CookieDomain,
			Secure:   cfg.Auth.CookieSecure,
			SameSite: cfg.Auth.CookieSameSite,
		},
		RefreshTTL: cfg.Auth.RefreshTokenExpiry,
		DeviceTTL:  cfg.Auth.TrustedDeviceExpiry,
	}

	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(authService, emailVerificationService, ipConfig, cookies),
		Sessions: handlers.NewSessionHandler(sessionService, deviceService),
		MFA:      handlers.NewMFAHandler(mfaService, logger),
		Users:    handlers.NewUserHandler(userService),
		Mgmt:     handlers.NewManagementHandler(userService, sessionService, syncer),
		Google:   handlers.NewGoogleHandler(googleProvider, authService, ipConfig, cookies),
		Health:   handlers.NewHealthHandler(db, logger),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, h, routes.Security{
		Tokens:           tokenManager,
		Revocations:      revokeRepo,
		Revocation:       auth.RevocationConfig{FailClosed: cfg.Server.Env == "production"},
		UserRepo:         userRepo,
		ManagementAPIKey: cfg.Server.ManagementAPIKey,
		AuthRateLimit:    middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.AuthRateLimit, IPConfig: ipConfig},
		UserRateLimit:    middlewareCustom.RateLimitConfig{RequestsPerMinute: 30, IPConfig: ipConfig},
		Logger:           logger,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupManager := background.NewCleanupManager(logger, cfg.Auth.CleanupInterval,
		background.SecurityTasks(sessionService, revokeRepo, deviceService, emailVerificationService, cfg.Auth.SessionRetention)...)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Let in-flight profile pushes finish before the process exits.
	if err := syncer.Wait(shutdownCtx); err != nil {
		logger.Warn("profile sync still in flight at shutdown", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
