package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	MFA       MFAConfig
	Email     EmailConfig
	Sync      SyncConfig
	Google    GoogleConfig
	Bootstrap BootstrapConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	AllowedOrigins  []string
	TrustedProxies  []string // CIDR ranges whose forwarding headers are honoured
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// ManagementAPIKey guards the /mgmt surface. Empty disables it (requests get 500).
	ManagementAPIKey string
	AuthRateLimit    int // requests per minute per IP on public auth endpoints
}

type AuthConfig struct {
	JWTSecret           string
	MFAChallengeSecret  string
	PasswordResetSecret string
	Issuer              string
	Audience            string

	AccessTokenExpiry   time.Duration
	RefreshTokenExpiry  time.Duration
	MFAChallengeExpiry  time.Duration
	PasswordResetExpiry time.Duration
	TrustedDeviceExpiry time.Duration

	MaxFailedLogins          int
	LockoutDuration          time.Duration
	RequireEmailVerification bool

	CleanupInterval time.Duration
	// SessionRetention keeps revoked or expired refresh tokens around for inspection before sweeping.
	SessionRetention time.Duration

	CookieSecure   bool
	CookieDomain   string
	CookieSameSite string
}

type MFAConfig struct {
	EncryptionKey     []byte // 32 bytes, AES-256-GCM
	Issuer            string
	RecoveryCodeCount int
}

type EmailConfig struct {
	Enabled            bool
	AWSRegion          string
	FromAddress        string
	BaseURL            string
	VerificationExpiry time.Duration
	ResendCooldown     time.Duration
}

type SyncConfig struct {
	Targets        []string
	Timeout        time.Duration
	FailureLogSize int
	APIKey         string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

// BootstrapConfig describes the superuser ensured at startup.
type BootstrapConfig struct {
	SuperuserEmail    string
	SuperuserPassword string
}

// LoadDatabase reads only the database settings. Operator commands such as
// migrations use it so they do not need the token secrets.
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabaseConfig()
	if cfg.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return &cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "warden"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			Env:              env,
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:   parseAllowedOrigins(env),
			TrustedProxies:   getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:      getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:     getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:      getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:  getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			ManagementAPIKey: getEnv("INTERNAL_API_KEY", ""),
			AuthRateLimit:    getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 5),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			MFAChallengeSecret:  getEnv("MFA_CHALLENGE_SECRET", ""),
			PasswordResetSecret: getEnv("PASSWORD_RESET_SECRET", ""),
			Issuer:              getEnv("JWT_ISSUER", "warden"),
			Audience:            getEnv("JWT_AUDIENCE", "warden-services"),

			AccessTokenExpiry:   getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 30*time.Minute),
			RefreshTokenExpiry:  time.Duration(getEnvAsInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
			MFAChallengeExpiry:  getEnvAsDuration("MFA_CHALLENGE_EXPIRY", 5*time.Minute),
			PasswordResetExpiry: getEnvAsDuration("PASSWORD_RESET_EXPIRY", 30*time.Minute),
			TrustedDeviceExpiry: time.Duration(getEnvAsInt("TRUSTED_DEVICE_EXPIRE_DAYS", 30)) * 24 * time.Hour,

			MaxFailedLogins:          getEnvAsInt("MAX_FAILED_LOGINS", 5),
			LockoutDuration:          getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			RequireEmailVerification: getEnvAsBool("REQUIRE_EMAIL_VERIFICATION", true),

			CleanupInterval:  getEnvAsDuration("TOKEN_CLEANUP_INTERVAL", 1*time.Hour),
			SessionRetention: getEnvAsDuration("SESSION_RETENTION", 24*time.Hour),

			CookieSecure:   getEnvAsBool("COOKIE_SECURE", env == "production"),
			CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
			CookieSameSite: getEnv("COOKIE_SAMESITE", "Lax"),
		},
		MFA: MFAConfig{
			Issuer:            getEnv("MFA_ISSUER", "Warden"),
			RecoveryCodeCount: getEnvAsInt("MFA_RECOVERY_CODE_COUNT", 8),
		},
		Email: EmailConfig{
			Enabled:            getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			FromAddress:        getEnv("EMAIL_FROM", "no-reply@localhost"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			VerificationExpiry: getEnvAsDuration("EMAIL_VERIFICATION_EXPIRY", 24*time.Hour),
			ResendCooldown:     getEnvAsDuration("EMAIL_RESEND_COOLDOWN", 5*time.Minute),
		},
		Sync: SyncConfig{
			Targets:        getEnvAsList("SYNC_TARGETS"),
			Timeout:        getEnvAsDuration("SYNC_TIMEOUT", 5*time.Second),
			FailureLogSize: getEnvAsInt("SYNC_FAILURE_LOG_SIZE", 100),
			APIKey:         getEnv("SYNC_API_KEY", ""),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		Bootstrap: BootstrapConfig{
			SuperuserEmail:    getEnv("FIRST_SUPERUSER_EMAIL", ""),
			SuperuserPassword: getEnv("FIRST_SUPERUSER_PASSWORD", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateTokenSecrets(&cfg.Auth, env); err != nil {
		return nil, err
	}

	key, err := parseEncryptionKey(getEnv("MFA_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}
	cfg.MFA.EncryptionKey = key

	if cfg.Auth.MaxFailedLogins < 1 {
		return nil, fmt.Errorf("MAX_FAILED_LOGINS must be at least 1")
	}
	if cfg.MFA.RecoveryCodeCount < 1 {
		return nil, fmt.Errorf("MFA_RECOVERY_CODE_COUNT must be at least 1")
	}

	return cfg, nil
}

// validateTokenSecrets checks every signing key and requires them to differ,
// so a leaked key only compromises its own token class.
func validateTokenSecrets(a *AuthConfig, env string) error {
	secrets := []struct {
		name  string
		value string
	}{
		{"JWT_SECRET", a.JWTSecret},
		{"MFA_CHALLENGE_SECRET", a.MFAChallengeSecret},
		{"PASSWORD_RESET_SECRET", a.PasswordResetSecret},
	}

	seen := make(map[string]string, len(secrets))
	for _, s := range secrets {
		if s.value == "" {
			return fmt.Errorf("%s is required", s.name)
		}
		if err := validateJWTSecret(s.name, s.value, env); err != nil {
			return err
		}
		if other, ok := seen[s.value]; ok {
			return fmt.Errorf("%s must differ from %s", s.name, other)
		}
		seen[s.value] = s.name
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for a signing secret
func validateJWTSecret(name, secret, env string) error {
	// Minimum length based on environment
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	// Check against common weak secrets
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

// parseEncryptionKey accepts a 32-byte key as hex (64 chars) or standard base64.
func parseEncryptionKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("MFA_ENCRYPTION_KEY is required")
	}
	if key, err := hex.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, fmt.Errorf("MFA_ENCRYPTION_KEY must decode to 32 bytes (hex or base64)")
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL renders the connection string in URL form for database/sql drivers.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return []string{}
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsList("BACKEND_CORS_ORIGINS")
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
