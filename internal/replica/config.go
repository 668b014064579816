package replica

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config configures a replica profile service. Values come from an optional
// YAML file and are overridden by environment variables.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	DB         DBConfig
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Auth       AuthConfig
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `yaml:"driver" env:"REPLICA_DB_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"REPLICA_DB_DSN" env-default:"file:replica.db?_pragma=foreign_keys(1)"`
}

type HTTPServerConfig struct {
	Address      string        `yaml:"address" env:"REPLICA_ADDRESS" env-default:":8081"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
}

// AuthConfig must match the identity service: the access secret, issuer and
// audience used to sign access tokens, and the key sent with sync pushes.
type AuthConfig struct {
	AccessSecret string `yaml:"access_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer       string `yaml:"issuer" env:"JWT_ISSUER" env-default:"warden"`
	Audience     string `yaml:"audience" env:"JWT_AUDIENCE" env-default:"warden-services"`
	SyncAPIKey   string `yaml:"sync_api_key" env:"SYNC_API_KEY" env-required:"true"`
}

// LoadConfig reads path when given, otherwise the environment only.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load replica config: %w", err)
	}

	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}
	return &cfg, nil
}
