// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full process configuration, populated from SUSU_* environment
// variables.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// LogFormat selects "text" or "json" log output.
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// StorageBackend selects the key-value store: "badger" or "sqlite".
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"badger"`

	// DataDir holds the badger database or the sqlite file.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// JWTSecret signs session tokens. Required.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// AdminPrincipal administers the engines: cancel rights on any forming
	// circle and control of the credit caller allow-list.
	AdminPrincipal string `envconfig:"ADMIN_PRINCIPAL" default:"admin"`

	// EnginePrincipal is the identity the circle engine reports to the credit
	// engine under. It is placed on the allow-list at startup.
	EnginePrincipal string `envconfig:"ENGINE_PRINCIPAL" default:"circle-engine"`

	// RecordTTL is the keep-alive window for credit profiles, histories and
	// identity bindings.
	RecordTTL time.Duration `envconfig:"RECORD_TTL" default:"2400h"`
}

// Load reads configuration from SUSU_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("susu", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.StorageBackend != "badger" && cfg.StorageBackend != "sqlite" {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	return &cfg, nil
}
