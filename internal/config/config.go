package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=restoran port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"

	// ConfigPathEnvVar overrides the YAML config file location.
	ConfigPathEnvVar = "CONFIG_PATH"
)

type Config struct {
	HTTPPort     string        `koanf:"http_port"`
	RealtimePort string        `koanf:"realtime_port"`
	DatabaseDSN  string        `koanf:"database_dsn"`
	JWTSecret    string        `koanf:"jwt_secret"`
	JWTTTL       time.Duration `koanf:"jwt_ttl"`
	CORSOrigins  string        `koanf:"cors_origins"`
	Environment  string        `koanf:"environment"`
	RestaurantID string        `koanf:"restaurant_id"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// Empty NATSURL keeps the event bus in-process.
	NATSURL           string `koanf:"nats_url"`
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`

	CasbinPolicyPath string `koanf:"casbin_policy_path"`

	DefaultTaxRate           float64 `koanf:"default_tax_rate"`
	DefaultServiceChargeRate float64 `koanf:"default_service_charge_rate"`

	// Warnings collects non-fatal findings from Load, logged by main once logging is up.
	Warnings []string `koanf:"-"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:          "8080",
		RealtimePort:      "8081",
		DatabaseDSN:       defaultDSN,
		JWTTTL:            24 * time.Hour,
		CORSOrigins:       defaultCORSOrigins,
		Environment:       "development",
		RestaurantID:      "main",
		LogLevel:          "info",
		LogFormat:         "json",
		NATSSubjectPrefix: "pos",
	}
}

// Load layers struct defaults, an optional YAML file and the environment, in that order.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// HTTP_PORT -> http_port, CORS_ALLOWED_ORIGINS is kept for older deployments.
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		_ = k.Set("cors_origins", v)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(key string) string {
	return strings.ToLower(key)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate enforces the production safety checks.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.HTTPPort == c.RealtimePort {
		return fmt.Errorf("HTTP_PORT and REALTIME_PORT must differ (both %s)", c.HTTPPort)
	}
	if c.DefaultTaxRate < 0 || c.DefaultTaxRate > 100 {
		return fmt.Errorf("DEFAULT_TAX_RATE out of range: %v", c.DefaultTaxRate)
	}
	if c.DefaultServiceChargeRate < 0 || c.DefaultServiceChargeRate > 100 {
		return fmt.Errorf("DEFAULT_SERVICE_CHARGE_RATE out of range: %v", c.DefaultServiceChargeRate)
	}

	c.Warnings = c.Warnings[:0]
	if c.DatabaseDSN == defaultDSN {
		c.Warnings = append(c.Warnings, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		c.Warnings = append(c.Warnings, "CORS origins use the default value, set your own domain for production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// CORSOriginList splits the comma-separated origin list.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
