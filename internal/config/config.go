// Package config loads service configuration from an optional YAML file with
// environment overrides (prefix FSH_, __ as the nesting separator, e.g.
// FSH_DATABASE__DSN).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/DaveCybr/field-service-hub-sub004/internal/logger"
)

type Config struct {
	HTTP     HTTPConfig     `json:"http"`
	Database DatabaseConfig `json:"database"`
	Dispatch DispatchConfig `json:"dispatch"`
	Geofence GeofenceConfig `json:"geofence"`
	Logging  logger.Config  `json:"logging"`
}

type HTTPConfig struct {
	Port               string `json:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	RateLimitBurst     int    `json:"rate_limit_burst"`
}

type DatabaseConfig struct {
	DSN             string `json:"dsn"`
	MaxConns        int32  `json:"max_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime_minutes"`
}

type DispatchConfig struct {
	ScanIntervalSeconds int  `json:"scan_interval_seconds"`
	MaxJobsPerRun       int  `json:"max_jobs_per_run"`
	ApprovalMode        bool `json:"approval_mode"`
}

type GeofenceConfig struct {
	RadiusMeters float64 `json:"radius_meters"`
}

func (c *Config) SetDefaults() {
	if c.HTTP.Port == "" {
		c.HTTP.Port = "8080"
	}
	if c.HTTP.RateLimitPerMinute <= 0 {
		c.HTTP.RateLimitPerMinute = 120
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 30
	}
	if c.Dispatch.ScanIntervalSeconds < 0 {
		c.Dispatch.ScanIntervalSeconds = 0
	}
	if c.Dispatch.MaxJobsPerRun <= 0 {
		c.Dispatch.MaxJobsPerRun = 3
	}
	if c.Geofence.RadiusMeters <= 0 {
		c.Geofence.RadiusMeters = 100
	}
	c.Logging.SetDefaults()
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}

func (c DispatchConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// Load reads path (optional) and applies FSH_* environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("FSH_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "fsh_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
