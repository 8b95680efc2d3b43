// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package config loads AutoMedia server configuration with Koanf v2 using
// layered sources (highest priority wins): environment variables, optional
// YAML config file, built-in defaults.
package config

import (
	"time"
)

// Config is the root configuration for the AutoMedia server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Security  SecurityConfig  `koanf:"security"`
	Source    SourceConfig    `koanf:"source"`
	Store     StoreConfig     `koanf:"store"`
	Collector CollectorConfig `koanf:"collector"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig configures channel authentication and the HTTP surface.
type SecurityConfig struct {
	// JWTSecret signs and verifies credential tokens. Minimum 32 characters.
	JWTSecret      string        `koanf:"jwt_secret" validate:"required,min=32"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	// RateLimitReqs/RateLimitWindow bound requests per client IP on the ops API.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// SourceConfig configures the external content source client.
type SourceConfig struct {
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	BearerToken string        `koanf:"bearer_token"`
	Timeout     time.Duration `koanf:"timeout"`
	// RateLimitRPS paces outbound calls client-side; the provider's quota
	// remains the authority on exhaustion.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
	SearchPageSize int     `koanf:"search_page_size" validate:"min=1,max=100"`
}

// StoreConfig configures the BadgerDB-backed content store.
type StoreConfig struct {
	Path string `koanf:"path"`
	// InMemory runs Badger without disk persistence. Tests and ephemeral
	// deployments only.
	InMemory bool `koanf:"in_memory"`
}

// CollectorConfig configures the recurring collection tasks.
type CollectorConfig struct {
	TrendInterval     time.Duration `koanf:"trend_interval"`
	TopicPollInterval time.Duration `koanf:"topic_poll_interval"`
	CleanupInterval   time.Duration `koanf:"cleanup_interval"`
	StatsInterval     time.Duration `koanf:"stats_interval"`
	QuotaInterval     time.Duration `koanf:"quota_interval"`
	// DigestHour is the UTC hour of day for digest dispatch.
	DigestHour int `koanf:"digest_hour" validate:"min=0,max=23"`
	// RetentionDays bounds how long collected (non-generated) items are kept.
	RetentionDays int `koanf:"retention_days" validate:"min=1"`
	// QuotaWarnThresholdPct triggers a system:status broadcast when the
	// remaining quota falls below this percentage of the limit.
	QuotaWarnThresholdPct float64  `koanf:"quota_warn_threshold_pct"`
	TrendLocations        []string `koanf:"trend_locations"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Source: SourceConfig{
			BaseURL:        "https://api.twitter.com/2",
			BearerToken:    "",
			Timeout:        15 * time.Second,
			RateLimitRPS:   1,
			RateLimitBurst: 3,
			SearchPageSize: 50,
		},
		Store: StoreConfig{
			Path:     "/data/automedia/content",
			InMemory: false,
		},
		Collector: CollectorConfig{
			TrendInterval:         30 * time.Minute,
			TopicPollInterval:     15 * time.Minute,
			CleanupInterval:       time.Hour,
			StatsInterval:         6 * time.Hour,
			QuotaInterval:         5 * time.Minute,
			DigestHour:            8,
			RetentionDays:         30,
			QuotaWarnThresholdPct: 10,
			TrendLocations:        []string{"global"},
		},
	}
}
