// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package config provides layered configuration loading for LanServe.
//
// Configuration sources, in order of precedence (highest last):
//  1. Built-in struct defaults
//  2. Optional YAML config file (CONFIG_PATH or default search paths)
//  3. Environment variables
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Security   SecurityConfig   `koanf:"security"`
	Realtime   RealtimeConfig   `koanf:"realtime"`
	Dispatcher DispatcherConfig `koanf:"dispatcher"`
	Wallet     WalletConfig     `koanf:"wallet"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds settings for the embedded document store.
type DatabaseConfig struct {
	// Path is the BadgerDB directory. Empty string selects an in-memory
	// store (tests and ephemeral deployments).
	Path string `koanf:"path"`

	// InMemory forces an in-memory store even when Path is set.
	InMemory bool `koanf:"in_memory"`
}

// SecurityConfig holds identity verification and HTTP hardening settings.
// Token issuance is an external concern; this service only validates.
type SecurityConfig struct {
	// JWTSecret is the HS256 secret shared with the token issuer.
	// Minimum 32 characters.
	JWTSecret string `koanf:"jwt_secret"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// RealtimeConfig holds websocket gateway settings.
type RealtimeConfig struct {
	// SendBuffer is the per-connection outbound queue length. A connection
	// whose queue is full during a push is dropped (slow consumer).
	SendBuffer int `koanf:"send_buffer"`

	WriteTimeout time.Duration `koanf:"write_timeout"`
	PongTimeout  time.Duration `koanf:"pong_timeout"`

	// MaxMessageSize bounds inbound client frames in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`
}

// DispatcherConfig holds event fan-out settings.
type DispatcherConfig struct {
	// BufferSize is the GoChannel Pub/Sub output buffer per subscriber.
	BufferSize int64 `koanf:"buffer_size"`

	// CloseTimeout is how long the router waits for in-flight handlers
	// when shutting down.
	CloseTimeout time.Duration `koanf:"close_timeout"`

	// BroadcastPerSecond paces per-recipient notification writes during
	// broadcast fan-out (project postings). 0 disables pacing.
	BroadcastPerSecond int `koanf:"broadcast_per_second"`
}

// WalletConfig holds settings for the external wallet service client.
type WalletConfig struct {
	// Mode selects the implementation: "http" for the external service,
	// "memory" for the embedded standalone wallet.
	Mode string `koanf:"mode"`

	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`

	// BreakerMaxFailures is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerOpenFor     time.Duration `koanf:"breaker_open_for"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid or unsafe values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in range 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters, got %d", len(c.Security.JWTSecret))
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("security.rate_limit_reqs must be positive when rate limiting is enabled")
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		return fmt.Errorf("database.path is required unless database.in_memory is set")
	}
	if c.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("realtime.send_buffer must be positive, got %d", c.Realtime.SendBuffer)
	}
	if c.Dispatcher.BufferSize <= 0 {
		return fmt.Errorf("dispatcher.buffer_size must be positive, got %d", c.Dispatcher.BufferSize)
	}
	switch c.Wallet.Mode {
	case "http":
		if c.Wallet.BaseURL == "" {
			return fmt.Errorf("wallet.base_url is required in http mode")
		}
	case "memory":
	default:
		return fmt.Errorf("wallet.mode must be \"http\" or \"memory\", got %q", c.Wallet.Mode)
	}
	return nil
}
