// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8490 {
		t.Errorf("Server.Port = %d, want 8490", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Server.Timeout = %v, want 30s", cfg.Server.Timeout)
	}
	if cfg.Database.Path != "/data/lanserve" {
		t.Errorf("Database.Path = %q, want /data/lanserve", cfg.Database.Path)
	}
	if cfg.Security.JWTSecret != "" {
		t.Errorf("Security.JWTSecret should be empty by default, got %q", cfg.Security.JWTSecret)
	}
	if cfg.Security.RateLimitReqs != 100 {
		t.Errorf("Security.RateLimitReqs = %d, want 100", cfg.Security.RateLimitReqs)
	}
	if cfg.Realtime.SendBuffer != 64 {
		t.Errorf("Realtime.SendBuffer = %d, want 64", cfg.Realtime.SendBuffer)
	}
	if cfg.Dispatcher.BufferSize != 256 {
		t.Errorf("Dispatcher.BufferSize = %d, want 256", cfg.Dispatcher.BufferSize)
	}
	if cfg.Wallet.Mode != "memory" {
		t.Errorf("Wallet.Mode = %q, want memory", cfg.Wallet.Mode)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{"http port alias", "HTTP_PORT", "server.port"},
		{"http host alias", "HTTP_HOST", "server.host"},
		{"jwt secret alias", "JWT_SECRET", "security.jwt_secret"},
		{"badger path alias", "BADGER_PATH", "database.path"},
		{"database path", "DATABASE_PATH", "database.path"},
		{"log level alias", "LOG_LEVEL", "logging.level"},
		{"cors origins", "CORS_ORIGINS", "security.cors_origins"},
		{"wallet base url", "WALLET_BASE_URL", "wallet.base_url"},
		{"dispatcher broadcast", "DISPATCHER_BROADCAST_PER_SECOND", "dispatcher.broadcast_per_second"},
		{"unrelated var dropped", "PATH", ""},
		{"unrelated var dropped 2", "HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-test-secret-test-secret!")
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("BADGER_IN_MEMORY", "true")
	t.Setenv("BADGER_PATH", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv(ConfigPathEnvVar, "/nonexistent/config.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if !cfg.Database.InMemory {
		t.Error("Database.InMemory should be true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins len = %d, want 2", len(cfg.Security.CORSOrigins))
	}
	if cfg.Security.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins[0] = %q, want https://app.example.com", cfg.Security.CORSOrigins[0])
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9200
security:
  jwt_secret: "file-secret-file-secret-file-secret!"
database:
  in_memory: true
wallet:
  mode: memory
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want 9200", cfg.Server.Port)
	}
	if cfg.Security.JWTSecret != "file-secret-file-secret-file-secret!" {
		t.Errorf("JWTSecret not loaded from file, got %q", cfg.Security.JWTSecret)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
		cfg.Database.InMemory = true
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing jwt secret", func(c *Config) { c.Security.JWTSecret = "" }, true},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, true},
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"no database path", func(c *Config) { c.Database.Path = ""; c.Database.InMemory = false }, true},
		{"http wallet without url", func(c *Config) { c.Wallet.Mode = "http"; c.Wallet.BaseURL = "" }, true},
		{"http wallet with url", func(c *Config) { c.Wallet.Mode = "http"; c.Wallet.BaseURL = "http://wallet:8080" }, false},
		{"unknown wallet mode", func(c *Config) { c.Wallet.Mode = "ledger" }, true},
		{"zero send buffer", func(c *Config) { c.Realtime.SendBuffer = 0 }, true},
		{"zero rate limit", func(c *Config) { c.Security.RateLimitReqs = 0 }, true},
		{"zero rate limit disabled", func(c *Config) { c.Security.RateLimitReqs = 0; c.Security.RateLimitDisabled = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
