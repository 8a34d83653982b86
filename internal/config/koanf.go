// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

package config

import (
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

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lanserve/config.yaml",
	"/etc/lanserve/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are applied
// first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8490,
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:     "/data/lanserve",
			InMemory: false,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Realtime: RealtimeConfig{
			SendBuffer:     64,
			WriteTimeout:   10 * time.Second,
			PongTimeout:    60 * time.Second,
			MaxMessageSize: 4096,
		},
		Dispatcher: DispatcherConfig{
			BufferSize:         256,
			CloseTimeout:       30 * time.Second,
			BroadcastPerSecond: 200,
		},
		Wallet: WalletConfig{
			Mode:               "memory",
			BaseURL:            "",
			Timeout:            10 * time.Second,
			BreakerMaxFailures: 5,
			BreakerOpenFor:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if it exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Transform environment variable names to koanf paths:
	// HTTP_PORT -> server.port, JWT_SECRET -> security.jwt_secret.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the path of the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when sourced from env vars.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Short operational names are aliased to their nested paths; everything else
// follows the SECTION_FIELD convention (SERVER_TIMEOUT -> server.timeout).
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"http_host": "server.host",
		"http_port": "server.port",

		"badger_path":        "database.path",
		"badger_in_memory":   "database.in_memory",
		"database_path":      "database.path",
		"database_in_memory": "database.in_memory",

		"jwt_secret":                 "security.jwt_secret",
		"security_jwt_secret":        "security.jwt_secret",
		"rate_limit_reqs":            "security.rate_limit_reqs",
		"rate_limit_window":          "security.rate_limit_window",
		"rate_limit_disabled":        "security.rate_limit_disabled",
		"cors_origins":               "security.cors_origins",
		"security_rate_limit_reqs":   "security.rate_limit_reqs",
		"security_rate_limit_window": "security.rate_limit_window",
		"security_cors_origins":      "security.cors_origins",

		"realtime_send_buffer":      "realtime.send_buffer",
		"realtime_write_timeout":    "realtime.write_timeout",
		"realtime_pong_timeout":     "realtime.pong_timeout",
		"realtime_max_message_size": "realtime.max_message_size",

		"dispatcher_buffer_size":          "dispatcher.buffer_size",
		"dispatcher_close_timeout":        "dispatcher.close_timeout",
		"dispatcher_broadcast_per_second": "dispatcher.broadcast_per_second",

		"wallet_mode":                 "wallet.mode",
		"wallet_base_url":             "wallet.base_url",
		"wallet_timeout":              "wallet.timeout",
		"wallet_breaker_max_failures": "wallet.breaker_max_failures",
		"wallet_breaker_open_for":     "wallet.breaker_open_for",

		"log_level":      "logging.level",
		"log_format":     "logging.format",
		"log_caller":     "logging.caller",
		"logging_level":  "logging.level",
		"logging_format": "logging.format",
		"logging_caller": "logging.caller",

		"server_host":    "server.host",
		"server_port":    "server.port",
		"server_timeout": "server.timeout",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Drop unrelated environment variables so PATH, HOME etc. cannot
	// collide with config keys.
	return ""
}
