// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads layered configuration for the client and the relay:
// defaults, then an optional TOML file, then .env, then real environment
// variables. Later layers win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// PlaceholderAPIKey is the credential the relay starts with when none is
// configured. Requests sent with it will fail upstream authorization.
const PlaceholderAPIKey = "your-api-key-here"

// DefaultSystemPrompt seeds every conversation as its system turn.
const DefaultSystemPrompt = "You are a supportive life coach. You listen carefully, " +
	"ask thoughtful questions, and help people find their own way forward. " +
	"Keep replies warm, concrete, and encouraging."

// Config is the full configuration tree.
type Config struct {
	Upstream UpstreamConfig `toml:"upstream"`
	Server   ServerConfig   `toml:"server"`
	Client   ClientConfig   `toml:"client"`
}

// UpstreamConfig describes the model API the relay forwards to.
type UpstreamConfig struct {
	URL         string  `toml:"url"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	TimeoutSecs int     `toml:"timeout_secs"`
	Temperature float64 `toml:"temperature"`
}

// Timeout returns the request-level timeout as a duration.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSecs) * time.Second
}

// HasAPIKey reports whether a real (non-placeholder) credential is set.
func (u UpstreamConfig) HasAPIKey() bool {
	return u.APIKey != "" && u.APIKey != PlaceholderAPIKey
}

// ServerConfig describes the relay's own listener.
type ServerConfig struct {
	Port int `toml:"port"`
}

// Addr returns the listen address for the relay.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// ClientConfig describes how the TUI reaches the relay.
type ClientConfig struct {
	RelayURL     string `toml:"relay_url"`
	SystemPrompt string `toml:"system_prompt"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			URL:         "https://api.deepseek.com/v1/chat/completions",
			APIKey:      PlaceholderAPIKey,
			Model:       "deepseek-chat",
			TimeoutSecs: 60,
			Temperature: 0.6,
		},
		Server: ServerConfig{
			Port: 3000,
		},
		Client: ClientConfig{
			RelayURL:     "http://localhost:3000",
			SystemPrompt: DefaultSystemPrompt,
		},
	}
}

// Dir returns the configuration directory, ~/.lifecoach.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".lifecoach"), nil
}

// Path returns the TOML config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load builds the effective configuration: defaults, optional TOML file,
// .env, then environment variables. A missing config file is not an
// error; a malformed one is.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		}
	}

	// .env values become process env for ApplyEnv; existing env wins,
	// which godotenv guarantees by never overwriting.
	_ = godotenv.Load()

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML merges a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays recognized environment variables onto cfg.
func (c *Config) ApplyEnv() {
	if url := os.Getenv("API_URL"); url != "" {
		c.Upstream.URL = url
	}
	if key := os.Getenv("API_KEY"); key != "" {
		c.Upstream.APIKey = key
	}
	if model := os.Getenv("MODEL"); model != "" {
		c.Upstream.Model = model
	}
	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.Upstream.TimeoutSecs = secs
		}
	}
	if temp := os.Getenv("TEMPERATURE"); temp != "" {
		if t, err := strconv.ParseFloat(temp, 64); err == nil {
			c.Upstream.Temperature = t
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if relay := os.Getenv("RELAY_URL"); relay != "" {
		c.Client.RelayURL = relay
	}
}

// Validate rejects configurations that cannot work at all. A placeholder
// API key is deliberately allowed: the relay starts and warns, and
// requests fail at the upstream instead.
func (c *Config) Validate() error {
	if c.Upstream.URL == "" {
		return fmt.Errorf("upstream url must not be empty")
	}
	if c.Upstream.Model == "" {
		return fmt.Errorf("upstream model must not be empty")
	}
	if c.Upstream.TimeoutSecs <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %d", c.Upstream.TimeoutSecs)
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0, 2], got %g", c.Upstream.Temperature)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Client.RelayURL == "" {
		return fmt.Errorf("relay url must not be empty")
	}
	return nil
}
