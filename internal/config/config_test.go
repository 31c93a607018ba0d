// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Upstream.TimeoutSecs != 60 {
		t.Errorf("timeout = %d, want 60", cfg.Upstream.TimeoutSecs)
	}
	if cfg.Upstream.Temperature != 0.6 {
		t.Errorf("temperature = %g, want 0.6", cfg.Upstream.Temperature)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Upstream.APIKey != PlaceholderAPIKey {
		t.Errorf("api key = %q, want placeholder", cfg.Upstream.APIKey)
	}
	if cfg.Upstream.HasAPIKey() {
		t.Error("placeholder key reported as configured")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestTimeoutDuration(t *testing.T) {
	cfg := Default()
	if cfg.Upstream.Timeout() != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Upstream.Timeout())
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("API_URL", "https://example.com/v1/chat/completions")
	t.Setenv("API_KEY", "sk-test-123")
	t.Setenv("MODEL", "test-model")
	t.Setenv("REQUEST_TIMEOUT", "30")
	t.Setenv("TEMPERATURE", "0.9")
	t.Setenv("PORT", "8080")
	t.Setenv("RELAY_URL", "http://localhost:8080")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Upstream.URL != "https://example.com/v1/chat/completions" {
		t.Errorf("url = %q", cfg.Upstream.URL)
	}
	if cfg.Upstream.APIKey != "sk-test-123" {
		t.Errorf("api key = %q", cfg.Upstream.APIKey)
	}
	if !cfg.Upstream.HasAPIKey() {
		t.Error("real key reported as unconfigured")
	}
	if cfg.Upstream.Model != "test-model" {
		t.Errorf("model = %q", cfg.Upstream.Model)
	}
	if cfg.Upstream.TimeoutSecs != 30 {
		t.Errorf("timeout = %d, want 30", cfg.Upstream.TimeoutSecs)
	}
	if cfg.Upstream.Temperature != 0.9 {
		t.Errorf("temperature = %g, want 0.9", cfg.Upstream.Temperature)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Client.RelayURL != "http://localhost:8080" {
		t.Errorf("relay url = %q", cfg.Client.RelayURL)
	}
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("PORT", "-1")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.Upstream.TimeoutSecs != 60 {
		t.Errorf("timeout = %d, want default 60", cfg.Upstream.TimeoutSecs)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want default 3000", cfg.Server.Port)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[upstream]
url = "https://api.example.com/chat"
model = "custom-model"
temperature = 1.1

[server]
port = 4000

[client]
relay_url = "http://127.0.0.1:4000"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		t.Fatalf("LoadTOML: %v", err)
	}

	if cfg.Upstream.URL != "https://api.example.com/chat" {
		t.Errorf("url = %q", cfg.Upstream.URL)
	}
	if cfg.Upstream.Model != "custom-model" {
		t.Errorf("model = %q", cfg.Upstream.Model)
	}
	// Unset file keys keep their defaults.
	if cfg.Upstream.TimeoutSecs != 60 {
		t.Errorf("timeout = %d, want default 60", cfg.Upstream.TimeoutSecs)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}
}

func TestLoadTOMLMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[[[["), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := LoadTOML(Default(), path); err == nil {
		t.Error("malformed TOML accepted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.Upstream.URL = "" }},
		{"empty model", func(c *Config) { c.Upstream.Model = "" }},
		{"zero timeout", func(c *Config) { c.Upstream.TimeoutSecs = 0 }},
		{"temperature too high", func(c *Config) { c.Upstream.Temperature = 3 }},
		{"negative temperature", func(c *Config) { c.Upstream.Temperature = -0.1 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"empty relay url", func(c *Config) { c.Client.RelayURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
