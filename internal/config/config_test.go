package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "NARTHEX_URL", "NARTHEX_API_KEY", "UPSTREAM_TIMEOUT",
		"XMLRAY_API_KEY", "ORG_ID", "PUBLIC_API_PREFIX", "SESSION_TTL", "HISTORY_DB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8091" {
		t.Errorf("expected default port, got %q", cfg.Port)
	}
	if cfg.SessionTTL != time.Hour || cfg.UpstreamTimeout != 30*time.Second {
		t.Errorf("unexpected durations: %v %v", cfg.SessionTTL, cfg.UpstreamTimeout)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error without api keys")
	}
}

func TestLoad_FileUnderEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "xmlray.yaml")
	data := []byte("port: \"7000\"\nnarthex_url: http://narthex:9000/\nnarthex_api_key: file-key\nxmlray_api_key: k\norg_id: brabant\nsession_ttl: 10m\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("NARTHEX_API_KEY", "env-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("expected file port, got %q", cfg.Port)
	}
	if cfg.NarthexURL != "http://narthex:9000" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.NarthexURL)
	}
	if cfg.NarthexAPIKey != "env-key" {
		t.Errorf("expected env to override file, got %q", cfg.NarthexAPIKey)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Errorf("expected file ttl, got %v", cfg.SessionTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("expected default ttl, got %v", cfg.SessionTTL)
	}
}
