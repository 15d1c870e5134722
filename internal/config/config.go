package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Narthex connection
	NarthexURL      string
	NarthexAPIKey   string
	UpstreamTimeout time.Duration

	// Auth
	XmlrayAPIKey string

	// Source path annotations and download links
	OrgID           string
	PublicAPIPrefix string

	// Session state
	SessionTTL time.Duration

	// Delimiter history; empty disables it
	HistoryDB string
}

// fileConfig is the optional YAML base layer named by CONFIG_FILE.
type fileConfig struct {
	Port            string `yaml:"port"`
	NarthexURL      string `yaml:"narthex_url"`
	NarthexAPIKey   string `yaml:"narthex_api_key"`
	UpstreamTimeout string `yaml:"upstream_timeout"`
	XmlrayAPIKey    string `yaml:"xmlray_api_key"`
	OrgID           string `yaml:"org_id"`
	PublicAPIPrefix string `yaml:"public_api_prefix"`
	SessionTTL      string `yaml:"session_ttl"`
	HistoryDB       string `yaml:"history_db"`
}

// Load builds the configuration from CONFIG_FILE, when set, overridden by
// environment variables.
func Load() (Config, error) {
	var file fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Port: envOr("PORT", or(file.Port, "8091")),

		NarthexURL:      strings.TrimRight(envOr("NARTHEX_URL", or(file.NarthexURL, "http://localhost:9000")), "/"),
		NarthexAPIKey:   envOr("NARTHEX_API_KEY", file.NarthexAPIKey),
		UpstreamTimeout: envDuration("UPSTREAM_TIMEOUT", parseDuration(file.UpstreamTimeout, 30*time.Second)),

		XmlrayAPIKey: envOr("XMLRAY_API_KEY", file.XmlrayAPIKey),

		OrgID:           envOr("ORG_ID", file.OrgID),
		PublicAPIPrefix: strings.TrimRight(envOr("PUBLIC_API_PREFIX", file.PublicAPIPrefix), "/"),

		SessionTTL: envDuration("SESSION_TTL", parseDuration(file.SessionTTL, 1*time.Hour)),

		HistoryDB: envOr("HISTORY_DB", file.HistoryDB),
	}

	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 30 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.NarthexURL == "" {
		return fmt.Errorf("NARTHEX_URL is required")
	}
	if c.NarthexAPIKey == "" {
		return fmt.Errorf("NARTHEX_API_KEY is required")
	}
	if c.XmlrayAPIKey == "" {
		return fmt.Errorf("XMLRAY_API_KEY is required")
	}
	if c.OrgID == "" {
		return fmt.Errorf("ORG_ID is required")
	}
	return nil
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
