package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port                string
	GinMode             string
	LogLevel            string
	LogFormat           string
	FirebaseProjectID   string
	FirebaseCredsBase64 string
	FirebaseCredsFile   string
	ImportAPIBaseURL    string
	ImportAPIToken      string
	PollInterval        time.Duration
	PollTimeout         time.Duration
	OverviewWorkers     int
	AllowedOrigins      string
}

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "release"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		FirebaseProjectID:   strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		FirebaseCredsBase64: strings.TrimSpace(os.Getenv("FIREBASE_CREDS_BASE64")),
		FirebaseCredsFile:   strings.TrimSpace(os.Getenv("FIREBASE_CREDS_FILE")),
		ImportAPIBaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("IMPORT_API_BASE_URL")), "/"),
		ImportAPIToken:      strings.TrimSpace(os.Getenv("IMPORT_API_TOKEN")),
		AllowedOrigins:      strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")),
	}

	interval, err := parseDurationEnv("POLL_INTERVAL", time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse POLL_INTERVAL: %w", err)
	}
	cfg.PollInterval = interval

	timeout, err := parseDurationEnv("POLL_TIMEOUT", 5*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("parse POLL_TIMEOUT: %w", err)
	}
	cfg.PollTimeout = timeout

	workers, err := parseIntEnv("OVERVIEW_WORKERS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse OVERVIEW_WORKERS: %w", err)
	}
	cfg.OverviewWorkers = workers

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if c.FirebaseCredsBase64 == "" && c.FirebaseCredsFile == "" {
		return errors.New("provide FIREBASE_CREDS_BASE64 or FIREBASE_CREDS_FILE for Firestore auth")
	}
	if c.ImportAPIBaseURL == "" {
		return errors.New("IMPORT_API_BASE_URL is required")
	}
	if c.PollInterval <= 0 || c.PollTimeout <= 0 {
		return errors.New("POLL_INTERVAL and POLL_TIMEOUT must be positive")
	}
	return nil
}

// FirebaseCredentialsJSON returns the service account JSON bytes and the source used.
func (c Config) FirebaseCredentialsJSON() ([]byte, string, error) {
	if c.FirebaseCredsBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(c.FirebaseCredsBase64)
		if err != nil {
			return nil, "base64", fmt.Errorf("decode FIREBASE_CREDS_BASE64: %w", err)
		}
		return decoded, "base64", nil
	}
	if c.FirebaseCredsFile != "" {
		data, err := os.ReadFile(c.FirebaseCredsFile)
		if err != nil {
			return nil, "file", fmt.Errorf("read FIREBASE_CREDS_FILE: %w", err)
		}
		return data, "file", nil
	}
	return nil, "", errors.New("no firebase credentials found")
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}
