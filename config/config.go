// Package config holds client configuration for the BookBloom API.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds everything the API client needs to issue requests.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	TokenFile string
	Verbose   bool
}

// DefaultConfig returns defaults for a locally running BookBloom API.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://127.0.0.1:8000",
		Timeout:   10 * time.Second,
		UserAgent: "go-bookbloom/1.0",
		TokenFile: defaultTokenFile(),
		Verbose:   false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.TokenFile == "" {
		return fmt.Errorf("token file cannot be empty")
	}

	return nil
}

// defaultTokenFile is the single well-known location the session
// token persists under between invocations.
func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".bookbloom", "token")
	}
	return filepath.Join(dir, "bookbloom", "token")
}

// EnvString reads a string environment variable, reporting presence.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration reads a duration environment variable (e.g. "15s").
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return value, true, nil
}
