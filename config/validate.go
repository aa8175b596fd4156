package config

import (
	"errors"
	"fmt"
	"strings"

	"cafichain/storage"
)

var (
	errEmptyListen   = errors.New("ListenAddress must not be empty")
	errEmptyDataDir  = errors.New("DataDir must not be empty")
	errNegativeLimit = errors.New("RateLimit values must not be negative")
	errNegativeSkew  = errors.New("Auth.ClockSkewSeconds must not be negative")
	errMissingSecret = errors.New("Auth.HMACSecret is required outside development")
	errLogRotation   = errors.New("Logging rotation values must not be negative")
)

// Validate rejects inconsistent configuration values.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errEmptyListen
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errEmptyDataDir
	}
	switch strings.ToLower(strings.TrimSpace(c.StorageBackend)) {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("StorageBackend %q is not supported", c.StorageBackend)
	}
	if _, err := c.Farming.Params(); err != nil {
		return fmt.Errorf("Farming: %w", err)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errNegativeLimit
	}
	if c.Auth.ClockSkewSeconds < 0 {
		return errNegativeSkew
	}
	if strings.TrimSpace(c.Auth.HMACSecret) == "" && !c.IsDevelopment() {
		return errMissingSecret
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errLogRotation
	}
	if c.Telemetry.Enabled() && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return errors.New("Telemetry.Endpoint is required when exporters are enabled")
	}
	return nil
}

// IsDevelopment reports whether the node runs in a local environment where
// unauthenticated writes are tolerated.
func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "dev", "development", "local", "test":
		return true
	}
	return false
}
