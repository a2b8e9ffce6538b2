package config

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/instalatrack/internal/logging"
)

// Validate checks the loaded configuration before anything is wired.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LocalDSN) == "" {
		return fmt.Errorf("local_dsn must not be empty")
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online_check_interval must be > 0 (got %s)", c.OnlineCheckInterval)
	}
	if c.OnlineCheckTimeout <= 0 {
		return fmt.Errorf("online_check_timeout must be > 0 (got %s)", c.OnlineCheckTimeout)
	}
	if c.AutoSyncInterval <= 0 {
		return fmt.Errorf("auto_sync_interval must be > 0 (got %s)", c.AutoSyncInterval)
	}
	if c.UploadMaxAttempts < 1 {
		return fmt.Errorf("upload_max_attempts must be >= 1 (got %d)", c.UploadMaxAttempts)
	}
	if len(c.SecretKey) < 16 {
		return fmt.Errorf("secret_key must be at least 16 characters (got %d)", len(c.SecretKey))
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be > 0 (got %s)", c.SessionTTL)
	}
	return nil
}

// Logging returns the logger options carried by c.
func (c *Config) Logging() logging.Options {
	return logging.Options{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		File:       c.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}
