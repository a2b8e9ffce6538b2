package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/instalatrack/internal/flagx"
	"github.com/dmitrijs2005/instalatrack/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	LocalDSN            string          `json:"local_dsn"`
	RemoteDSN           string          `json:"remote_dsn"`
	HealthEndpoint      string          `json:"health_endpoint"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	OnlineCheckTimeout  *timex.Duration `json:"online_check_timeout"`
	AutoSyncInterval    *timex.Duration `json:"auto_sync_interval"`
	Offline             *bool           `json:"offline"`
	SecretKey           string          `json:"secret_key"`
	SessionTTL          *timex.Duration `json:"session_ttl"`
	S3User              string          `json:"s3_user"`
	S3Password          string          `json:"s3_password"`
	S3Region            string          `json:"s3_region"`
	S3Endpoint          string          `json:"s3_endpoint"`
	FilesBucket         string          `json:"files_bucket"`
	BudgetsBucket       string          `json:"budgets_bucket"`
	UploadMaxAttempts   int             `json:"upload_max_attempts"`
	UploadBaseDelay     *timex.Duration `json:"upload_base_delay"`
	RedisAddr           string          `json:"redis_addr"`
	RealtimeChannel     string          `json:"realtime_channel"`
	MetricsAddr         string          `json:"metrics_addr"`
	LogLevel            string          `json:"log_level"`
	LogFormat           string          `json:"log_format"`
	LogFile             string          `json:"log_file"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.LocalDSN, jc.LocalDSN)
	setString(&cfg.RemoteDSN, jc.RemoteDSN)
	setString(&cfg.HealthEndpoint, jc.HealthEndpoint)
	setString(&cfg.SecretKey, jc.SecretKey)
	setString(&cfg.S3User, jc.S3User)
	setString(&cfg.S3Password, jc.S3Password)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.FilesBucket, jc.FilesBucket)
	setString(&cfg.BudgetsBucket, jc.BudgetsBucket)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RealtimeChannel, jc.RealtimeChannel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogFile, jc.LogFile)

	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.OnlineCheckTimeout != nil {
		cfg.OnlineCheckTimeout = jc.OnlineCheckTimeout.Duration
	}
	if jc.AutoSyncInterval != nil {
		cfg.AutoSyncInterval = jc.AutoSyncInterval.Duration
	}
	if jc.SessionTTL != nil {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.UploadBaseDelay != nil {
		cfg.UploadBaseDelay = jc.UploadBaseDelay.Duration
	}
	if jc.UploadMaxAttempts != 0 {
		cfg.UploadMaxAttempts = jc.UploadMaxAttempts
	}
	if jc.Offline != nil {
		cfg.Offline = *jc.Offline
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
