// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for the email channel adapter.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMSConfig provides settings for the SMS channel adapter.
type SMSConfig interface {
	GetSMSProviderURL() string
	GetSMSProviderKey() string
	IsSMSEnabled() bool
}

// VoiceConfig provides settings for the voice channel adapter.
type VoiceConfig interface {
	GetVoiceProviderURL() string
	GetVoiceProviderKey() string
	IsVoiceEnabled() bool
}

// DispatchConfig provides settings for outbound send throttling.
type DispatchConfig interface {
	GetDispatchRatePerSecond() float64
	GetDispatchBurst() int
}

// RetentionConfig provides settings for the retention scheduler.
type RetentionConfig interface {
	GetRetentionScanInterval() time.Duration
	GetRetentionCooldown() time.Duration
	GetRetentionMediumThreshold() time.Duration
	GetRetentionHighThreshold() time.Duration
	GetRetentionChurnCampaignLimit() int
	GetRetentionWorkerLimit() int
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	EmailEnabled              bool
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	EmailFromName             string
	EmailFromAddress          string
	SMSProviderURL            string
	SMSProviderKey            string
	VoiceProviderURL          string
	VoiceProviderKey          string
	DispatchRatePerSecond     float64
	DispatchBurst             int
	RetentionScanInterval     time.Duration
	RetentionCooldown         time.Duration
	RetentionMediumThreshold  time.Duration
	RetentionHighThreshold    time.Duration
	RetentionChurnCampaignLim int
	RetentionWorkerLimit      int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SMSConfig implementation
func (c *Config) GetSMSProviderURL() string { return c.SMSProviderURL }
func (c *Config) GetSMSProviderKey() string { return c.SMSProviderKey }
func (c *Config) IsSMSEnabled() bool        { return c.SMSProviderURL != "" }

// VoiceConfig implementation
func (c *Config) GetVoiceProviderURL() string { return c.VoiceProviderURL }
func (c *Config) GetVoiceProviderKey() string { return c.VoiceProviderKey }
func (c *Config) IsVoiceEnabled() bool        { return c.VoiceProviderURL != "" }

// DispatchConfig implementation
func (c *Config) GetDispatchRatePerSecond() float64 { return c.DispatchRatePerSecond }
func (c *Config) GetDispatchBurst() int             { return c.DispatchBurst }

// RetentionConfig implementation
func (c *Config) GetRetentionScanInterval() time.Duration    { return c.RetentionScanInterval }
func (c *Config) GetRetentionCooldown() time.Duration        { return c.RetentionCooldown }
func (c *Config) GetRetentionMediumThreshold() time.Duration { return c.RetentionMediumThreshold }
func (c *Config) GetRetentionHighThreshold() time.Duration   { return c.RetentionHighThreshold }
func (c *Config) GetRetentionChurnCampaignLimit() int        { return c.RetentionChurnCampaignLim }
func (c *Config) GetRetentionWorkerLimit() int               { return c.RetentionWorkerLimit }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	smtpHost := getEnv("SMTP_HOST", "")

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "nurture"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		EmailEnabled:              emailEnabled && smtpHost != "",
		SMTPHost:                  smtpHost,
		SMTPPort:                  mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:              getEnv("SMTP_USERNAME", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "HomeListing"),
		EmailFromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
		SMSProviderURL:            getEnv("SMS_PROVIDER_URL", ""),
		SMSProviderKey:            getEnv("SMS_PROVIDER_KEY", ""),
		VoiceProviderURL:          getEnv("VOICE_PROVIDER_URL", ""),
		VoiceProviderKey:          getEnv("VOICE_PROVIDER_KEY", ""),
		DispatchRatePerSecond:     mustFloat(getEnv("DISPATCH_RATE_PER_SECOND", "5")),
		DispatchBurst:             mustInt(getEnv("DISPATCH_BURST", "10")),
		RetentionScanInterval:     mustDuration(getEnv("RETENTION_SCAN_INTERVAL", "1h")),
		RetentionCooldown:         mustDuration(getEnv("RETENTION_COOLDOWN", "24h")),
		RetentionMediumThreshold:  mustDuration(getEnv("RETENTION_MEDIUM_THRESHOLD", "72h")),
		RetentionHighThreshold:    mustDuration(getEnv("RETENTION_HIGH_THRESHOLD", "168h")),
		RetentionChurnCampaignLim: mustInt(getEnv("RETENTION_CHURN_CAMPAIGN_LIMIT", "3")),
		RetentionWorkerLimit:      mustInt(getEnv("RETENTION_WORKER_LIMIT", "4")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.RetentionCooldown <= 0 || cfg.RetentionMediumThreshold <= 0 || cfg.RetentionHighThreshold <= 0 {
		return nil, fmt.Errorf("retention thresholds must be positive durations")
	}
	if cfg.RetentionHighThreshold <= cfg.RetentionMediumThreshold {
		return nil, fmt.Errorf("RETENTION_HIGH_THRESHOLD must exceed RETENTION_MEDIUM_THRESHOLD")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
