package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Probe Configuration
	OdooURL         string
	SessionFile     string
	RestoreLockFile string
	ProbeTimeout    time.Duration

	// Logging Configuration
	LogLevel  string
	LogFormat string

	// HTTP Server Configuration (watch mode)
	HTTPPort         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration

	// Watch Configuration
	WatchSchedule   string
	WorkerQueueSize int

	// MongoDB Configuration
	MongoURI             string
	MongoDatabase        string
	MongoTimeout         time.Duration
	HistoryRetentionDays int

	// Alert Configuration
	AlertWebhookURL       string
	AlertFailureThreshold int
	DefaultWebhookTimeout time.Duration

	// CORS Configuration
	CORSAllowedOrigins   string
	CORSAllowedMethods   string
	CORSAllowedHeaders   string
	CORSAllowCredentials bool
	CORSMaxAge           int
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// Probe
		OdooURL:         getEnv("ODOO_URL", "http://localhost:8069"),
		SessionFile:     getEnv("SESSION_FILE", "/var/lib/odoo/.healthcheck_session"),
		RestoreLockFile: getEnv("RESTORE_LOCK_FILE", "/var/lib/odoo/.restore.lock"),
		ProbeTimeout:    getDurationEnv("PROBE_TIMEOUT_SEC", 10) * time.Second,

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		// HTTP Server
		HTTPPort:         getEnv("HTTP_PORT", "8090"),
		HTTPReadTimeout:  getDurationEnv("HTTP_READ_TIMEOUT_SEC", 30) * time.Second,
		HTTPWriteTimeout: getDurationEnv("HTTP_WRITE_TIMEOUT_SEC", 30) * time.Second,

		// Watch
		WatchSchedule:   getEnv("WATCH_SCHEDULE", "@every 30s"),
		WorkerQueueSize: getIntEnv("WORKER_QUEUE_SIZE", 16),

		// MongoDB
		MongoURI:             getEnv("MONGO_URI", ""),
		MongoDatabase:        getEnv("MONGO_DATABASE", "odoo_probe"),
		MongoTimeout:         getDurationEnv("MONGO_TIMEOUT_SEC", 10) * time.Second,
		HistoryRetentionDays: getIntEnv("HISTORY_RETENTION_DAYS", 7),

		// Alerts
		AlertWebhookURL:       getEnv("ALERT_WEBHOOK_URL", ""),
		AlertFailureThreshold: getIntEnv("ALERT_FAILURE_THRESHOLD", 3),
		DefaultWebhookTimeout: getDurationEnv("DEFAULT_WEBHOOK_TIMEOUT_SEC", 10) * time.Second,

		// CORS
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),
		CORSAllowedMethods:   getEnv("CORS_ALLOWED_METHODS", "GET, POST, PATCH, OPTIONS"),
		CORSAllowedHeaders:   getEnv("CORS_ALLOWED_HEADERS", "*"),
		CORSAllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAge:           getIntEnv("CORS_MAX_AGE", 3600),
	}
}

// Validate checks the settings every mode depends on
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.OdooURL)
	if err != nil {
		return fmt.Errorf("invalid ODOO_URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("ODOO_URL must start with http:// or https://")
	}
	if c.SessionFile == "" {
		return errors.New("SESSION_FILE is required")
	}
	if c.ProbeTimeout <= 0 {
		return errors.New("PROBE_TIMEOUT_SEC must be positive")
	}
	if c.AlertFailureThreshold < 1 {
		return errors.New("ALERT_FAILURE_THRESHOLD must be at least 1")
	}
	return nil
}

// HistoryEnabled reports whether probe history is persisted to MongoDB
func (c *Config) HistoryEnabled() bool {
	return c.MongoURI != ""
}

// AlertsEnabled reports whether failure alerts are sent
func (c *Config) AlertsEnabled() bool {
	return c.AlertWebhookURL != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
		log.Printf("Warning: Invalid duration value for %s, using default %d", key, defaultValue)
	}
	return time.Duration(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
