// Package config provides gateway configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/fred-gateway/pkg/params"
	"github.com/morezero/fred-gateway/pkg/semver"
)

const logPrefix = "config:LoadConfig"

// Config holds fred-gateway configuration.
type Config struct {
	// HTTP listeners. PORT serves REST, MCP_PORT serves MCP.
	Host    string `envconfig:"HOST" default:"0.0.0.0"`
	Port    int    `envconfig:"PORT" default:"3000"`
	MCPPort int    `envconfig:"MCP_PORT" default:"3001"`

	// Upstream FRED API
	FREDAPIKey        string        `envconfig:"FRED_API_KEY"`
	FREDBaseURL       string        `envconfig:"FRED_BASE_URL" default:"https://api.stlouisfed.org/fred"`
	UpstreamTimeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	UpstreamRateLimit float64       `envconfig:"UPSTREAM_RATE_LIMIT" default:"2"`
	UpstreamRateBurst int           `envconfig:"UPSTREAM_RATE_BURST" default:"5"`

	// StrictEnums rejects out-of-range enum values instead of dropping them.
	StrictEnums bool `envconfig:"STRICT_ENUMS" default:"false"`

	ServiceName    string `envconfig:"SERVICE_NAME" default:"fred-gateway"`
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"1.0.0"`

	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// COMMS: optional NATS request/reply transport and dispatch events.
	COMMSEnabled         bool   `envconfig:"COMMS_ENABLED" default:"false"`
	COMMSURL             string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	GatewaySubject       string `envconfig:"GATEWAY_SUBJECT"`
	DispatchEventSubject string `envconfig:"DISPATCH_EVENT_SUBJECT" default:"fred.gateway.dispatched"`

	// Audit log. Empty AUDIT_DATABASE_URL disables it.
	AuditDatabaseURL string `envconfig:"AUDIT_DATABASE_URL"`
	RunMigrations    bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath    string `envconfig:"MIGRATION_PATH" default:"migrations"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"true"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// Validate checks the configuration for serving.
func (c *Config) Validate() error {
	for name, port := range map[string]int{"PORT": c.Port, "MCP_PORT": c.MCPPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s - %s must be between 0 and 65535, got %d", logPrefix, name, port)
		}
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("%s - UPSTREAM_TIMEOUT must be positive", logPrefix)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s - SHUTDOWN_TIMEOUT must be positive", logPrefix)
	}
	if c.UpstreamRateLimit < 0 || c.UpstreamRateBurst < 0 {
		return fmt.Errorf("%s - UPSTREAM_RATE_LIMIT and UPSTREAM_RATE_BURST must not be negative", logPrefix)
	}
	if _, err := semver.Parse(c.ServiceVersion); err != nil {
		return fmt.Errorf("%s - SERVICE_VERSION: %w", logPrefix, err)
	}
	if c.COMMSEnabled && c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required when COMMS_ENABLED=true", logPrefix)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ValidateForDB checks required config for audit database commands.
func (c *Config) ValidateForDB() error {
	if c.AuditDatabaseURL == "" {
		return fmt.Errorf("%s - AUDIT_DATABASE_URL is required", logPrefix)
	}
	return nil
}

// Policy returns the parameter normalization policy.
func (c *Config) Policy() params.Policy {
	return params.Policy{StrictEnums: c.StrictEnums}
}

// RESTAddr is the REST listen address.
func (c *Config) RESTAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MCPAddr is the MCP listen address.
func (c *Config) MCPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MCPPort)
}

// ParseLogLevel maps LOG_LEVEL to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%s - unknown LOG_LEVEL %q", logPrefix, level)
}
