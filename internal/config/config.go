// Package config provides centralized configuration management for the menu service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Sheet    SheetConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Publish  PublishConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Site     SiteConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for websockets)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// SheetConfig locates the published menu sheet.
type SheetConfig struct {
	// ID is the spreadsheet identifier (required)
	ID string `env:"SHEET_ID" envAlt:"GOOGLE_SHEET_ID" required:"true"`

	// Name is the tab to export (default: Sheet1)
	Name string `env:"SHEET_NAME" default:"Sheet1"`

	// Range is the cell range to export (default: A1:J)
	Range string `env:"SHEET_RANGE" default:"A1:J"`

	// BaseURL is the spreadsheet export endpoint
	BaseURL string `env:"SHEET_BASE_URL" default:"https://docs.google.com/spreadsheets/d"`

	// MaxBytes caps the exported body size (default: 5MiB)
	MaxBytes int64 `env:"SHEET_MAX_BYTES" default:"5242880"`

	// FetchTimeout bounds a single export request; 0 keeps the client default (default: 30s)
	FetchTimeout time.Duration `env:"SHEET_FETCH_TIMEOUT" default:"30s"`
}

// CacheConfig holds menu cache freshness settings.
type CacheConfig struct {
	// Duration is the hard expiry of a cached menu (default: 10m)
	Duration time.Duration `env:"CACHE_DURATION" default:"10m"`

	// SoftRefreshInterval is the age after which a background refresh runs (default: 5m)
	SoftRefreshInterval time.Duration `env:"CACHE_SOFT_REFRESH_INTERVAL" default:"5m"`

	// SingleFlight collapses concurrent fetches on a miss (default: true)
	SingleFlight bool `env:"CACHE_SINGLE_FLIGHT" default:"true"`
}

// DatabaseConfig holds snapshot persistence settings.
// Persistence is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (optional)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// SnapshotKeep is how many snapshots survive a prune (default: 50)
	SnapshotKeep int `env:"SNAPSHOT_KEEP" default:"50"`

	// PruneInterval is how often old snapshots are pruned (default: 24h)
	PruneInterval time.Duration `env:"SNAPSHOT_PRUNE_INTERVAL" default:"24h"`
}

// Enabled reports whether snapshot persistence is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// PublishConfig holds the optional S3 mirror of the menu.
// Publishing is disabled when Bucket is empty.
type PublishConfig struct {
	// Bucket is the destination S3 bucket
	Bucket string `env:"PUBLISH_S3_BUCKET"`

	// Key is the object key (default: menu.json)
	Key string `env:"PUBLISH_S3_KEY" default:"menu.json"`

	// Region overrides the SDK's region resolution
	Region string `env:"PUBLISH_S3_REGION" envAlt:"AWS_REGION"`

	// CacheControl is sent with the object (default: public, max-age=60)
	CacheControl string `env:"PUBLISH_CACHE_CONTROL" default:"public, max-age=60"`

	// Timeout bounds a single upload (default: 15s)
	Timeout time.Duration `env:"PUBLISH_TIMEOUT" default:"15s"`
}

// Enabled reports whether publishing is configured.
func (c *PublishConfig) Enabled() bool {
	return c.Bucket != ""
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// RefreshLimit is requests per minute for the manual refresh endpoint (default: 6)
	RefreshLimit int `env:"RATE_LIMIT_REFRESH" default:"6"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards the manual refresh endpoint (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted X-API-Key values
	APIKeys []string `env:"API_KEYS"`

	// AllowedOrigins restricts websocket origins; empty allows same-host only
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// SiteConfig holds branding shown on the kiosk page.
type SiteConfig struct {
	// BusinessName is the heading of the kiosk page (default: Our Bakery)
	BusinessName string `env:"SITE_BUSINESS_NAME" default:"Our Bakery"`

	// Tagline is shown under the heading
	Tagline string `env:"SITE_TAGLINE" default:"Baked fresh every morning"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
