package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Cache     CacheConfig     `yaml:"cache"`
	Returns   ReturnsConfig   `yaml:"returns"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains the browser-facing HTTP server and the ops gRPC port
type ServerConfig struct {
	Host            string  `yaml:"host"`
	Port            int     `yaml:"port"`
	GRPCPort        int     `yaml:"grpc_port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	// RateLimitIdleMinutes is how long an idle client's limiter is kept.
	RateLimitIdleMinutes int `yaml:"rate_limit_idle_minutes"`
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For
	// header is believed. Empty means the peer address is always used.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// BackendConfig points at the remote rental API
type BackendConfig struct {
	BaseURL         string  `yaml:"base_url"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig contains PostgreSQL connection settings for the submission journal
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// SessionConfig controls how bearer tokens become sessions. Bypass is an
// explicit development switch; it is never inferred from the environment.
type SessionConfig struct {
	Bypass       bool   `yaml:"bypass"`
	DevSecret    string `yaml:"dev_secret"`
	DevUserID    string `yaml:"dev_user_id"`
	DevUserEmail string `yaml:"dev_user_email"`
}

// CacheConfig controls the backend query cache
type CacheConfig struct {
	TTLSeconds     int `yaml:"ttl_seconds"`
	CleanupSeconds int `yaml:"cleanup_seconds"`
}

// ReturnsConfig holds the fee parameters of the return calculator
type ReturnsConfig struct {
	LateFeePerItem             string `yaml:"late_fee_per_item"`
	DefaultDaysLate            int    `yaml:"default_days_late"`
	AllowNegativeDamagePenalty bool   `yaml:"allow_negative_damage_penalty"`
}

// WorkflowConfig controls how long an abandoned workflow is kept
type WorkflowConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// EmailConfig contains SendGrid settings. An empty API key disables email.
type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReleaseStaleSubmissions string `yaml:"release_stale_submissions"`
	PruneSubmissions        string `yaml:"prune_submissions"`
	StaleAfterMinutes       int    `yaml:"stale_after_minutes"`
	RetentionDays           int    `yaml:"retention_days"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Backend
	if val := os.Getenv("BACKEND_BASE_URL"); val != "" {
		c.Backend.BaseURL = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Session
	if val := os.Getenv("SESSION_DEV_SECRET"); val != "" {
		c.Session.DevSecret = val
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}
	if c.Server.RateLimitPerSec == 0 {
		c.Server.RateLimitPerSec = 20
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 40
	}
	if c.Server.RateLimitIdleMinutes <= 0 {
		c.Server.RateLimitIdleMinutes = 10
	}
	if _, err := ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return err
	}

	// Backend validation
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend base_url: %q", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 30
	}
	if c.Backend.RateLimitPerSec == 0 {
		c.Backend.RateLimitPerSec = 10
	}
	if c.Backend.RateLimitBurst == 0 {
		c.Backend.RateLimitBurst = 20
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// Session validation
	if c.Session.Bypass {
		if len(c.Session.DevSecret) < 32 {
			return fmt.Errorf("session dev_secret must be at least 32 characters when bypass is enabled")
		}
		if c.Session.DevUserID == "" {
			c.Session.DevUserID = "dev"
		}
	}

	// Cache defaults
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 60
	}
	if c.Cache.CleanupSeconds == 0 {
		c.Cache.CleanupSeconds = 300
	}

	// Returns validation
	if c.Returns.LateFeePerItem == "" {
		c.Returns.LateFeePerItem = "5"
	}
	fee, err := decimal.NewFromString(c.Returns.LateFeePerItem)
	if err != nil {
		return fmt.Errorf("invalid late_fee_per_item: %w", err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("late_fee_per_item must not be negative")
	}
	if c.Returns.DefaultDaysLate <= 0 {
		c.Returns.DefaultDaysLate = 1
	}

	if c.Workflow.TTLMinutes == 0 {
		c.Workflow.TTLMinutes = 30
	}

	if c.Email.SendGridAPIKey != "" && c.Email.FromEmail == "" {
		return fmt.Errorf("email from_email is required when sendgrid is enabled")
	}

	// Scheduler defaults
	if c.Scheduler.ReleaseStaleSubmissions == "" {
		c.Scheduler.ReleaseStaleSubmissions = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.PruneSubmissions == "" {
		c.Scheduler.PruneSubmissions = "0 30 3 * * *" // 3:30 AM UTC
	}
	if c.Scheduler.StaleAfterMinutes == 0 {
		c.Scheduler.StaleAfterMinutes = 10
	}
	if c.Scheduler.RetentionDays == 0 {
		c.Scheduler.RetentionDays = 90
	}

	return nil
}

// LateFeePerItem returns the validated late fee.
func (c *Config) LateFeePerItem() decimal.Decimal {
	return decimal.RequireFromString(c.Returns.LateFeePerItem)
}

// BackendTimeout returns the backend HTTP timeout.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// WorkflowTTL returns how long an untouched workflow survives.
func (c *Config) WorkflowTTL() time.Duration {
	return time.Duration(c.Workflow.TTLMinutes) * time.Minute
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the ops gRPC address, or "" when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// ParseTrustedProxies turns addresses and CIDRs into networks. A bare
// address becomes a single-host network.
func ParseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy: %q", entry)
		}
		bits := 128
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}
