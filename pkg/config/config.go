// Package config loads the helix server configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the current config API version.
const CurrentVersion = "v1"

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// minSigningKeyBytes is the shortest accepted HMAC signing key.
const minSigningKeyBytes = 32

// Config is the root configuration.
type Config struct {
	APIVersion string         `yaml:"apiVersion"`
	Server     ServerConfig   `yaml:"server"`
	Log        LogConfig      `yaml:"log"`
	Database   DatabaseConfig `yaml:"database"`
	Cache      CacheConfig    `yaml:"cache"`
	LiveSync   LiveSyncConfig `yaml:"livesync"`
	Notify     NotifyConfig   `yaml:"notify"`
	Auth       AuthConfig     `yaml:"auth"`
	MCP        MCPConfig      `yaml:"mcp"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Name              string        `yaml:"name"`
	Address           string        `yaml:"address"`
	BaseURL           string        `yaml:"base_url"`
	ShutdownGrace     time.Duration `yaml:"shutdown_grace"`
	PreShutdownDelay  time.Duration `yaml:"pre_shutdown_delay"` // readiness drain before closing listeners
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// LogConfig configures the default slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DatabaseConfig configures the backing store.
type DatabaseConfig struct {
	Driver         string `yaml:"driver"` // memory, postgres, sqlite
	DSN            string `yaml:"dsn"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	SkipMigrations bool   `yaml:"skip_migrations"`
}

// CacheConfig configures the in-process cache.
type CacheConfig struct {
	MaxMemoryBytes    int64         `yaml:"max_memory_bytes"`
	DefaultTTL        time.Duration `yaml:"default_ttl"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	CompressThreshold int           `yaml:"compress_threshold"`
	TenantTTL         time.Duration `yaml:"tenant_ttl"`
}

// LiveSyncConfig configures live synchronization clients.
type LiveSyncConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// NotifyConfig configures notification dispatch.
type NotifyConfig struct {
	BatchSize   int         `yaml:"batch_size"`
	FrontendURL string      `yaml:"frontend_url"`
	Email       EmailConfig `yaml:"email"`
	Push        PushConfig  `yaml:"push"`
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	TLS      bool   `yaml:"tls"`
}

// PushConfig configures the webhook push channel.
type PushConfig struct {
	Enabled    bool          `yaml:"enabled"`
	WebhookURL string        `yaml:"webhook_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
}

// AuthConfig configures authentication.
type AuthConfig struct {
	AllowAnonymous bool        `yaml:"allow_anonymous"` // default: false
	JWT            JWTConfig   `yaml:"jwt"`
	APIKeys        []APIKeyDef `yaml:"api_keys"`
}

// JWTConfig configures bearer token validation.
type JWTConfig struct {
	Issuer        string        `yaml:"issuer"`
	SigningKey    string        `yaml:"signing_key"`
	RoleClaimPath string        `yaml:"role_claim_path"`
	Leeway        time.Duration `yaml:"leeway"`
}

// Enabled reports whether JWT authentication is configured.
func (j JWTConfig) Enabled() bool {
	return j.Issuer != "" || j.SigningKey != ""
}

// APIKeyDef defines a service API key by its bcrypt hash.
type APIKeyDef struct {
	Name  string   `yaml:"name"`
	Hash  string   `yaml:"hash"`
	Roles []string `yaml:"roles"`
}

// MCPConfig configures the operator MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads, expands and defaults the configuration at path.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data and decodes it.
func Parse(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = CurrentVersion
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = "helix"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownGrace == 0 {
		cfg.Server.ShutdownGrace = 25 * time.Second
	}
	if cfg.Server.PreShutdownDelay == 0 {
		cfg.Server.PreShutdownDelay = 2 * time.Second
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverMemory
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Cache.MaxMemoryBytes == 0 {
		cfg.Cache.MaxMemoryBytes = 100 << 20
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = time.Hour
	}
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = 5 * time.Minute
	}
	if cfg.Cache.CompressThreshold == 0 {
		cfg.Cache.CompressThreshold = 1024
	}
	if cfg.Cache.TenantTTL == 0 {
		cfg.Cache.TenantTTL = 5 * time.Minute
	}
	if cfg.LiveSync.PollInterval == 0 {
		cfg.LiveSync.PollInterval = 10 * time.Second
	}
	if cfg.Notify.BatchSize == 0 {
		cfg.Notify.BatchSize = 10
	}
	if cfg.Notify.Email.Port == 0 {
		cfg.Notify.Email.Port = 587
	}
	if cfg.Notify.Push.Timeout == 0 {
		cfg.Notify.Push.Timeout = 10 * time.Second
	}
	if cfg.Auth.JWT.RoleClaimPath == "" {
		cfg.Auth.JWT.RoleClaimPath = "roles"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.APIVersion != CurrentVersion {
		errs = append(errs, fmt.Sprintf("unsupported apiVersion %q", c.APIVersion))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for driver "+c.Database.Driver)
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown database.driver %q", c.Database.Driver))
	}

	if c.Cache.MaxMemoryBytes < 0 || c.Cache.DefaultTTL < 0 || c.Cache.SweepInterval < 0 {
		errs = append(errs, "cache sizes and durations must not be negative")
	}
	if c.LiveSync.PollInterval < 0 || c.LiveSync.FetchTimeout < 0 {
		errs = append(errs, "livesync durations must not be negative")
	}
	if c.Notify.BatchSize < 0 {
		errs = append(errs, "notify.batch_size must not be negative")
	}

	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" {
			errs = append(errs, "notify.email.host is required when email is enabled")
		}
		if c.Notify.Email.From == "" {
			errs = append(errs, "notify.email.from is required when email is enabled")
		}
	}
	if c.Notify.Push.Enabled && c.Notify.Push.WebhookURL == "" {
		errs = append(errs, "notify.push.webhook_url is required when push is enabled")
	}

	if c.Auth.JWT.Enabled() {
		if c.Auth.JWT.Issuer == "" {
			errs = append(errs, "auth.jwt.issuer is required")
		}
		if len(c.Auth.JWT.SigningKey) < minSigningKeyBytes {
			errs = append(errs, fmt.Sprintf("auth.jwt.signing_key must be at least %d bytes", minSigningKeyBytes))
		}
	}
	for i, k := range c.Auth.APIKeys {
		if k.Name == "" || k.Hash == "" {
			errs = append(errs, fmt.Sprintf("auth.api_keys[%d] requires name and hash", i))
		}
	}
	if !c.Auth.AllowAnonymous && !c.Auth.JWT.Enabled() && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, "auth requires jwt or api_keys unless allow_anonymous is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Handler builds the slog handler described by the log section.
func (l LogConfig) Handler(w io.Writer) (slog.Handler, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.NewTextHandler(w, opts), nil
	}
	return slog.NewJSONHandler(w, opts), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
