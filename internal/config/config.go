package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lakegate/internal/database"
	"github.com/lakegate/internal/platform"
)

// ConfigurationError reports missing or invalid settings. Fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// PlatformConfig holds workspace connection and auth settings
type PlatformConfig struct {
	Host         string `yaml:"host"`
	Token        string `yaml:"token,omitempty"`
	ClientID     string `yaml:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty"`

	// PerRequestAuth uses the caller's forwarded OAuth token instead of a
	// service credential (deployed multi-tenant mode)
	PerRequestAuth bool `yaml:"per_request_auth,omitempty"`

	HTTPTimeout string `yaml:"http_timeout,omitempty"`
}

// WarehouseConfig holds SQL warehouse settings
type WarehouseConfig struct {
	ID           string `yaml:"id"`
	PollInterval string `yaml:"poll_interval,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	ByteLimit    int64  `yaml:"byte_limit,omitempty"`
	Catalog      string `yaml:"catalog,omitempty"`
	Schema       string `yaml:"schema,omitempty"`
}

// LakebaseConfig holds managed Postgres settings. Host may be left empty
// when Instance is set; it is then resolved via the platform API at startup.
type LakebaseConfig struct {
	Instance      string `yaml:"instance,omitempty"`
	Host          string `yaml:"host,omitempty"`
	Port          int    `yaml:"port,omitempty"`
	Database      string `yaml:"database,omitempty"`
	User          string `yaml:"user,omitempty"`
	SSLMode       string `yaml:"ssl_mode,omitempty"`
	RefreshMargin string `yaml:"refresh_margin,omitempty"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Path           string        `yaml:"path"`
	MaxMemoryMB    int           `yaml:"max_memory_mb"`
	ValueLogMaxMB  int           `yaml:"value_log_max_mb"`
	DefaultTTL     time.Duration `yaml:"default_ttl"`
	UserTTL        time.Duration `yaml:"user_ttl"`
	CompactOnClose bool          `yaml:"compact_on_close"`
	GCInterval     time.Duration `yaml:"gc_interval"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // log file path (optional)
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // number of old log files to keep
	MaxAge     int    `yaml:"max_age"`     // days
	Console    bool   `yaml:"console"`     // also log to console
	JSON       bool   `yaml:"json"`        // JSON format instead of text
}

// Config represents the complete application configuration
type Config struct {
	Platform      PlatformConfig  `yaml:"platform"`
	Warehouse     WarehouseConfig `yaml:"warehouse"`
	Lakebase      LakebaseConfig  `yaml:"lakebase"`
	Cache         CacheConfig     `yaml:"cache"`
	ServerLogging LoggingConfig   `yaml:"server_logging"`
	CORSOrigins   []string        `yaml:"cors_origins,omitempty"`
}

// Default configurations
func DefaultWarehouseConfig() WarehouseConfig {
	return WarehouseConfig{
		PollInterval: "500ms",
		Timeout:      "10m",
		ByteLimit:    10 << 20,
	}
}

func DefaultLakebaseConfig() LakebaseConfig {
	return LakebaseConfig{
		Port:          5432,
		Database:      "databricks_postgres",
		SSLMode:       "require",
		RefreshMargin: "5m",
	}
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:        false,
		Path:           "./cache/badger",
		MaxMemoryMB:    256,
		ValueLogMaxMB:  100,
		DefaultTTL:     5 * time.Minute,
		UserTTL:        time.Minute,
		CompactOnClose: true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Console:    true,
		JSON:       false,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// LoadConfig loads configuration from a YAML file. Environment variables
// fill credentials left out of the file.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv fills credentials from the environment when the file omits them,
// so secrets can stay out of config files.
func (c *Config) applyEnv() {
	if c.Platform.Host == "" {
		c.Platform.Host = os.Getenv("LAKEGATE_HOST")
	}
	if c.Platform.Token == "" {
		c.Platform.Token = os.Getenv("LAKEGATE_TOKEN")
	}
	if c.Platform.ClientID == "" {
		c.Platform.ClientID = os.Getenv("LAKEGATE_CLIENT_ID")
	}
	if c.Platform.ClientSecret == "" {
		c.Platform.ClientSecret = os.Getenv("LAKEGATE_CLIENT_SECRET")
	}
	if c.Warehouse.ID == "" {
		c.Warehouse.ID = os.Getenv("LAKEGATE_WAREHOUSE_ID")
	}
}

// validate ensures the configuration is valid and sets defaults where needed
func (c *Config) validate() error {
	if c.Platform.Host == "" {
		return &ConfigurationError{Field: "platform.host", Reason: "is required"}
	}
	if !c.Platform.PerRequestAuth && c.Platform.Token == "" && c.Platform.ClientID == "" {
		return &ConfigurationError{Field: "platform", Reason: "token or client_id/client_secret is required unless per_request_auth is enabled"}
	}
	if c.Platform.ClientID != "" && c.Platform.ClientSecret == "" {
		return &ConfigurationError{Field: "platform.client_secret", Reason: "is required with client_id"}
	}
	if c.Platform.HTTPTimeout == "" {
		c.Platform.HTTPTimeout = "30s"
	}

	if c.Warehouse.ID == "" {
		return &ConfigurationError{Field: "warehouse.id", Reason: "is required"}
	}
	if c.Warehouse.PollInterval == "" {
		c.Warehouse.PollInterval = "500ms"
	}
	if c.Warehouse.Timeout == "" {
		c.Warehouse.Timeout = "10m"
	}
	if c.Warehouse.ByteLimit == 0 {
		c.Warehouse.ByteLimit = 10 << 20
	}

	if c.Lakebase.Instance == "" && c.Lakebase.Host == "" {
		return &ConfigurationError{Field: "lakebase", Reason: "instance or host is required"}
	}
	if c.Lakebase.Port == 0 {
		c.Lakebase.Port = 5432
	}
	if c.Lakebase.Database == "" {
		c.Lakebase.Database = "databricks_postgres"
	}
	if c.Lakebase.SSLMode == "" {
		c.Lakebase.SSLMode = "require"
	}
	if c.Lakebase.RefreshMargin == "" {
		c.Lakebase.RefreshMargin = "5m"
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		c.Cache.Path = "./cache/badger"
	}
	if c.Cache.MaxMemoryMB == 0 {
		c.Cache.MaxMemoryMB = 256
	}
	if c.Cache.ValueLogMaxMB == 0 {
		c.Cache.ValueLogMaxMB = 100
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 5 * time.Minute
	}
	if c.Cache.UserTTL == 0 {
		c.Cache.UserTTL = time.Minute
	}
	if c.Cache.GCInterval == 0 {
		c.Cache.GCInterval = 10 * time.Minute
	}
	if c.Cache.GCDiscardRatio == 0 {
		c.Cache.GCDiscardRatio = 0.5
	}

	if c.ServerLogging.Level == "" {
		c.ServerLogging.Level = "info"
	}
	switch c.ServerLogging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigurationError{Field: "server_logging.level", Reason: "must be one of debug, info, warn, error"}
	}
	if !c.ServerLogging.Console && c.ServerLogging.File == "" {
		c.ServerLogging.Console = true
	}
	if c.ServerLogging.MaxSize == 0 {
		c.ServerLogging.MaxSize = 100
	}
	if c.ServerLogging.MaxBackups == 0 {
		c.ServerLogging.MaxBackups = 3
	}
	if c.ServerLogging.MaxAge == 0 {
		c.ServerLogging.MaxAge = 28
	}

	return nil
}

// CreateExampleConfig creates example configuration file
func CreateExampleConfig(dir string) error {
	config := &Config{
		Platform: PlatformConfig{
			Host:        "https://example.cloud.lakehouse.com",
			HTTPTimeout: "30s",
		},
		Warehouse:     DefaultWarehouseConfig(),
		Lakebase:      DefaultLakebaseConfig(),
		Cache:         DefaultCacheConfig(),
		ServerLogging: DefaultLoggingConfig(),
	}
	config.Warehouse.ID = "your-warehouse-id"
	config.Lakebase.Instance = "your-instance-name"
	config.Lakebase.User = "app-service-principal"

	if err := SaveConfig(config, filepath.Join(dir, "config.example.yaml")); err != nil {
		return fmt.Errorf("failed to create example config: %w", err)
	}

	return nil
}

// ToPlatformConfig converts PlatformConfig to platform.Config
func (c *PlatformConfig) ToPlatformConfig() (*platform.Config, error) {
	httpTimeout, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil {
		return nil, &ConfigurationError{Field: "platform.http_timeout", Reason: err.Error()}
	}

	return &platform.Config{
		Host:           c.Host,
		Token:          c.Token,
		ClientID:       c.ClientID,
		ClientSecret:   c.ClientSecret,
		PerRequestAuth: c.PerRequestAuth,
		HTTPTimeout:    httpTimeout,
	}, nil
}

// ToWarehouseConfig converts WarehouseConfig to database.WarehouseConfig
func (c *WarehouseConfig) ToWarehouseConfig() (*database.WarehouseConfig, error) {
	pollInterval, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return nil, &ConfigurationError{Field: "warehouse.poll_interval", Reason: err.Error()}
	}
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return nil, &ConfigurationError{Field: "warehouse.timeout", Reason: err.Error()}
	}

	return &database.WarehouseConfig{
		WarehouseID:  c.ID,
		PollInterval: pollInterval,
		Timeout:      timeout,
		ByteLimit:    c.ByteLimit,
		Catalog:      c.Catalog,
		Schema:       c.Schema,
	}, nil
}

// ToLakebaseConfig converts LakebaseConfig to database.LakebaseConfig.
// The host may still be empty here; the service facade resolves it from the
// instance name on first use.
func (c *LakebaseConfig) ToLakebaseConfig(perRequestAuth bool) (*database.LakebaseConfig, error) {
	refreshMargin, err := time.ParseDuration(c.RefreshMargin)
	if err != nil {
		return nil, &ConfigurationError{Field: "lakebase.refresh_margin", Reason: err.Error()}
	}

	return &database.LakebaseConfig{
		Host:           c.Host,
		Port:           c.Port,
		Database:       c.Database,
		User:           c.User,
		SSLMode:        c.SSLMode,
		RefreshMargin:  refreshMargin,
		PerRequestAuth: perRequestAuth,
	}, nil
}
