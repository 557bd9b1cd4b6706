// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultTopN is the number of holdings shown in the ranked chart
	DefaultTopN = 5
	// MaxTopN caps the top-N selector regardless of holding count
	MaxTopN = 20
)

// Config holds application configuration
type Config struct {
	Host            string
	Port            int
	DevMode         bool
	LogLevel        string
	LogPretty       bool
	DatabasePath    string        // sqlite path or file: URI for the snapshot store
	UploadDir       string        // staging directory for uploaded CSV files
	UploadRetention time.Duration // staged uploads older than this are purged
	CleanupSchedule string        // cron expression (with seconds) for the purge job
	MaxUploadBytes  int64
	DefaultTopN     int
	APIURL          string        // backend base URL used by etfctl
	ClientTimeout   time.Duration // per-request timeout for the backend client
}

// fileConfig mirrors Config for TOML files; durations are strings ("15m").
type fileConfig struct {
	Server struct {
		Host    string `toml:"host"`
		Port    int    `toml:"port"`
		DevMode *bool  `toml:"dev_mode"`
	} `toml:"server"`
	Logging struct {
		Level  string `toml:"level"`
		Pretty *bool  `toml:"pretty"`
	} `toml:"logging"`
	Storage struct {
		DatabasePath string `toml:"database_path"`
	} `toml:"storage"`
	Uploads struct {
		Dir             string `toml:"dir"`
		Retention       string `toml:"retention"`
		CleanupSchedule string `toml:"cleanup_schedule"`
		MaxBytes        int64  `toml:"max_bytes"`
	} `toml:"uploads"`
	Dashboard struct {
		DefaultTopN int `toml:"default_top_n"`
	} `toml:"dashboard"`
	Client struct {
		APIURL  string `toml:"api_url"`
		Timeout string `toml:"timeout"`
	} `toml:"client"`
}

// NewDefaultConfig returns the configuration used when nothing is overridden
func NewDefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8000,
		LogLevel:        "info",
		DatabasePath:    "file:etfmonitor?mode=memory&cache=shared",
		UploadDir:       "data/uploads",
		UploadRetention: time.Hour,
		CleanupSchedule: "0 */10 * * * *",
		MaxUploadBytes:  32 << 20,
		DefaultTopN:     DefaultTopN,
		APIURL:          "http://localhost:8000",
		ClientTimeout:   30 * time.Second,
	}
}

// Load reads configuration with priority: defaults -> TOML files -> .env/environment.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Server.Host != "" {
		c.Host = fc.Server.Host
	}
	if fc.Server.Port != 0 {
		c.Port = fc.Server.Port
	}
	if fc.Server.DevMode != nil {
		c.DevMode = *fc.Server.DevMode
	}
	if fc.Logging.Level != "" {
		c.LogLevel = fc.Logging.Level
	}
	if fc.Logging.Pretty != nil {
		c.LogPretty = *fc.Logging.Pretty
	}
	if fc.Storage.DatabasePath != "" {
		c.DatabasePath = fc.Storage.DatabasePath
	}
	if fc.Uploads.Dir != "" {
		c.UploadDir = fc.Uploads.Dir
	}
	if fc.Uploads.Retention != "" {
		d, err := time.ParseDuration(fc.Uploads.Retention)
		if err != nil {
			return fmt.Errorf("uploads.retention: %w", err)
		}
		c.UploadRetention = d
	}
	if fc.Uploads.CleanupSchedule != "" {
		c.CleanupSchedule = fc.Uploads.CleanupSchedule
	}
	if fc.Uploads.MaxBytes != 0 {
		c.MaxUploadBytes = fc.Uploads.MaxBytes
	}
	if fc.Dashboard.DefaultTopN != 0 {
		c.DefaultTopN = fc.Dashboard.DefaultTopN
	}
	if fc.Client.APIURL != "" {
		c.APIURL = fc.Client.APIURL
	}
	if fc.Client.Timeout != "" {
		d, err := time.ParseDuration(fc.Client.Timeout)
		if err != nil {
			return fmt.Errorf("client.timeout: %w", err)
		}
		c.ClientTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Host = getEnv("HOST", c.Host)
	c.Port = getEnvAsInt("PORT", c.Port)
	c.DevMode = getEnvAsBool("DEV_MODE", c.DevMode)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPretty = getEnvAsBool("LOG_PRETTY", c.LogPretty)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.UploadRetention = getEnvAsDuration("UPLOAD_RETENTION", c.UploadRetention)
	c.CleanupSchedule = getEnv("CLEANUP_SCHEDULE", c.CleanupSchedule)
	c.MaxUploadBytes = int64(getEnvAsInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.DefaultTopN = getEnvAsInt("DEFAULT_TOP_N", c.DefaultTopN)
	c.APIURL = getEnv("API_URL", c.APIURL)
	c.ClientTimeout = getEnvAsDuration("CLIENT_TIMEOUT", c.ClientTimeout)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload directory is required")
	}
	if c.UploadRetention <= 0 {
		return fmt.Errorf("upload retention must be positive, got %s", c.UploadRetention)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.DefaultTopN < 1 || c.DefaultTopN > MaxTopN {
		return fmt.Errorf("default top N must be between 1 and %d, got %d", MaxTopN, c.DefaultTopN)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("client timeout must be positive, got %s", c.ClientTimeout)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
