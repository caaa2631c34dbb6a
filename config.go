package resultmap

import (
	"strings"
	"time"
)

// Config holds everything needed to boot a session factory.
type Config struct {
	Dialect     DialectConfig     `json:"dialect" mapstructure:"dialect"`
	Definitions DefinitionsConfig `json:"definitions" mapstructure:"definitions"`
	Resolution  ResolutionConfig  `json:"resolution" mapstructure:"resolution"`
	Database    DatabaseConfig    `json:"database" mapstructure:"database"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// DialectConfig selects the built-in dialect by name.
type DialectConfig struct {
	Name string `json:"name" mapstructure:"name"`
}

// DefinitionsConfig tells the factory where mapping definition documents live.
type DefinitionsConfig struct {
	Directory         string   `json:"directory" mapstructure:"directory"`
	ValidateDocuments bool     `json:"validateDocuments" mapstructure:"validate_documents"`
	S3                S3Config `json:"s3" mapstructure:"s3"`
}

// S3Config contains settings for loading definition documents from a bucket
type S3Config struct {
	Bucket          string `json:"bucket" mapstructure:"bucket"`
	Prefix          string `json:"prefix" mapstructure:"prefix"`
	Region          string `json:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"accessKeyId" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secretAccessKey" mapstructure:"secret_access_key"`
	UsePathStyle    bool   `json:"usePathStyle" mapstructure:"use_path_style"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// ResolutionConfig controls memoization of resolved mappings
type ResolutionConfig struct {
	CacheEnabled   bool `json:"cacheEnabled" mapstructure:"cache_enabled"`
	ValidateOnBoot bool `json:"validateOnBoot" mapstructure:"validate_on_boot"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Driver         string        `json:"driver" mapstructure:"driver"`
	Host           string        `json:"host" mapstructure:"host"`
	Port           int           `json:"port" mapstructure:"port"`
	Database       string        `json:"database" mapstructure:"database"`
	Username       string        `json:"username" mapstructure:"username"`
	Password       string        `json:"password" mapstructure:"password"`
	SSLMode        string        `json:"sslMode" mapstructure:"ssl_mode"`
	MaxConnections int           `json:"maxConnections" mapstructure:"max_connections"`
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`
	UseIAMAuth     bool          `json:"useIamAuth" mapstructure:"use_iam_auth"`
	Region         string        `json:"region" mapstructure:"region"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Dialect: DialectConfig{
			Name: "postgresql",
		},
		Definitions: DefinitionsConfig{
			ValidateDocuments: true,
		},
		Resolution: ResolutionConfig{
			CacheEnabled:   true,
			ValidateOnBoot: true,
		},
		Database: DatabaseConfig{
			Driver:         "pgx",
			Host:           "localhost",
			Port:           5432,
			SSLMode:        "disable",
			MaxConnections: 10,
			Timeout:        30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

var validDrivers = map[string]struct{}{
	"pgx": {}, "postgres": {}, "sqlite3": {}, "duckdb": {},
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Dialect.Name) == "" {
		return &ConfigError{Field: "dialect.name", Message: "must not be empty"}
	}

	if c.Definitions.S3.Enabled() && c.Definitions.S3.Region == "" && c.Definitions.S3.Endpoint == "" {
		return &ConfigError{Field: "definitions.s3.region", Message: "region or endpoint is required when a bucket is set"}
	}

	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Database.Timeout < 0 {
		return &ConfigError{Field: "database.timeout", Message: "must not be negative"}
	}

	if _, ok := validDrivers[c.Database.Driver]; !ok {
		return &ConfigError{Field: "database.driver", Message: "must be one of pgx, postgres, sqlite3, duckdb"}
	}

	if c.Database.UseIAMAuth && c.Database.Region == "" {
		return &ConfigError{Field: "database.region", Message: "is required for IAM authentication"}
	}

	if _, ok := validLogLevels[strings.ToLower(c.Logging.Level)]; !ok {
		return &ConfigError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return &ConfigError{Field: "logging.format", Message: "must be json or console"}
	}

	return nil
}
