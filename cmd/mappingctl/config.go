package main

import (
	"fmt"
	"strings"

	"github.com/lychee-technology/resultmap"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "RESULTMAP"

// loadConfig reads an optional mappingctl.yaml (or the file given by --config) and
// RESULTMAP_* environment variables on top of resultmap.DefaultConfig().
func loadConfig(path string) (*resultmap.Config, error) {
	v := viper.New()
	setDefaults(v, resultmap.DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mappingctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config resultmap.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file.
func setDefaults(v *viper.Viper, d *resultmap.Config) {
	v.SetDefault("dialect.name", d.Dialect.Name)

	v.SetDefault("definitions.directory", d.Definitions.Directory)
	v.SetDefault("definitions.validate_documents", d.Definitions.ValidateDocuments)
	v.SetDefault("definitions.s3.bucket", d.Definitions.S3.Bucket)
	v.SetDefault("definitions.s3.prefix", d.Definitions.S3.Prefix)
	v.SetDefault("definitions.s3.region", d.Definitions.S3.Region)
	v.SetDefault("definitions.s3.endpoint", d.Definitions.S3.Endpoint)
	v.SetDefault("definitions.s3.access_key_id", d.Definitions.S3.AccessKeyID)
	v.SetDefault("definitions.s3.secret_access_key", d.Definitions.S3.SecretAccessKey)
	v.SetDefault("definitions.s3.use_path_style", d.Definitions.S3.UsePathStyle)

	v.SetDefault("resolution.cache_enabled", d.Resolution.CacheEnabled)
	v.SetDefault("resolution.validate_on_boot", d.Resolution.ValidateOnBoot)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.username", d.Database.Username)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_connections", d.Database.MaxConnections)
	v.SetDefault("database.timeout", d.Database.Timeout)
	v.SetDefault("database.use_iam_auth", d.Database.UseIAMAuth)
	v.SetDefault("database.region", d.Database.Region)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// newLogger builds the process logger from LoggingConfig.
func newLogger(cfg resultmap.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
