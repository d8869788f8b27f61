package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "JND"

// Load reads configuration from defaults, an optional config.yaml in the
// working directory and JND_-prefixed environment variables, in increasing
// order of precedence. The result is validated before it is returned.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given YAML file instead of
// searching the working directory. An empty path searches as Load does.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about.
	for _, key := range []string{
		"database.url",
		"uploads.minio.endpoint",
		"uploads.minio.access_key",
		"uploads.minio.secret_key",
		"uploads.minio.bucket",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Uploads.Backend == "minio" {
		m := cfg.Uploads.Minio
		if m.Endpoint == "" || m.Bucket == "" {
			return errors.New("configuration validation failed: uploads.minio.endpoint and uploads.minio.bucket are required for the minio backend")
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.retry_attempts", 4)
	v.SetDefault("database.retry_initial_interval", "50ms")

	v.SetDefault("uploads.backend", "dir")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.url_prefix", "/jnd/api/review/upload/")
	v.SetDefault("uploads.minio.use_ssl", true)

	v.SetDefault("review.target_test_type", "patient")
	v.SetDefault("review.avoid_repeat_subject", true)
	v.SetDefault("review.random_tie_break", true)
}
