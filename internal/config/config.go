package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Uploads  UploadsConfig  `mapstructure:"uploads" validate:"required"`
	Review   ReviewConfig   `mapstructure:"review" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	// RetryAttempts bounds how often a transient failure (deadlock, lock
	// timeout, serialization failure) is retried before it is reported.
	RetryAttempts        int           `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval" validate:"gt=0"`
}

// UploadsConfig selects where recorded task artifacts live.
type UploadsConfig struct {
	Backend   string      `mapstructure:"backend" validate:"required,oneof=dir minio"`
	Dir       string      `mapstructure:"dir" validate:"required_if=Backend dir"`
	URLPrefix string      `mapstructure:"url_prefix" validate:"required"`
	Minio     MinioConfig `mapstructure:"minio"`
}

// MinioConfig contains the object-storage settings used when Backend is "minio".
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ReviewConfig tunes the batch assignment policy.
type ReviewConfig struct {
	// TargetTestType is the test type whose reviewers and subjects count
	// toward a batch's fairness count.
	TargetTestType     string `mapstructure:"target_test_type" validate:"required"`
	AvoidRepeatSubject bool   `mapstructure:"avoid_repeat_subject"`
	RandomTieBreak     bool   `mapstructure:"random_tie_break"`
}
