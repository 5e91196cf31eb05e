// Package config handles application configuration loading.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppName                       string `mapstructure:"app_name"`
	Port                          int    `mapstructure:"port"`
	LogLevel                      string `mapstructure:"log_level"`
	PrettyLogs                    bool   `mapstructure:"pretty_logs"`
	HttpServerWriteTimeoutSeconds int    `mapstructure:"http_server_write_timeout_seconds"`
	HttpServerReadTimeoutSeconds  int    `mapstructure:"http_server_read_timeout_seconds"`
	HttpServerIdleTimeoutSeconds  int    `mapstructure:"http_server_idle_timeout_seconds"`
	ShutdownTimeoutSeconds        int    `mapstructure:"shutdown_timeout_seconds"`

	// Auth Enabled - when false, allows X-Tenant-ID and X-User-ID headers for testing
	AuthEnabled bool `mapstructure:"auth_enabled"`

	// Database
	DatabaseDriver              string        `mapstructure:"db_driver"`
	DatabaseHost                string        `mapstructure:"db_host"`
	DatabasePort                string        `mapstructure:"db_port"`
	DatabaseUserName            string        `mapstructure:"db_user_name"`
	DatabasePassword            string        `mapstructure:"db_password"`
	DatabaseName                string        `mapstructure:"db_name"`
	DatabaseSSLMode             string        `mapstructure:"db_ssl_mode"`
	DatabaseMaxOpenConns        int           `mapstructure:"db_max_open_conns"`
	DatabaseMaxIdleConns        int           `mapstructure:"db_max_idle_conns"`
	DatabaseConnMaxLifetime     time.Duration `mapstructure:"db_conn_max_lifetime"`
	DatabaseMigrationFolderPath string        `mapstructure:"db_migration_folder_path"`

	// Redis (poll locks)
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     int    `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// Kafka (lifecycle events)
	KafkaBrokers       []string `mapstructure:"kafka_brokers"`
	KafkaEventsTopic   string   `mapstructure:"kafka_events_topic"`
	KafkaEventsEnabled bool     `mapstructure:"kafka_events_enabled"`

	// Transport
	AS2TimeoutSeconds      int `mapstructure:"as2_timeout_seconds"`
	SFTPDialTimeoutSeconds int `mapstructure:"sftp_dial_timeout_seconds"`
}

// LoadConfig reads configuration from environment variables with defaults,
// plus an optional sedge.yaml for local development.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("sedge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")

	v.SetDefault("app_name", "sedge-api")
	v.SetDefault("port", 3000)
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_logs", false)
	v.SetDefault("http_server_write_timeout_seconds", 10)
	v.SetDefault("http_server_read_timeout_seconds", 10)
	v.SetDefault("http_server_idle_timeout_seconds", 10)
	v.SetDefault("shutdown_timeout_seconds", 30)

	v.SetDefault("auth_enabled", false)

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user_name", "")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "sedge")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 10)
	v.SetDefault("db_conn_max_lifetime", "10s")
	v.SetDefault("db_migration_folder_path", "db/pg")

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("kafka_events_topic", "edi-transaction-events")
	v.SetDefault("kafka_events_enabled", true)

	v.SetDefault("as2_timeout_seconds", 30)
	v.SetDefault("sftp_dial_timeout_seconds", 15)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults carry production.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
