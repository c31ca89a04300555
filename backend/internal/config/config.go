// Package config loads the planning service's runtime configuration from
// the environment (and an optional .env file), following the viper
// pattern used elsewhere in the pack for this shape of service.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the planning service.
type Config struct {
	Server     ServerConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Robustness RobustnessConfig
	Replan     ReplanConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Environment  string        `mapstructure:"ENVIRONMENT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings for internal/store.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
}

// RedisConfig holds Redis connection settings for internal/cache.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// RobustnessConfig holds Monte Carlo sampling defaults read from the
// environment (spec §4.6/§6). The /planning-policy handlers do not read
// it; they fall back to their own built-in sample counts.
type RobustnessConfig struct {
	DefaultSamples    int `mapstructure:"ROBUSTNESS_DEFAULT_SAMPLES"`
	DefaultReEvaluate int `mapstructure:"ROBUSTNESS_REEVALUATE_SAMPLES"`
}

// ReplanConfig holds the default change-budget and monitoring cadence for
// the replan monitor (spec §4.8).
type ReplanConfig struct {
	LockWindowMin       int    `mapstructure:"REPLAN_LOCK_WINDOW_MIN"`
	MaxChangeCount      int    `mapstructure:"REPLAN_MAX_CHANGE_COUNT"`
	MaxTimeShiftMin     int    `mapstructure:"REPLAN_MAX_TIME_SHIFT_MIN"`
	MonitorCronSchedule string `mapstructure:"REPLAN_MONITOR_CRON"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "60s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "wayfare")
	viper.SetDefault("POSTGRES_PASSWORD", "wayfare_secret")
	viper.SetDefault("POSTGRES_DB", "wayfare_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 50)

	viper.SetDefault("ROBUSTNESS_DEFAULT_SAMPLES", 300)
	viper.SetDefault("ROBUSTNESS_REEVALUATE_SAMPLES", 600)

	viper.SetDefault("REPLAN_LOCK_WINDOW_MIN", 30)
	viper.SetDefault("REPLAN_MAX_CHANGE_COUNT", 3)
	viper.SetDefault("REPLAN_MAX_TIME_SHIFT_MIN", 60)
	viper.SetDefault("REPLAN_MONITOR_CRON", "@every 5m")

	// Try to read a .env file; absent in most deployments (e.g. inside a
	// container where env vars are injected directly), so a missing file
	// is not an error.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Environment:  viper.GetString("ENVIRONMENT"),
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetInt("SERVER_PORT"),
			ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
		Robustness: RobustnessConfig{
			DefaultSamples:    viper.GetInt("ROBUSTNESS_DEFAULT_SAMPLES"),
			DefaultReEvaluate: viper.GetInt("ROBUSTNESS_REEVALUATE_SAMPLES"),
		},
		Replan: ReplanConfig{
			LockWindowMin:       viper.GetInt("REPLAN_LOCK_WINDOW_MIN"),
			MaxChangeCount:      viper.GetInt("REPLAN_MAX_CHANGE_COUNT"),
			MaxTimeShiftMin:     viper.GetInt("REPLAN_MAX_TIME_SHIFT_MIN"),
			MonitorCronSchedule: viper.GetString("REPLAN_MONITOR_CRON"),
		},
	}

	return cfg, nil
}
