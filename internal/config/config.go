package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/airflowiq/hub/internal/models"
	"github.com/spf13/viper"
)

const (
	BackendPostgres  = "postgres"
	BackendPostgREST = "postgrest"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   PostgresConfig   `mapstructure:"database"`
	Backend    BackendConfig    `mapstructure:"backend"`
	PostgREST  PostgRESTConfig  `mapstructure:"postgrest"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// BackendConfig selects the data-query collaborator
type BackendConfig struct {
	Kind          string `mapstructure:"kind"`
	ReadingsTable string `mapstructure:"readings_table"`
	DevicesTable  string `mapstructure:"devices_table"`
}

// PostgRESTConfig points at the hosted REST data API
type PostgRESTConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	AveragesTTL time.Duration `mapstructure:"averages_ttl"`
}

type MonitoringConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// DashboardConfig drives the terminal dashboard client
type DashboardConfig struct {
	HubURL          string        `mapstructure:"hub_url"`
	UserID          string        `mapstructure:"user_id"`
	AccessToken     string        `mapstructure:"access_token"`
	DeviceIDs       []string      `mapstructure:"device_ids"`
	WindowHours     int           `mapstructure:"window_hours"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Metric          string        `mapstructure:"metric"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("AIRFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// setDefaults registers every key so that env-only values are picked up by Unmarshal
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	// Backend defaults
	v.SetDefault("backend.kind", BackendPostgres)
	v.SetDefault("backend.readings_table", "sensor_logs")
	v.SetDefault("backend.devices_table", "devices")

	// PostgREST defaults
	v.SetDefault("postgrest.url", "")
	v.SetDefault("postgrest.api_key", "")
	v.SetDefault("postgrest.timeout", "10s")
	v.SetDefault("postgrest.retry_count", 2)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.averages_ttl", "15s")

	// Monitoring defaults
	v.SetDefault("monitoring.log_level", "info")

	// Dashboard defaults
	v.SetDefault("dashboard.hub_url", "http://localhost:8080")
	v.SetDefault("dashboard.user_id", "")
	v.SetDefault("dashboard.access_token", "")
	v.SetDefault("dashboard.device_ids", []string{})
	v.SetDefault("dashboard.window_hours", 24)
	v.SetDefault("dashboard.refresh_interval", "30s")
	v.SetDefault("dashboard.metric", "temp")
}

func validateConfig(config *Config) error {
	switch config.Backend.Kind {
	case BackendPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case BackendPostgREST:
		if config.PostgREST.URL == "" {
			return fmt.Errorf("postgrest url is required")
		}
		if config.PostgREST.APIKey == "" {
			return fmt.Errorf("postgrest api key is required")
		}
	default:
		return fmt.Errorf("unknown backend %q", config.Backend.Kind)
	}
	if config.Backend.ReadingsTable == "" {
		return fmt.Errorf("readings table is required")
	}
	if config.Dashboard.WindowHours < 0 || config.Dashboard.WindowHours > models.MaxWindowHours {
		return fmt.Errorf("dashboard window hours must be between 0 and %d", models.MaxWindowHours)
	}
	if config.Dashboard.RefreshInterval < 0 {
		return fmt.Errorf("dashboard refresh interval must not be negative")
	}
	return nil
}
