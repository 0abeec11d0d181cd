// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string   `yaml:"port"`
	SessionSecret string   `yaml:"session_secret"`
	SessionName   string   `yaml:"session_name"`
	CORSOrigins   []string `yaml:"cors_origins"`
	LogLevel      string   `yaml:"log_level"`
	Debug         bool     `yaml:"debug"`
}

// DatabaseConfig holds connection pool settings.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// OpenTelemetryConfig holds tracing, metrics and log export settings.
type OpenTelemetryConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	Protocol       string  `yaml:"protocol"` // "grpc" or "http"
	Insecure       bool    `yaml:"insecure"`
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	EnableTracing  bool    `yaml:"enable_tracing"`
	EnableMetrics  bool    `yaml:"enable_metrics"`
	EnableLogging  bool    `yaml:"enable_logging"`
	UseAutoSDK     bool    `yaml:"use_auto_sdk"`
	SamplingRate   float64 `yaml:"sampling_rate"`
}

// DailyConfig holds assignment tuning knobs.
type DailyConfig struct {
	// RepeatAvoidDays excludes questions answered correctly within this window.
	RepeatAvoidDays int `yaml:"repeat_avoid_days"`
	// KnownExclusionDays excludes confidence-5 known questions within this window.
	KnownExclusionDays int `yaml:"known_exclusion_days"`
	// CandidatePoolSize caps the eligibility query.
	CandidatePoolSize int `yaml:"candidate_pool_size"`
	// HintTTL is the default generation hint lifetime.
	HintTTL time.Duration `yaml:"hint_ttl"`
}

// Config is the root configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	OpenTelemetry OpenTelemetryConfig `yaml:"open_telemetry"`
	Daily         DailyConfig         `yaml:"daily"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			SessionName: "dailyquiz-session",
			CORSOrigins: []string{"http://localhost:3000"},
			LogLevel:    "info",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		OpenTelemetry: OpenTelemetryConfig{
			Endpoint:       "http://localhost:4317",
			Protocol:       "grpc",
			Insecure:       true,
			ServiceName:    "dailyquiz-backend",
			ServiceVersion: "dev",
			EnableTracing:  true,
			EnableMetrics:  true,
			EnableLogging:  true,
			SamplingRate:   1.0,
		},
		Daily: DailyConfig{
			RepeatAvoidDays:    7,
			KnownExclusionDays: 60,
			CandidatePoolSize:  50,
			HintTTL:            24 * time.Hour,
		},
	}
}

// NewConfig loads configuration from the YAML file named by DAILYQUIZ_CONFIG_FILE
// (when set), then applies environment variable overrides. A .env file in the
// working directory is loaded first when present.
func NewConfig() (result0 *Config, err error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("DAILYQUIZ_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	return cfg, nil
}

func (c *Config) overrideFromEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.SessionSecret, "SESSION_SECRET")
	setString(&c.Server.LogLevel, "LOG_LEVEL")
	setBool(&c.Server.Debug, "DEBUG")

	setString(&c.Database.URL, "DATABASE_URL")
	setInt(&c.Database.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	setInt(&c.Database.MaxIdleConns, "DB_MAX_IDLE_CONNS")

	setString(&c.OpenTelemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.OpenTelemetry.Protocol, "OTEL_EXPORTER_OTLP_PROTOCOL")
	setString(&c.OpenTelemetry.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&c.OpenTelemetry.EnableTracing, "OTEL_ENABLE_TRACING")
	setBool(&c.OpenTelemetry.EnableMetrics, "OTEL_ENABLE_METRICS")
	setBool(&c.OpenTelemetry.EnableLogging, "OTEL_ENABLE_LOGGING")
	setBool(&c.OpenTelemetry.UseAutoSDK, "OTEL_USE_AUTO_SDK")

	setInt(&c.Daily.RepeatAvoidDays, "DAILY_REPEAT_AVOID_DAYS")
	setInt(&c.Daily.KnownExclusionDays, "DAILY_KNOWN_EXCLUSION_DAYS")
	setInt(&c.Daily.CandidatePoolSize, "DAILY_CANDIDATE_POOL_SIZE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
