package config

import (
	"net"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level    string
	Timezone string
}

// AdminConfig holds the optional operational listener settings.
// An empty Addr disables the admin listener.
type AdminConfig struct {
	Addr string
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	ServiceName string
	Endpoint    string
	Protocol    string
	Sampler     string
	SamplerArg  string
	SDKDisabled bool
}

// Enabled reports whether traces should be exported.
func (t TracingConfig) Enabled() bool {
	return !t.SDKDisabled && t.Endpoint != ""
}

// AppConfig is the centralized configuration struct for the application.
// Every field has a default, so an empty environment serves on 0.0.0.0:80.
type AppConfig struct {
	AppHost            string
	Port               string
	ShutdownTimeoutSec int
	Log                LogConfig
	Admin              AdminConfig
	Tracing            TracingConfig
}

// Addr is the public listen address.
func (c *AppConfig) Addr() string {
	return net.JoinHostPort(c.AppHost, c.Port)
}

// ShutdownTimeout is the graceful shutdown budget.
func (c *AppConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

// Location resolves Log.Timezone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Log.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the file.
func Load() *AppConfig {
	endpoint := getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	if endpoint == "" {
		endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	}

	return &AppConfig{
		AppHost:            getEnv("APP_HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "80"),
		ShutdownTimeoutSec: getEnvInt("SHUTDOWN_TIMEOUT_SEC", 5),
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Timezone: getEnv("APP_TIMEZONE", "UTC"),
		},
		Admin: AdminConfig{
			Addr: getEnv("ADMIN_ADDR", ""),
		},
		Tracing: TracingConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "frontend"),
			Endpoint:    endpoint,
			Protocol:    getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			Sampler:     getEnv("OTEL_TRACES_SAMPLER", "parentbased_traceidratio"),
			SamplerArg:  getEnv("OTEL_TRACES_SAMPLER_ARG", "1.0"),
			SDKDisabled: getEnvBool("OTEL_SDK_DISABLED", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
