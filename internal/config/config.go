// Package config loads service configuration from the environment and an optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the flat set of settings shared by every binary
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	APIV1Str string `mapstructure:"API_V1_STR"`

	SecretKey      string `mapstructure:"SECRET_KEY"`
	WebhookAPIKeys string `mapstructure:"WEBHOOK_API_KEYS"`

	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	RedisURL     string `mapstructure:"REDIS_URL"`
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`

	DorraAPIURL  string        `mapstructure:"DORRA_API_URL"`
	DorraAPIKey  string        `mapstructure:"DORRA_API_KEY"`
	EMRTimeout   time.Duration `mapstructure:"EMR_TIMEOUT"`
	EMRAITimeout time.Duration `mapstructure:"EMR_AI_TIMEOUT"`

	GeminiAPIKey string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string        `mapstructure:"GEMINI_MODEL"`
	AITimeout    time.Duration `mapstructure:"AI_TIMEOUT"`

	TermiiAPIKey   string `mapstructure:"TERMII_API_KEY"`
	TermiiSenderID string `mapstructure:"TERMII_SENDER_ID"`
	TermiiBaseURL  string `mapstructure:"TERMII_BASE_URL"`
	AlertPhone     string `mapstructure:"ALERT_PHONE"`

	OTLPEndpoint   string `mapstructure:"OTLP_ENDPOINT"`
	TracingEnabled bool   `mapstructure:"TRACING_ENABLED"`
	ServiceName    string `mapstructure:"SERVICE_NAME"`
}

var defaults = map[string]any{
	"PORT":             "8080",
	"ENV":              "production",
	"LOG_LEVEL":        "info",
	"API_V1_STR":       "/api/v1",
	"SECRET_KEY":       "",
	"WEBHOOK_API_KEYS": "",
	"DATABASE_URL":     "",
	"REDIS_URL":        "",
	"KAFKA_BROKERS":    "localhost:9092",
	"DORRA_API_URL":    "https://hackathon-api.aheadafrica.org",
	"DORRA_API_KEY":    "",
	"EMR_TIMEOUT":      "10s",
	"EMR_AI_TIMEOUT":   "15s",
	"GEMINI_API_KEY":   "",
	"GEMINI_MODEL":     "gemini-2.5-flash",
	"AI_TIMEOUT":       "30s",
	"TERMII_API_KEY":   "",
	"TERMII_SENDER_ID": "N-Alert",
	"TERMII_BASE_URL":  "https://api.ng.termii.com",
	"ALERT_PHONE":      "",
	"OTLP_ENDPOINT":    "localhost:4317",
	"TRACING_ENABLED":  false,
	"SERVICE_NAME":     "mamasafe",
}

// Load reads .env when present, then the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.APIV1Str = "/" + strings.Trim(cfg.APIV1Str, "/")
	return cfg, nil
}

// IsDev reports whether ENV is development
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "development")
}

// Brokers splits KAFKA_BROKERS
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}
