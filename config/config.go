// Package config loads service configuration from the environment with an
// optional YAML overlay, and validates it at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names selectable via INFERENCE_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Session backend names selectable via SESSION_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds the full service configuration.
type Config struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	Provider        string `yaml:"provider"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	Model           string `yaml:"model"`
	GuardrailModel  string `yaml:"guardrail_model"`

	SessionBackend string `yaml:"session_backend"`
	SQLitePath     string `yaml:"sqlite_path"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`

	RateLimitPerMinute float64 `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	GuardrailCacheSize int           `yaml:"guardrail_cache_size"`
	GuardrailCacheTTL  time.Duration `yaml:"guardrail_cache_ttl"`

	ExecutionTimeout time.Duration `yaml:"execution_timeout"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// Default returns the baseline configuration before env and file overlays.
func Default() Config {
	return Config{
		Environment:        "development",
		Host:               "0.0.0.0",
		Port:               8000,
		LogLevel:           "info",
		LogFormat:          "json",
		Provider:           ProviderOpenAI,
		Model:              "gpt-4o-mini",
		GuardrailModel:     "gpt-4o-mini",
		SessionBackend:     BackendMemory,
		SQLitePath:         "./erni_agents.db",
		RedisAddr:          "localhost:6379",
		RateLimitPerMinute: 60,
		RateLimitBurst:     10,
		GuardrailCacheSize: 1000,
		GuardrailCacheTTL:  time.Hour,
		ExecutionTimeout:   30 * time.Second,
		CORSOrigins:        []string{"http://localhost:3000"},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if set), then individual environment variables on top.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.Host, "HOST")
	setInt(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")

	setString(&cfg.Provider, "INFERENCE_PROVIDER")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Model, "MAIN_AGENT_MODEL")
	setString(&cfg.GuardrailModel, "GUARDRAIL_MODEL")

	setString(&cfg.SessionBackend, "SESSION_BACKEND")
	setString(&cfg.SQLitePath, "SQLITE_PATH")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")

	setFloat(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setInt(&cfg.RateLimitBurst, "RATE_LIMIT_BURST")

	setInt(&cfg.GuardrailCacheSize, "GUARDRAIL_CACHE_SIZE")
	setDuration(&cfg.GuardrailCacheTTL, "GUARDRAIL_CACHE_TTL")
	setDuration(&cfg.ExecutionTimeout, "EXECUTION_TIMEOUT")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSOrigins = origins
	}
}

// Validate reports configuration errors as one combined error.
func (c Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range", c.Port))
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, "OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, "ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown inference provider %q", c.Provider))
	}

	switch c.SessionBackend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.RedisAddr == "" {
			errs = append(errs, "REDIS_ADDR is required for the redis session backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown session backend %q", c.SessionBackend))
	}

	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, "rate limit per minute must be positive")
	}
	if c.GuardrailCacheSize <= 0 {
		errs = append(errs, "guardrail cache size must be positive")
	}
	if c.ExecutionTimeout <= 0 {
		errs = append(errs, "execution timeout must be positive")
	}

	if c.Environment == "production" {
		for _, origin := range c.CORSOrigins {
			if strings.Contains(origin, "localhost") {
				errs = append(errs, "localhost must not be a CORS origin in production")
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
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

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
