package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig                `mapstructure:"server"`
	Log       LogConfig                   `mapstructure:"log"`
	Redis     RedisConfig                 `mapstructure:"redis"`
	RateLimit RateLimitConfig             `mapstructure:"rate_limit"`
	Store     StoreConfig                 `mapstructure:"store"`
	Cache     CacheConfig                 `mapstructure:"cache"`
	Tracing   TracingConfig               `mapstructure:"tracing"`
	Providers map[string]ProviderSettings `mapstructure:"providers"`
	APIKeys   []string                    `mapstructure:"api_keys"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type StoreConfig struct {
	// Path is the sqlite DSN. Empty disables attempt history.
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	MaxHandles    int           `mapstructure:"max_handles"`
	HandleTTL     time.Duration `mapstructure:"handle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	ModelListTTL  time.Duration `mapstructure:"model_list_ttl"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ProviderSettings is the per-provider block. Enabled only matters for the
// on-device provider, which has no credentials to check.
type ProviderSettings struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	DefaultModel string `mapstructure:"default_model"`
	Enabled      *bool  `mapstructure:"enabled"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	// Default Values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("store.path", "relay.db")
	v.SetDefault("cache.max_handles", 10)
	v.SetDefault("cache.handle_ttl", "5m")
	v.SetDefault("cache.sweep_interval", "60s")
	v.SetDefault("cache.model_list_ttl", "60s")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("providers.openai.default_model", "gpt-4o-mini")
	v.SetDefault("providers.openrouter.default_model", "openai/gpt-4o-mini")
	v.SetDefault("providers.ollama.default_model", "llama3.2")
	v.SetDefault("providers.apple.default_model", "apple-on-device")
	// Empty defaults register the keys so AutomaticEnv can bind them.
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.openrouter.api_key", "")
	v.SetDefault("providers.openrouter.base_url", "")
	v.SetDefault("providers.ollama.base_url", "")

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve API Keys
	for name, p := range cfg.Providers {
		if strings.HasPrefix(p.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(p.APIKey, "ENV:")
			// Check process environment first (explicit override)
			val := os.Getenv(envVar)
			if val == "" {
				// Then check viper (which might have it from other sources)
				val = v.GetString(envVar)
			}
			p.APIKey = val
			cfg.Providers[name] = p
		}
	}

	return &cfg, nil
}
