package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"DIR_ENV"`
	LogLevel string `mapstructure:"DIR_LOG_LEVEL"` // overrides the env default when set
	HTTPAddr string `mapstructure:"DIR_HTTP_ADDR"`

	Database DBConfig       `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Type         string `mapstructure:"DIR_DB_TYPE"` // "memory", "postgres", "sqlite"
	DSN          string `mapstructure:"DIR_DB_DSN"`
	MaxOpenConns int    `mapstructure:"DIR_DB_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"DIR_DB_MAX_IDLE_CONNS"`
	SeedFixtures bool   `mapstructure:"DIR_SEED_FIXTURES"`
}

type CacheConfig struct {
	RedisAddr string        `mapstructure:"DIR_REDIS_ADDR"` // empty disables redis
	TTL       time.Duration `mapstructure:"DIR_CACHE_TTL"`
	Size      int           `mapstructure:"DIR_CACHE_SIZE"` // in-process fallback capacity
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"DIR_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"DIR_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("DIR_ENV", "dev")
	v.SetDefault("DIR_LOG_LEVEL", "")
	v.SetDefault("DIR_HTTP_ADDR", ":8080")
	v.SetDefault("DIR_DB_TYPE", "memory")
	v.SetDefault("DIR_DB_DSN", "")
	v.SetDefault("DIR_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DIR_DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DIR_SEED_FIXTURES", false)
	v.SetDefault("DIR_REDIS_ADDR", "")
	v.SetDefault("DIR_CACHE_TTL", "30s")
	v.SetDefault("DIR_CACHE_SIZE", 1024)
	v.SetDefault("DIR_RATE_LIMIT_RPM", 120)
	v.SetDefault("DIR_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// comma-separated lists
	if origins := v.GetString("DIR_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("DIR_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case "memory":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("DIR_DB_DSN is required when DIR_DB_TYPE=%s", c.Database.Type)
		}
	default:
		return fmt.Errorf("invalid DIR_DB_TYPE %q (must be memory, postgres, or sqlite)", c.Database.Type)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("DIR_CACHE_TTL must be positive")
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("DIR_CACHE_SIZE must be positive")
	}
	if c.Security.RateLimitRPM < 0 {
		return fmt.Errorf("DIR_RATE_LIMIT_RPM must not be negative")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
