package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	NATSURL           string
	AuditSubject      string
	ActivityCacheTTL  time.Duration
	AuditRetention    time.Duration
	AuditPruneEvery   time.Duration
	DefaultGradeScale GradeScaleConfig
}

// GradeScaleConfig bounds grade values for tenants with no explicit scale.
type GradeScaleConfig struct {
	Min float64
	Max float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "School Management API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("audit.subject", "audit.activity")
	v.SetDefault("activity.cache_ttl", "5m")
	v.SetDefault("audit.retention", "2160h")
	v.SetDefault("audit.prune_every", "1h")
	v.SetDefault("grade.scale_min", 5.0)
	v.SetDefault("grade.scale_max", 10.0)

	cacheTTL, err := parseDuration(v, "activity.cache_ttl", "5m")
	if err != nil {
		return Config{}, fmt.Errorf("invalid activity cache ttl: %w", err)
	}

	retention, err := parseDuration(v, "audit.retention", "2160h")
	if err != nil {
		return Config{}, fmt.Errorf("invalid audit retention: %w", err)
	}

	pruneEvery, err := parseDuration(v, "audit.prune_every", "1h")
	if err != nil {
		return Config{}, fmt.Errorf("invalid audit prune interval: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		NATSURL:          v.GetString("nats.url"),
		AuditSubject:     v.GetString("audit.subject"),
		ActivityCacheTTL: cacheTTL,
		AuditRetention:   retention,
		AuditPruneEvery:  pruneEvery,
		DefaultGradeScale: GradeScaleConfig{
			Min: v.GetFloat64("grade.scale_min"),
			Max: v.GetFloat64("grade.scale_max"),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DefaultGradeScale.Min >= cfg.DefaultGradeScale.Max {
		return Config{}, fmt.Errorf("grade scale min must be below max")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key, fallback string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		raw = fallback
	}

	return time.ParseDuration(raw)
}
