package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Security  SecurityConfig  `mapstructure:"security"`
	Platforms PlatformsConfig `mapstructure:"platforms"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type SecurityConfig struct {
	// EncryptionKey is the base64-encoded AES key used for token storage.
	EncryptionKey string          `mapstructure:"encryption_key"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// PlatformsConfig carries per-platform app credentials and API overrides.
// BaseURL overrides let integration environments point adapters at a
// sandbox host.
type PlatformsConfig struct {
	Facebook  PlatformAppConfig `mapstructure:"facebook"`
	Instagram PlatformAppConfig `mapstructure:"instagram"`
	LinkedIn  PlatformAppConfig `mapstructure:"linkedin"`
	YouTube   PlatformAppConfig `mapstructure:"youtube"`
	Twitter   PlatformAppConfig `mapstructure:"twitter"`
	WhatsApp  WhatsAppConfig    `mapstructure:"whatsapp"`
}

type PlatformAppConfig struct {
	AppID     string        `mapstructure:"app_id"`
	AppSecret string        `mapstructure:"app_secret"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type WhatsAppConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	RefreshHorizon time.Duration `mapstructure:"refresh_horizon"`
}

type DispatchConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type WebhookConfig struct {
	// VerifyToken is echoed back on subscription handshakes and checked
	// on inbound deliveries.
	VerifyToken string `mapstructure:"verify_token"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); !os.IsNotExist(statErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "crossply")
	v.SetDefault("database.database", "crossply")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h") // 7 days

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 120)
	v.SetDefault("security.rate_limit.burst", 20)

	// Platforms
	v.SetDefault("platforms.facebook.base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("platforms.facebook.timeout", "15s")
	v.SetDefault("platforms.instagram.base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("platforms.instagram.timeout", "30s")
	v.SetDefault("platforms.linkedin.base_url", "https://api.linkedin.com/v2")
	v.SetDefault("platforms.linkedin.timeout", "15s")
	v.SetDefault("platforms.youtube.base_url", "https://www.googleapis.com/upload/youtube/v3")
	v.SetDefault("platforms.youtube.timeout", "60s")
	v.SetDefault("platforms.twitter.base_url", "https://api.twitter.com/2")
	v.SetDefault("platforms.twitter.timeout", "15s")
	v.SetDefault("platforms.whatsapp.base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("platforms.whatsapp.timeout", "15s")

	// Scheduler
	v.SetDefault("scheduler.sweep_interval", "1m")
	v.SetDefault("scheduler.refresh_horizon", "10m")

	// Dispatch
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.initial_backoff", "500ms")
	v.SetDefault("dispatch.max_backoff", "30s")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth + token encryption
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("security.encryption_key", "TOKEN_ENCRYPTION_KEY")

	// Platform app credentials
	v.BindEnv("platforms.facebook.app_id", "FACEBOOK_APP_ID")
	v.BindEnv("platforms.facebook.app_secret", "FACEBOOK_APP_SECRET")
	v.BindEnv("platforms.instagram.app_id", "INSTAGRAM_APP_ID")
	v.BindEnv("platforms.instagram.app_secret", "INSTAGRAM_APP_SECRET")
	v.BindEnv("platforms.linkedin.app_id", "LINKEDIN_CLIENT_ID")
	v.BindEnv("platforms.linkedin.app_secret", "LINKEDIN_CLIENT_SECRET")
	v.BindEnv("platforms.youtube.app_id", "YOUTUBE_CLIENT_ID")
	v.BindEnv("platforms.youtube.app_secret", "YOUTUBE_CLIENT_SECRET")
	v.BindEnv("platforms.twitter.app_id", "TWITTER_CLIENT_ID")
	v.BindEnv("platforms.twitter.app_secret", "TWITTER_CLIENT_SECRET")
	v.BindEnv("platforms.whatsapp.phone_number_id", "WHATSAPP_PHONE_NUMBER_ID")

	// Webhook
	v.BindEnv("webhook.verify_token", "WEBHOOK_VERIFY_TOKEN")
}
