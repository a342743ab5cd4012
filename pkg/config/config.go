package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	AI            AIConfig
	Chat          ChatConfig
	Security      SecurityConfig
	Logging       LoggingConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Vault         VaultConfig
	Observability ObservabilityConfig
	OpenAPI       OpenAPIConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	Env             string        `env:"APP_ENV" envDefault:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// GRPCPort enables the gRPC health endpoint when set.
	GRPCPort string `env:"GRPC_PORT"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver      string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host        string        `env:"DB_HOST" envDefault:"localhost"`
	Port        string        `env:"DB_PORT" envDefault:"5432"`
	User        string        `env:"DB_USER" envDefault:"postgres"`
	Password    string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name        string        `env:"DB_NAME" envDefault:"novel_forge"`
	SSLMode     string        `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxConns    int           `env:"DB_MAX_CONNS" envDefault:"20"`
	Timeout     time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
	AutoMigrate bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// AIConfig describes the upstream chat-completions provider.
type AIConfig struct {
	BaseURL        string        `env:"AI_API_BASE_URL"`
	APIKey         string        `env:"AI_API_KEY"`
	Model          string        `env:"AI_MODEL"`
	RequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"60s"`
	// BreakerFailures consecutive provider failures stop calls for BreakerCooldown.
	BreakerFailures uint          `env:"AI_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"AI_BREAKER_COOLDOWN" envDefault:"30s"`
}

type ChatConfig struct {
	// StreamIdleTimeout closes a downstream stream with no activity.
	StreamIdleTimeout    time.Duration `env:"CHAT_STREAM_IDLE_TIMEOUT" envDefault:"60s"`
	MaxConcurrentStreams int           `env:"CHAT_MAX_CONCURRENT_STREAMS" envDefault:"64"`
	// LockTTL bounds how long a conversation turn lock lives in redis.
	LockTTL time.Duration `env:"CHAT_LOCK_TTL" envDefault:"5m"`
	// LockWait bounds how long a new turn waits for a busy conversation.
	LockWait time.Duration `env:"CHAT_LOCK_WAIT" envDefault:"30s"`
}

type SecurityConfig struct {
	RateLimit      float64  `env:"RATE_LIMIT" envDefault:"5"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type CacheConfig struct {
	Enabled     bool          `env:"CACHE_ENABLED" envDefault:"true"`
	TTL         time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	MaxSize     int           `env:"CACHE_MAX_SIZE" envDefault:"1000"`
	PurgeWindow time.Duration `env:"CACHE_PURGE_WINDOW" envDefault:"10m"`
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Addr     string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type VaultConfig struct {
	Enabled     bool   `env:"VAULT_ENABLED" envDefault:"false"`
	Address     string `env:"VAULT_ADDR" envDefault:"http://127.0.0.1:8200"`
	Token       string `env:"VAULT_TOKEN"`
	SecretsPath string `env:"VAULT_SECRETS_PATH" envDefault:"secret/data/novel-forge"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"novel-forge"`
}

type OpenAPIConfig struct {
	// SchemaPath enables request validation when set.
	SchemaPath string `env:"OPENAPI_SCHEMA_PATH"`
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Parse reads configuration from the process environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Load reads an optional .env file, parses the environment and stores the
// result as the process-wide configuration.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()
	return cfg, nil
}

// Get returns the configuration stored by Load, parsing the environment on
// first use.
func Get() *Config {
	mu.RLock()
	cfg := instance
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// ValidateAI checks the upstream settings the chat pipeline cannot run without.
func (c *Config) ValidateAI() error {
	if c.AI.BaseURL == "" {
		return fmt.Errorf("AI_API_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.AI.BaseURL); err != nil {
		return fmt.Errorf("AI_API_BASE_URL is invalid: %w", err)
	}
	if c.AI.Model == "" {
		return fmt.Errorf("AI_MODEL is required")
	}
	return nil
}

// DSN returns the key/value connection string used by gorm.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the postgres:// connection URL used by migrations.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
