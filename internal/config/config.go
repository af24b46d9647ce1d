package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DevJWTSecret is only accepted when the environment is a development one
const DevJWTSecret = "dev-secret-key"

// Config represents the application configuration shared by both services
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	IGDB     IGDBConfig     `yaml:"igdb"`
	Warmup   WarmupConfig   `yaml:"warmup"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// CacheConfig selects the backend used to memoize catalog responses
type CacheConfig struct {
	Backend string `yaml:"backend"` // memory or redis
	Prefix  string `yaml:"prefix"`
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	Topic         string        `yaml:"topic"`
	GroupID       string        `yaml:"group_id"`
	Enabled       bool          `yaml:"enabled"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
	Environment string        `yaml:"environment"`
}

// IGDBConfig holds catalog API credentials and endpoints
type IGDBConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// WarmupConfig holds reference data warmup worker configuration
type WarmupConfig struct {
	Interval time.Duration `yaml:"interval"`
	Enabled  bool          `yaml:"enabled"`
}

// HTTPConfig holds cross-cutting HTTP middleware settings
type HTTPConfig struct {
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RateLimit       int           `yaml:"rate_limit"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the configured environment tolerates dev defaults
func (c *AuthConfig) IsDevelopment() bool {
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "test", "testing":
		return true
	}
	return false
}

// Validate rejects configurations that must not reach production
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret {
		if !c.Auth.IsDevelopment() {
			return fmt.Errorf("auth.jwt_secret must be set in %q environment", c.Auth.Environment)
		}
		c.Auth.JWTSecret = DevJWTSecret
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// orDefault assigns def to *field when it holds the zero value
func orDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

// applyDefaults fills every setting the file left empty
func (c *Config) applyDefaults() {
	orDefault(&c.Server.Port, 8080)
	orDefault(&c.Server.ReadTimeout, 5*time.Second)
	orDefault(&c.Server.WriteTimeout, 15*time.Second)
	orDefault(&c.Server.IdleTimeout, 2*time.Minute)

	orDefault(&c.Redis.Addr, "localhost:6379")
	orDefault(&c.Redis.PoolSize, 20)
	orDefault(&c.Redis.MinIdleConns, 2)
	orDefault(&c.Redis.DialTimeout, 5*time.Second)
	orDefault(&c.Redis.ReadTimeout, 3*time.Second)
	orDefault(&c.Redis.WriteTimeout, 3*time.Second)

	orDefault(&c.Postgres.Host, "localhost")
	orDefault(&c.Postgres.Port, 5432)
	orDefault(&c.Postgres.MaxConnections, 20)
	orDefault(&c.Postgres.MinConnections, 2)
	orDefault(&c.Postgres.MaxConnLifetime, time.Hour)
	orDefault(&c.Postgres.MaxConnIdleTime, 30*time.Minute)

	orDefault(&c.Cache.Backend, "memory")
	orDefault(&c.Cache.Prefix, "igdb:")

	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	orDefault(&c.Kafka.Topic, "library-activity")
	orDefault(&c.Kafka.GroupID, "library-activity-feed")
	orDefault(&c.Kafka.RetryAttempts, 3)
	orDefault(&c.Kafka.RetryDelay, time.Second)

	orDefault(&c.Auth.TokenExpiry, 30*time.Minute)
	orDefault(&c.Auth.Environment, "development")

	orDefault(&c.IGDB.BaseURL, "https://api.igdb.com/v4")
	orDefault(&c.IGDB.TokenURL, "https://id.twitch.tv/oauth2/token")
	orDefault(&c.IGDB.Timeout, 10*time.Second)

	orDefault(&c.Warmup.Interval, 12*time.Hour)

	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	orDefault(&c.HTTP.RateLimit, 100)
	orDefault(&c.HTTP.RateLimitWindow, time.Minute)
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Warmup.Enabled = true
	cfg.Auth.JWTSecret = DevJWTSecret
	return cfg
}
