package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Security SecurityConfig `json:"security" yaml:"security"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	NATS     NATSConfig     `json:"nats" yaml:"nats"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
}

type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Name     string `json:"name" yaml:"name"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
	MaxConns int    `json:"max_conns" yaml:"max_conns"`
	MinConns int    `json:"min_conns" yaml:"min_conns"`
}

// SecurityConfig holds the token-signing configuration. There is no password
// storage in this service, so it carries only what TokenSigner needs.
type SecurityConfig struct {
	JWTSecret        string        `json:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer        string        `json:"jwt_issuer" yaml:"jwt_issuer"`
	AccessTokenTTL   time.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
	ResolveTokenTTL  time.Duration `json:"resolve_token_ttl" yaml:"resolve_token_ttl"`
}

type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	Output     string `json:"output" yaml:"output"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAge     int    `json:"max_age" yaml:"max_age"`
}

// CacheConfig is loaded from the cache section and the CACHE_* variables. The
// token store and the distributed credential lock are built from RedisConfig,
// not from this section.
type CacheConfig struct {
	Type     string        `json:"type" yaml:"type"`
	Host     string        `json:"host" yaml:"host"`
	Port     int           `json:"port" yaml:"port"`
	Password string        `json:"password" yaml:"password"`
	DB       int           `json:"db" yaml:"db"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// NATSConfig reaches the gamespace catalog, the scope resolver, and the
// social/profile bridge, all consumed over request-reply.
type NATSConfig struct {
	URL                  string `json:"url" yaml:"url"`
	Cluster              string `json:"cluster" yaml:"cluster"`
	Username             string `json:"username" yaml:"username"`
	Password             string `json:"password" yaml:"password"`
	CompressionType      string `json:"compression_type" yaml:"compression_type"`
	CompressionThreshold int    `json:"compression_threshold" yaml:"compression_threshold"`
}

type RedisConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	PoolSize int    `json:"pool_size" yaml:"pool_size"`
}

// EnvMapping defines environment variable mapping.
type EnvMapping struct {
	EnvKey    string
	FieldPath string
	Type      string
	Required  bool
}

// EnvCache provides caching for environment variables.
type EnvCache struct {
	cache map[string]string
	mu    sync.RWMutex
}

// ConfigOverrider handles environment variable overrides.
type ConfigOverrider struct {
	config      *Config
	envCache    *EnvCache
	envMappings []EnvMapping
}

var envMappings = []EnvMapping{
	{"SERVER_HOST", "Server.Host", "string", false},
	{"SERVER_PORT", "Server.Port", "int", false},
	{"SERVER_READ_TIMEOUT", "Server.ReadTimeout", "duration", false},
	{"SERVER_WRITE_TIMEOUT", "Server.WriteTimeout", "duration", false},
	{"SERVER_IDLE_TIMEOUT", "Server.IdleTimeout", "duration", false},

	{"DB_HOST", "Database.Host", "string", false},
	{"DB_PORT", "Database.Port", "int", false},
	{"DB_USER", "Database.User", "string", false},
	{"DB_PASSWORD", "Database.Password", "string", false},
	{"DB_NAME", "Database.Name", "string", false},
	{"DB_SSL_MODE", "Database.SSLMode", "string", false},
	{"DB_MAX_CONNS", "Database.MaxConns", "int", false},
	{"DB_MIN_CONNS", "Database.MinConns", "int", false},

	{"JWT_SECRET", "Security.JWTSecret", "string", false},
	{"JWT_ISSUER", "Security.JWTIssuer", "string", false},
	{"ACCESS_TOKEN_TTL", "Security.AccessTokenTTL", "duration", false},
	{"RESOLVE_TOKEN_TTL", "Security.ResolveTokenTTL", "duration", false},

	{"REDIS_HOST", "Redis.Host", "string", false},
	{"REDIS_PORT", "Redis.Port", "int", false},
	{"REDIS_PASSWORD", "Redis.Password", "string", false},
	{"REDIS_DB", "Redis.DB", "int", false},
	{"REDIS_POOL_SIZE", "Redis.PoolSize", "int", false},

	{"NATS_URL", "NATS.URL", "string", false},
	{"NATS_CLUSTER", "NATS.Cluster", "string", false},
	{"NATS_USERNAME", "NATS.Username", "string", false},
	{"NATS_PASSWORD", "NATS.Password", "string", false},

	{"LOG_LEVEL", "Logging.Level", "string", false},
	{"LOG_FORMAT", "Logging.Format", "string", false},
	{"LOG_OUTPUT", "Logging.Output", "string", false},

	{"CACHE_TYPE", "Cache.Type", "string", false},
	{"CACHE_HOST", "Cache.Host", "string", false},
	{"CACHE_PORT", "Cache.Port", "int", false},
	{"CACHE_PASSWORD", "Cache.Password", "string", false},
}

func NewEnvCache() *EnvCache {
	return &EnvCache{cache: make(map[string]string)}
}

func (e *EnvCache) Get(key string) string {
	e.mu.RLock()
	if val, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return val
	}
	e.mu.RUnlock()

	val := os.Getenv(key)
	e.mu.Lock()
	e.cache[key] = val
	e.mu.Unlock()
	return val
}

func NewConfigOverrider(config *Config) *ConfigOverrider {
	return &ConfigOverrider{
		config:      config,
		envCache:    NewEnvCache(),
		envMappings: envMappings,
	}
}

func (c *ConfigOverrider) Override() error {
	for _, mapping := range c.envMappings {
		if val := c.envCache.Get(mapping.EnvKey); val != "" {
			if err := c.setFieldByPath(mapping.FieldPath, val); err != nil {
				return fmt.Errorf("failed to set %s: %w", mapping.FieldPath, err)
			}
		}
	}
	return nil
}

func (c *ConfigOverrider) setFieldByPath(fieldPath, value string) error {
	switch fieldPath {
	case "Server.Host":
		c.config.Server.Host = value
	case "Server.Port":
		return setPositiveInt(&c.config.Server.Port, fieldPath, value)
	case "Server.ReadTimeout":
		return setDuration(&c.config.Server.ReadTimeout, fieldPath, value)
	case "Server.WriteTimeout":
		return setDuration(&c.config.Server.WriteTimeout, fieldPath, value)
	case "Server.IdleTimeout":
		return setDuration(&c.config.Server.IdleTimeout, fieldPath, value)

	case "Database.Host":
		c.config.Database.Host = value
	case "Database.Port":
		return setPositiveInt(&c.config.Database.Port, fieldPath, value)
	case "Database.User":
		c.config.Database.User = value
	case "Database.Password":
		c.config.Database.Password = value
	case "Database.Name":
		c.config.Database.Name = value
	case "Database.SSLMode":
		c.config.Database.SSLMode = value
	case "Database.MaxConns":
		return setPositiveInt(&c.config.Database.MaxConns, fieldPath, value)
	case "Database.MinConns":
		return setNonNegativeInt(&c.config.Database.MinConns, fieldPath, value)

	case "Security.JWTSecret":
		c.config.Security.JWTSecret = value
	case "Security.JWTIssuer":
		c.config.Security.JWTIssuer = value
	case "Security.AccessTokenTTL":
		return setDuration(&c.config.Security.AccessTokenTTL, fieldPath, value)
	case "Security.ResolveTokenTTL":
		return setDuration(&c.config.Security.ResolveTokenTTL, fieldPath, value)

	case "Redis.Host":
		c.config.Redis.Host = value
	case "Redis.Port":
		return setPositiveInt(&c.config.Redis.Port, fieldPath, value)
	case "Redis.Password":
		c.config.Redis.Password = value
	case "Redis.DB":
		return setNonNegativeInt(&c.config.Redis.DB, fieldPath, value)
	case "Redis.PoolSize":
		return setPositiveInt(&c.config.Redis.PoolSize, fieldPath, value)

	case "NATS.URL":
		c.config.NATS.URL = value
	case "NATS.Cluster":
		c.config.NATS.Cluster = value
	case "NATS.Username":
		c.config.NATS.Username = value
	case "NATS.Password":
		c.config.NATS.Password = value

	case "Logging.Level":
		c.config.Logging.Level = value
	case "Logging.Format":
		c.config.Logging.Format = value
	case "Logging.Output":
		c.config.Logging.Output = value

	case "Cache.Type":
		c.config.Cache.Type = value
	case "Cache.Host":
		c.config.Cache.Host = value
	case "Cache.Port":
		return setPositiveInt(&c.config.Cache.Port, fieldPath, value)
	case "Cache.Password":
		c.config.Cache.Password = value

	default:
		return fmt.Errorf("unknown field path: %s", fieldPath)
	}
	return nil
}

func setPositiveInt(dst *int, fieldPath, value string) error {
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", fieldPath, value, err)
	}
	if intVal <= 0 {
		return fmt.Errorf("invalid %s value %q: must be positive", fieldPath, value)
	}
	*dst = intVal
	return nil
}

func setNonNegativeInt(dst *int, fieldPath, value string) error {
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", fieldPath, value, err)
	}
	if intVal < 0 {
		return fmt.Errorf("invalid %s value %q: must be non-negative", fieldPath, value)
	}
	*dst = intVal
	return nil
}

func setDuration(dst *time.Duration, fieldPath, value string) error {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", fieldPath, value, err)
	}
	*dst = duration
	return nil
}

// LoadConfig loads configuration from a YAML file, then applies environment
// variable overrides and generates a JWT secret if none is configured.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	overrider := NewConfigOverrider(&config)
	if err := overrider.Override(); err != nil {
		return nil, fmt.Errorf("failed to override config with environment variables: %w", err)
	}

	if err := validateAndGenerateSecrets(&config); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &config, nil
}

func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "",
			Name:     "accountsvc",
			SSLMode:  "disable",
			MaxConns: 25,
			MinConns: 5,
		},
		Security: SecurityConfig{
			JWTSecret:       "your-secret-key",
			JWTIssuer:       "accountsvc",
			AccessTokenTTL:  time.Hour,
			ResolveTokenTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
		Cache: CacheConfig{
			Type:     "redis",
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			TTL:      5 * time.Minute,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
	}
}

// validateAndGenerateSecrets replaces an empty or placeholder JWT secret with
// a freshly generated random one, and in production rejects a database
// connection with SSL disabled.
func validateAndGenerateSecrets(config *Config) error {
	if config.Security.JWTSecret == "" || config.Security.JWTSecret == "your-secret-key" {
		secret, err := generateRandomSecret(32)
		if err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		config.Security.JWTSecret = secret
		fmt.Println("WARNING: Generated new JWT secret. Please set JWT_SECRET environment variable for production.")
	}

	if isProduction() {
		if config.Database.SSLMode == "disable" {
			return fmt.Errorf("SSL must be enabled in production environment")
		}
	}

	return nil
}

func generateRandomSecret(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func isProduction() bool {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	return env == "production" || env == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetDatabaseDSN returns the database connection string.
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(getEnv("ENVIRONMENT", "development")) == "production"
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(getEnv("ENVIRONMENT", "development")) == "development"
}

func (c *Config) IsTesting() bool {
	return strings.ToLower(getEnv("ENVIRONMENT", "development")) == "testing"
}
