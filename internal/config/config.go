// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Seed sources understood by SEED_SOURCE.
const (
	SeedSourceBuiltin  = "builtin"
	SeedSourceFile     = "file"
	SeedSourceDatabase = "database"
)

// Status modes understood by STATUS_MODE.
const (
	StatusModeStored  = "stored"
	StatusModeDerived = "derived"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port              string `mapstructure:"PORT"`
	Env               string `mapstructure:"APP_ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	SessionTTLMinutes int    `mapstructure:"SESSION_TTL_MINUTES"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags      string `mapstructure:"FEATURE_FLAGS"`

	SeedSource     string `mapstructure:"SEED_SOURCE"`
	SeedFile       string `mapstructure:"SEED_FILE"`
	StatusMode     string `mapstructure:"STATUS_MODE"`
	WriteQueueSize int    `mapstructure:"WRITE_QUEUE_SIZE"`

	// SeedAllowDangling keeps seed records whose references do not resolve.
	SeedAllowDangling bool `mapstructure:"SEED_ALLOW_DANGLING"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBPath                   string `mapstructure:"DB_PATH"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	RedisURL           string `mapstructure:"REDIS_URL"`
	CacheTTLSeconds    int    `mapstructure:"CACHE_TTL_SECONDS"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	// RateLimitWritesFailClosed rejects writes with 503 while the rate limit
	// store is unreachable or unconfigured.
	RateLimitWritesFailClosed bool `mapstructure:"RATE_LIMIT_WRITES_FAIL_CLOSED"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
	EnableRepoLogging  bool    `mapstructure:"ENABLE_REPO_LOGGING"`
	EnableWSLogging    bool    `mapstructure:"ENABLE_WS_LOGGING"`
	LogLevel           string  `mapstructure:"LOG_LEVEL"`
}

// LoadConfig loads application configuration from file and environment variables.
// A .env file in the working directory, if present, fills in variables that
// are not already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; environment variables and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("SESSION_TTL_MINUTES", 24*60)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:8081,http://localhost:19006")
	viper.SetDefault("FEATURE_FLAGS", "moment_writes=on,live_feed=on")

	viper.SetDefault("SEED_SOURCE", SeedSourceBuiltin)
	viper.SetDefault("SEED_FILE", "")
	viper.SetDefault("SEED_ALLOW_DANGLING", false)
	viper.SetDefault("STATUS_MODE", StatusModeStored)
	viper.SetDefault("WRITE_QUEUE_SIZE", 64)

	viper.SetDefault("DB_DRIVER", "")
	viper.SetDefault("DB_PATH", "moments.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "moments")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)

	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CACHE_TTL_SECONDS", 60)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	viper.SetDefault("RATE_LIMIT_WRITES_FAIL_CLOSED", false)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
	viper.SetDefault("ENABLE_REPO_LOGGING", true)
	viper.SetDefault("ENABLE_WS_LOGGING", true)
	viper.SetDefault("LOG_LEVEL", "info")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.SeedSource = strings.ToLower(strings.TrimSpace(c.SeedSource))
	c.StatusMode = strings.ToLower(strings.TrimSpace(c.StatusMode))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
}

// IsProduction reports whether the configuration targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.SeedSource {
	case SeedSourceBuiltin:
	case SeedSourceFile:
		if c.SeedFile == "" {
			errs = append(errs, errors.New("SEED_FILE is required when SEED_SOURCE is 'file'"))
		}
	case SeedSourceDatabase:
		if c.DBDriver == "" {
			errs = append(errs, errors.New("DB_DRIVER is required when SEED_SOURCE is 'database'"))
		}
	default:
		errs = append(errs, fmt.Errorf("SEED_SOURCE must be one of builtin, file, database (got %q)", c.SeedSource))
	}

	if c.StatusMode != StatusModeStored && c.StatusMode != StatusModeDerived {
		errs = append(errs, fmt.Errorf("STATUS_MODE must be 'stored' or 'derived' (got %q)", c.StatusMode))
	}

	switch c.DBDriver {
	case "", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be empty, 'sqlite' or 'postgres' (got %q)", c.DBDriver))
	}

	if c.WriteQueueSize < 1 {
		errs = append(errs, errors.New("WRITE_QUEUE_SIZE must be positive"))
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		errs = append(errs, errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1"))
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be changed from the default value in production"))
		}
		if len(c.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			errs = append(errs, errors.New("a strong DB_PASSWORD is required in production"))
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return errors.Join(errs...)
}
