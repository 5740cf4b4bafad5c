package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Lending   LendingConfig
	Sweep     SweepConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port         string
	GRPCPort     string // empty disables the gRPC health endpoint
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

type AuthConfig struct {
	AllowAdminSignup bool
}

// LendingConfig drives the loan deadline policy. A zero LoanDuration disables the
// hard deadline; an empty PolicyCutoff disables the daily cutoff.
type LendingConfig struct {
	LoanDuration time.Duration
	PolicyCutoff string // "HH:MM"
	Location     *time.Location
}

type SweepConfig struct {
	Enabled  bool
	Interval time.Duration
	LeaseTTL time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// TracingConfig enables span export when Endpoint (an OTLP/HTTP URL) is set.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	// LENDING_POLICY_CUTOFF="" must disable the cutoff rather than fall back to the default
	v.AllowEmptyEnv(true)

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_GRPC_PORT", "9090")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("MONGODB_DATABASE", "lending")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ISSUER", "lending-service")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 60)
	v.SetDefault("AUTH_ALLOW_ADMIN_SIGNUP", false)
	v.SetDefault("LENDING_LOAN_DURATION", "168h")
	v.SetDefault("LENDING_POLICY_CUTOFF", "22:00")
	v.SetDefault("LENDING_TIMEZONE", "Local")
	v.SetDefault("SWEEP_ENABLED", true)
	v.SetDefault("SWEEP_INTERVAL", "60s")
	v.SetDefault("SWEEP_LEASE_TTL", "50s")
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "lending-reports")
	v.SetDefault("OTEL_SERVICE_NAME", "lending-service")

	loc, err := time.LoadLocation(v.GetString("LENDING_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("LENDING_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			GRPCPort:     v.GetString("SERVER_GRPC_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			Issuer:         v.GetString("JWT_ISSUER"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		Auth: AuthConfig{
			AllowAdminSignup: v.GetBool("AUTH_ALLOW_ADMIN_SIGNUP"),
		},
		Lending: LendingConfig{
			LoanDuration: v.GetDuration("LENDING_LOAN_DURATION"),
			PolicyCutoff: strings.TrimSpace(v.GetString("LENDING_POLICY_CUTOFF")),
			Location:     loc,
		},
		Sweep: SweepConfig{
			Enabled:  v.GetBool("SWEEP_ENABLED"),
			Interval: v.GetDuration("SWEEP_INTERVAL"),
			LeaseTTL: v.GetDuration("SWEEP_LEASE_TTL"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Tracing: TracingConfig{
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set; set a secure value in production")
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" && c.Server.Environment != "development" {
		return fmt.Errorf("JWT_SECRET is required in %s", c.Server.Environment)
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if c.Lending.LoanDuration < 0 {
		return fmt.Errorf("LENDING_LOAN_DURATION must not be negative")
	}
	if c.Lending.PolicyCutoff != "" {
		if _, _, err := ParseCutoff(c.Lending.PolicyCutoff); err != nil {
			return fmt.Errorf("LENDING_POLICY_CUTOFF: %w", err)
		}
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return nil
}

// ParseCutoff parses a "HH:MM" daily cutoff.
func ParseCutoff(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
