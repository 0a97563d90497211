package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port          string  `env:"PORT,            default=3001"`
	Env           string  `env:"ENV,             default=development"`
	LogLevel      string  `env:"LOG_LEVEL,       default=info"`
	BodyLimit     string  `env:"BODY_LIMIT,      default=1M"`
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT, default=20"`

	Auth  AuthConfig
	Store StoreConfig
	Mongo MongoConfig
	Redis RedisConfig
	Audit AuditConfig
	Seed  SeedConfig
}

type AuthConfig struct {
	AccessSecret       string        `env:"ACCESS_TOKEN_SECRET,        required"`
	RefreshSecret      string        `env:"REFRESH_TOKEN_SECRET,       required"`
	AccessExpiresIn    string        `env:"ACCESS_TOKEN_EXPIRES_IN,    required"`
	RefreshExpiresDays int           `env:"REFRESH_TOKEN_EXPIRES_DAYS, required"`
	BcryptRounds       int           `env:"BCRYPT_SALT_ROUNDS,         default=10"`
	LoginMaxFailures   int           `env:"LOGIN_MAX_FAILURES,         default=5"`
	LoginFailureWindow time.Duration `env:"LOGIN_FAILURE_WINDOW,       default=15m"`

	// Derived by Load.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type StoreConfig struct {
	Driver       string        `env:"STORE_DRIVER,     default=postgres"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	PoolMax      int           `env:"DB_POOL_MAX,      default=10"`
	PoolMin      int           `env:"DB_POOL_MIN,      default=0"`
	PoolIdle     time.Duration `env:"DB_POOL_IDLE,     default=30s"`
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT, default=10s"`
}

// MongoConfig configures the audit trail. An empty URI disables it.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=taskapi"`
}

// RedisConfig configures the login throttle. An empty Addr disables it.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

type SeedConfig struct {
	Enabled  bool   `env:"SEED_ADMIN,          default=false"`
	Email    string `env:"SEED_ADMIN_EMAIL,    default=admin@admin.com"`
	Password string `env:"SEED_ADMIN_PASSWORD"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig
// and validates the derived values. Any absent or malformed required value
// is an error.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for main packages: it panics on error.
func MustLoad(ctx context.Context) *Config {
	cfg, err := Load(ctx)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func (c *Config) validate() error {
	var errs []error

	ttl, err := ParseTTL(c.Auth.AccessExpiresIn)
	if err != nil {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_EXPIRES_IN: %w", err))
	}
	c.Auth.AccessTTL = ttl

	if c.Auth.RefreshExpiresDays < 1 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRES_DAYS must be at least 1"))
	}
	c.Auth.RefreshTTL = time.Duration(c.Auth.RefreshExpiresDays) * 24 * time.Hour

	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.Auth.BcryptRounds < bcrypt.MinCost || c.Auth.BcryptRounds > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_SALT_ROUNDS must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Auth.LoginMaxFailures < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_FAILURES must be at least 1"))
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverMemory))
	}

	if c.Seed.Enabled && c.Seed.Password == "" {
		errs = append(errs, errors.New("SEED_ADMIN_PASSWORD is required when SEED_ADMIN=true"))
	}
	if c.AuthRateLimit <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT must be positive"))
	}

	return errors.Join(errs...)
}

// ParseTTL accepts a Go duration ("15m", "1h30m"), a bare number of seconds
// ("900") or a number of days ("7d").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	var (
		d   time.Duration
		err error
	)
	switch {
	case strings.HasSuffix(s, "d"):
		var days int
		days, err = strconv.Atoi(strings.TrimSuffix(s, "d"))
		d = time.Duration(days) * 24 * time.Hour
	case isDigits(s):
		var secs int64
		secs, err = strconv.ParseInt(s, 10, 64)
		d = time.Duration(secs) * time.Second
	default:
		d, err = time.ParseDuration(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
