package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MinScreenIdleTTL bounds SCREEN_IDLE_TTL from below. Idle lists are swept
// every half TTL.
const MinScreenIdleTTL = time.Minute

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	BackendURL     string        `mapstructure:"BACKEND_URL"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StorageDriver  string        `mapstructure:"STORAGE_DRIVER"`
	SQLitePath     string        `mapstructure:"SQLITE_PATH"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	SessionKey     string        `mapstructure:"SESSION_KEY"`
	ClientCookie   string        `mapstructure:"CLIENT_COOKIE"`
	CookieSecure   bool          `mapstructure:"COOKIE_SECURE"`
	LoginRate      int           `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	LoginBurst     int           `mapstructure:"LOGIN_BURST"`
	ScreenIdleTTL  time.Duration `mapstructure:"SCREEN_IDLE_TTL"`
}

var keys = []string{
	"PORT",
	"ENV",
	"BACKEND_URL",
	"BACKEND_TIMEOUT",
	"REQUEST_TIMEOUT",
	"STORAGE_DRIVER",
	"SQLITE_PATH",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"SESSION_KEY",
	"CLIENT_COOKIE",
	"COOKIE_SECURE",
	"LOGIN_RATE_PER_MINUTE",
	"LOGIN_BURST",
	"SCREEN_IDLE_TTL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_URL", "http://localhost:8080/api")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STORAGE_DRIVER", DriverSQLite)
	v.SetDefault("SQLITE_PATH", "medadmin.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_KEY", "user")
	v.SetDefault("CLIENT_COOKIE", "medadmin_client")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 10)
	v.SetDefault("LOGIN_BURST", 5)
	v.SetDefault("SCREEN_IDLE_TTL", "30m")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	return cfg, nil
}

// Warnings lists settings that are allowed but unsafe outside development.
func (c *Config) Warnings() []string {
	var w []string
	if !c.CookieSecure {
		w = append(w, "client cookie is issued without the Secure flag")
	}
	if c.StorageDriver == DriverMemory {
		w = append(w, "memory storage loses every session on restart")
	}
	return w
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is usable before the server starts.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BACKEND_URL scheme must be http or https, got %q", u.Scheme)
	}

	switch c.StorageDriver {
	case DriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORAGE_DRIVER=memory loses every session on restart and is not allowed in production")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_DRIVER is %q", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER is %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q, %q, or %q, got %q",
			DriverMemory, DriverSQLite, DriverPostgres, c.StorageDriver)
	}

	if c.SessionKey == "" {
		return fmt.Errorf("SESSION_KEY must not be empty")
	}
	if c.ClientCookie == "" {
		return fmt.Errorf("CLIENT_COOKIE must not be empty")
	}
	if c.IsProduction() && !c.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true in production")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_MINUTE and LOGIN_BURST must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.ScreenIdleTTL < MinScreenIdleTTL {
		return fmt.Errorf("SCREEN_IDLE_TTL must be at least %s, got %s", MinScreenIdleTTL, c.ScreenIdleTTL)
	}
	return nil
}
