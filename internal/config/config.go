// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection;
// nothing reads ambient globals after Load returns.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for CORS allowlisting.
	BaseURL string

	// MigrationsPath is the directory holding SQL migration files.
	MigrationsPath string

	// Database holds MySQL connection settings.
	Database DatabaseConfig

	// Auth holds token and password-hashing settings.
	Auth AuthConfig

	// Subscriptions is the ordered set of valid subscription tiers.
	// The first entry is the default assigned at signup.
	Subscriptions []string

	// Upload holds avatar upload settings.
	Upload UploadConfig
}

// DatabaseConfig holds MySQL connection parameters. Individual fields are
// read from separate env vars so container orchestrators can manage each
// independently. If DATABASE_URL is set, it takes precedence.
type DatabaseConfig struct {
	// Host is the MySQL address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MySQL username (default: "accounts").
	User string

	// Password is the MySQL password (default: "accounts").
	Password string

	// Name is the database name (default: "accounts").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// AuthConfig holds session-token and password-hashing settings. It is
// handed to the token issuer and password hasher at construction so the
// signing secret and work factor have an explicit lifecycle (process start
// to shutdown) instead of being ambient lookups.
type AuthConfig struct {
	// SecretKey signs session tokens (HMAC). Must be 32+ chars in production.
	SecretKey string

	// TokenTTL is how long an issued session token stays valid.
	TokenTTL time.Duration

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int
}

// UploadConfig holds avatar upload settings.
type UploadConfig struct {
	// MaxSize is the maximum upload file size in bytes.
	MaxSize int64

	// AvatarDir is the directory where processed avatars are stored.
	// Served statically at /avatars.
	AvatarDir string

	// TmpDir is the staging directory for in-flight uploads. Empty means
	// the OS default temp directory.
	TmpDir string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "accounts"),
			Password:        getEnv("DB_PASSWORD", "accounts"),
			Name:            getEnv("DB_NAME", "accounts"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Auth: AuthConfig{
			SecretKey:  getEnv("SECRET_KEY", ""),
			TokenTTL:   getEnvDuration("TOKEN_TTL", 23*time.Hour),
			BcryptCost: getEnvInt("BCRYPT_COST", 10),
		},

		Subscriptions: splitList(getEnv("SUBSCRIPTION_TIERS", "starter,pro,business")),

		Upload: UploadConfig{
			MaxSize:   getEnvInt64("MAX_UPLOAD_SIZE", 5*1024*1024), // 5MB
			AvatarDir: getEnv("AVATAR_DIR", "./public/avatars"),
			TmpDir:    getEnv("UPLOAD_TMP_DIR", ""),
		},
	}

	if len(cfg.Subscriptions) == 0 {
		return nil, fmt.Errorf("SUBSCRIPTION_TIERS must name at least one tier")
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// DefaultSubscription returns the tier assigned to new accounts.
func (c *Config) DefaultSubscription() string {
	return c.Subscriptions[0]
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "23h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// splitList splits a comma-separated env value into trimmed, non-empty parts.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
