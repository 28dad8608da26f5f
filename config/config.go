// Package config resolves the server configuration from the environment.
//
// Values are read once at start-up (after an optional .env file is loaded) and the
// resulting Config is treated as immutable for the lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds runtime settings for the alumni server.
type Config struct {
	HTTPAddr  string
	JWTSecret string

	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	RedisAddr        string
	RedisDB          int
	LoginMaxAttempts int
	LoginWindow      time.Duration

	PublicDir      string
	MaxUploadBytes int64

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	AllowedOrigins []string
	LogLevel       slog.Level
}

// Default returns a Config with every optional value populated. JWTSecret and
// MongoURI are left empty: they must come from the environment.
func Default() *Config {
	return &Config{
		HTTPAddr:          ":8080",
		StoreDriver:       DriverMongo,
		MongoDatabase:     "alumni",
		MongoTransactions: true,
		LoginMaxAttempts:  5,
		LoginWindow:       15 * time.Minute,
		PublicDir:         "public",
		MaxUploadBytes:    10 << 20,
		S3Region:          "us-east-1",
		AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
		LogLevel:          slog.LevelInfo,
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.JWTSecret = get("JWT_SECRET")
	if v := get("STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.ToLower(v)
	}
	cfg.MongoURI = get("MONGODB_URI")
	if v := get("MONGODB_DATABASE"); v != "" {
		cfg.MongoDatabase = v
	}
	if v := get("MONGODB_TRANSACTIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid MONGODB_TRANSACTIONS value %q: %w", v, err)
		}
		cfg.MongoTransactions = b
	}

	cfg.RedisAddr = get("REDIS_ADDR")
	if v := get("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid REDIS_DB value %q: %w", v, err)
		}
		cfg.RedisDB = n
	}
	if v := get("LOGIN_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid LOGIN_MAX_ATTEMPTS value %q: %w", v, err)
		}
		cfg.LoginMaxAttempts = n
	}
	if v := get("LOGIN_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid LOGIN_WINDOW value %q: %w", v, err)
		}
		cfg.LoginWindow = d
	}

	if v := get("PUBLIC_DIR"); v != "" {
		cfg.PublicDir = v
	}
	if v := get("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid MAX_UPLOAD_BYTES value %q: %w", v, err)
		}
		cfg.MaxUploadBytes = n
	}

	cfg.S3Bucket = get("S3_BUCKET")
	if v := get("S3_REGION"); v != "" {
		cfg.S3Region = v
	}
	cfg.S3Endpoint = get("S3_ENDPOINT")
	cfg.S3AccessKey = get("S3_ACCESS_KEY")
	cfg.S3SecretKey = get("S3_SECRET_KEY")

	if v := get("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}
	if v := get("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("config: invalid LOG_LEVEL value %q: %w", v, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET environment variable is not set")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGODB_URI environment variable is not set")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.LoginMaxAttempts <= 0 {
		return errors.New("config: LOGIN_MAX_ATTEMPTS must be positive")
	}
	if c.LoginWindow <= 0 {
		return errors.New("config: LOGIN_WINDOW must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}
