package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration for the CLI client and the dev backend.
type Config struct {
	API       APIConfig
	Session   SessionConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
	Server    ServerConfig
	JWT       JWTConfig
	Admin     AdminConfig
}

// APIConfig configures the authenticated gateway.
type APIConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RefreshTimeout time.Duration
	LogoutTimeout  time.Duration
}

// SessionConfig selects where the client session is persisted.
type SessionConfig struct {
	Store string // file|redis|mongo|minio|memory
	File  string
	Key   string
	TTL   time.Duration
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// MinIOConfig locates the bucket used by SESSION_STORE=minio.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// RateLimitConfig throttles outbound requests of the client. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    ServerRateLimitConfig
}

type ServerRateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AdminConfig seeds the dev backend's administrator account.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreMinIO  = "minio"
	StoreMemory = "memory"
)

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8000/api/v1")
	v.SetDefault("HTTP_TIMEOUT", 30)
	v.SetDefault("REFRESH_TIMEOUT", 30)
	v.SetDefault("LOGOUT_TIMEOUT", 5)

	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("SESSION_FILE", defaultSessionFile())
	v.SetDefault("SESSION_KEY", "bdgd:auth-storage")
	v.SetDefault("SESSION_TTL_HOURS", 0)

	v.SetDefault("MONGODB_DATABASE", "bdgd")
	v.SetDefault("MONGODB_COLLECTION", "client_sessions")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MINIO_BUCKET", "bdgd-sessions")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_RATE_LIMIT_ENABLED", false)
	v.SetDefault("SERVER_RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("SERVER_RATE_LIMIT_RPS", 10)
	v.SetDefault("SERVER_RATE_LIMIT_BURST", 20)
	v.SetDefault("SERVER_RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 30)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	v.SetDefault("ADMIN_EMAIL", "admin@bdgdpro.com")
	v.SetDefault("ADMIN_NAME", "Administrador")

	cfg := &Config{
		API: APIConfig{
			BaseURL:        strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
			Timeout:        seconds(v.GetInt("HTTP_TIMEOUT")),
			RefreshTimeout: seconds(v.GetInt("REFRESH_TIMEOUT")),
			LogoutTimeout:  seconds(v.GetInt("LOGOUT_TIMEOUT")),
		},
		Session: SessionConfig{
			Store: strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
			File:  expandHome(v.GetString("SESSION_FILE")),
			Key:   v.GetString("SESSION_KEY"),
			TTL:   time.Duration(v.GetInt("SESSION_TTL_HOURS")) * time.Hour,
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    seconds(v.GetInt("MONGODB_TIMEOUT")),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: ServerRateLimitConfig{
				Enabled:       v.GetBool("SERVER_RATE_LIMIT_ENABLED"),
				UseRedis:      v.GetBool("SERVER_RATE_LIMIT_USE_REDIS"),
				RPS:           v.GetFloat64("SERVER_RATE_LIMIT_RPS"),
				Burst:         v.GetInt("SERVER_RATE_LIMIT_BURST"),
				WindowSeconds: v.GetInt("SERVER_RATE_LIMIT_WINDOW_SECONDS"),
			},
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		Admin: AdminConfig{
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
			Name:     v.GetString("ADMIN_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the selected session store depends on.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return &Error{Key: "API_BASE_URL", Msg: "must not be empty"}
	}
	switch c.Session.Store {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.Redis.Host == "" {
			return &Error{Key: "REDIS_HOST", Msg: "required when SESSION_STORE=redis"}
		}
	case StoreMongo:
		if c.MongoDB.URI == "" {
			return &Error{Key: "MONGODB_URI", Msg: "required when SESSION_STORE=mongo"}
		}
	case StoreMinIO:
		if c.MinIO.Endpoint == "" {
			return &Error{Key: "MINIO_ENDPOINT", Msg: "required when SESSION_STORE=minio"}
		}
	default:
		return &Error{Key: "SESSION_STORE", Msg: "unknown store " + c.Session.Store}
	}
	return nil
}

// Error reports an invalid configuration value.
type Error struct {
	Key string
	Msg string
}

func (e *Error) Error() string { return "config: " + e.Key + " " + e.Msg }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".bdgd", "session.json")
	}
	return filepath.Join(home, ".bdgd", "session.json")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
