package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// DevSecret signs tokens when no JWT_SECRET is configured in development.
const DevSecret = "dev-secret-change-me"

// Config is the typed runtime configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	StoreDriver   string
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	RabbitMQURL   string
	OrderExchange string
	OrderQueue    string

	UploadDir      string
	UploadBaseURL  string
	UploadMaxBytes int64
}

// IsDevelopment reports whether the app runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// EventsEnabled reports whether order events should be published.
func (c Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:marketplace.db?cache=shared")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "marketplace")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("ORDER_EXCHANGE", "orders")
	v.SetDefault("ORDER_QUEUE", "order_queue")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_BASE_URL", "/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5<<20)
}

// LoadDotEnv reads .env files into the process environment when present.
// Variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the configuration from v, applying defaults first.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Port:           v.GetString("APP_PORT"),
		Env:            strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:       v.GetString("LOG_LEVEL"),
		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTTTL:         v.GetDuration("JWT_TTL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		OrderExchange:  v.GetString("ORDER_EXCHANGE"),
		OrderQueue:     v.GetString("ORDER_QUEUE"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		UploadBaseURL:  strings.TrimRight(v.GetString("UPLOAD_BASE_URL"), "/"),
		UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return Config{}, errors.New("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = DevSecret
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite", "postgres", "mongo":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}
