package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Media     MediaConfig
	Order     OrderConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type StoreConfig struct {
	Driver  string // file | postgres
	DataDir string
	Seed    bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

type MediaConfig struct {
	Dir            string
	URLPrefix      string
	MaxBytes       int64
	MaxFiles       int
	Strict         bool
	PlaceholderURL string
	SweepSchedule  string
	SweepMinAge    time.Duration
}

type OrderConfig struct {
	ShippingFlat float64
	TaxRate      float64
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type JWTConfig struct {
	Secret string
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// Addr returns host:port, or "" when no redis host is configured
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

// IsDevelopment reports whether the server runs outside production
func (s ServerConfig) IsDevelopment() bool {
	return s.Env != "production"
}

func Load() *Config {
	// Values from .env become process environment so child tools see them too
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("STORE_DRIVER", "file")
	viper.SetDefault("STORE_DATA_DIR", "data")
	viper.SetDefault("STORE_SEED", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("UPLOADS_DIR", "uploads")
	viper.SetDefault("UPLOADS_URL_PREFIX", "/uploads")
	viper.SetDefault("MEDIA_MAX_BYTES", 10<<20)
	viper.SetDefault("MEDIA_MAX_FILES", 10)
	viper.SetDefault("MEDIA_STRICT", true)
	viper.SetDefault("MEDIA_PLACEHOLDER_URL", "https://placehold.co/600x400?text=No+Image")
	viper.SetDefault("MEDIA_SWEEP_SCHEDULE", "0 0 3 * * *")
	viper.SetDefault("MEDIA_SWEEP_MIN_AGE_MINUTES", 60)
	viper.SetDefault("ORDER_SHIPPING_FLAT", 5.99)
	viper.SetDefault("ORDER_TAX_RATE", 0.08)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Store: StoreConfig{
			Driver:  viper.GetString("STORE_DRIVER"),
			DataDir: viper.GetString("STORE_DATA_DIR"),
			Seed:    viper.GetBool("STORE_SEED"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Media: MediaConfig{
			Dir:            viper.GetString("UPLOADS_DIR"),
			URLPrefix:      viper.GetString("UPLOADS_URL_PREFIX"),
			MaxBytes:       viper.GetInt64("MEDIA_MAX_BYTES"),
			MaxFiles:       viper.GetInt("MEDIA_MAX_FILES"),
			Strict:         viper.GetBool("MEDIA_STRICT"),
			PlaceholderURL: viper.GetString("MEDIA_PLACEHOLDER_URL"),
			SweepSchedule:  viper.GetString("MEDIA_SWEEP_SCHEDULE"),
			SweepMinAge:    time.Duration(viper.GetInt("MEDIA_SWEEP_MIN_AGE_MINUTES")) * time.Minute,
		},
		Order: OrderConfig{
			ShippingFlat: viper.GetFloat64("ORDER_SHIPPING_FLAT"),
			TaxRate:      viper.GetFloat64("ORDER_TAX_RATE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
