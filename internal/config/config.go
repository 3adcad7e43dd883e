package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the storefront.
type Config struct {
	Env       string // "development" or "production"
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RabbitMQ  RabbitMQConfig
	Session   SessionConfig
	Storage   StorageConfig
	Inventory InventoryConfig
	Log       LogConfig
	Seed      SeedConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type RabbitMQConfig struct {
	URL string // empty disables event publishing
}

type SessionConfig struct {
	RedisAddr string // empty selects the in-memory store
	TTL       time.Duration
}

type StorageConfig struct {
	Root string
}

type InventoryConfig struct {
	LowStockFallback int
}

type LogConfig struct {
	Level  string
	Format string
}

type SeedConfig struct {
	Demo          bool
	AdminEmail    string
	AdminPassword string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// Development placeholders. Outside development they must be overridden.
const (
	DefaultJWTSecret     = "change-me"
	DefaultAdminPassword = "admin123"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:bevera.db?cache=shared")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("JWT_TTL", 24*time.Hour)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("STORAGE_ROOT", "uploads")
	v.SetDefault("LOW_STOCK_FALLBACK", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SEED_DEMO", true)
	v.SetDefault("ADMIN_EMAIL", "admin@bevera.local")
	v.SetDefault("ADMIN_PASSWORD", DefaultAdminPassword)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:    v.GetString("APP_ENV"),
		Server: ServerConfig{Port: v.GetString("APP_PORT")},
		Database: DatabaseConfig{
			Driver: v.GetString("DB_DRIVER"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			TokenTTL:  v.GetDuration("JWT_TTL"),
		},
		RabbitMQ: RabbitMQConfig{URL: v.GetString("RABBITMQ_URL")},
		Session: SessionConfig{
			RedisAddr: v.GetString("REDIS_ADDR"),
			TTL:       v.GetDuration("SESSION_TTL"),
		},
		Storage:   StorageConfig{Root: v.GetString("STORAGE_ROOT")},
		Inventory: InventoryConfig{LowStockFallback: v.GetInt("LOW_STOCK_FALLBACK")},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Seed: SeedConfig{
			Demo:          v.GetBool("SEED_DEMO"),
			AdminEmail:    v.GetString("ADMIN_EMAIL"),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the placeholder secrets are tolerated.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// InsecureDefaults names the settings still holding a development
// placeholder.
func (c *Config) InsecureDefaults() []string {
	var names []string
	if c.Auth.JWTSecret == DefaultJWTSecret {
		names = append(names, "JWT_SECRET")
	}
	if c.Seed.AdminEmail != "" && c.Seed.AdminPassword == DefaultAdminPassword {
		names = append(names, "ADMIN_PASSWORD")
	}
	return names
}

func (c *Config) validate() error {
	switch c.Env {
	case "", "development", "production":
	default:
		return fmt.Errorf("unsupported APP_ENV %q", c.Env)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if insecure := c.InsecureDefaults(); len(insecure) > 0 && !c.IsDevelopment() {
		return fmt.Errorf("%s must be set when APP_ENV=%s", strings.Join(insecure, ", "), c.Env)
	}
	if c.Inventory.LowStockFallback <= 0 {
		c.Inventory.LowStockFallback = 10
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
	return nil
}
