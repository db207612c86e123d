package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port string `env:"PORT, default=3000"`
	Env  string `env:"ENV, default=development"`

	JWTSecret  string        `env:"JWT_SECRET, required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL, default=168h"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`

	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	DB        DBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type DBConfig struct {
	Driver string `env:"DB_DRIVER, default=mysql"`
	URL    string `env:"DB_URL"`
}

// Addr empty means Redis is disabled and login throttling stays in-process.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type RateLimitConfig struct {
	RPS              float64       `env:"RATE_LIMIT_RPS, default=10"`
	Burst            int           `env:"RATE_LIMIT_BURST, default=20"`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW, default=15m"`
}

// AdminConfig seeds an admin account at startup when both fields are set.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using process environment")
	}
	return Load(context.Background(), envconfig.OsLookuper())
}

// Load decodes configuration from the given lookuper. A missing JWT_SECRET
// is an error so the process never starts serving without a signing key.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	if cfg.DB.Driver != "mysql" && cfg.DB.Driver != "sqlite3" {
		return nil, fmt.Errorf("config: unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.DB.URL == "" && cfg.DB.Driver == "sqlite3" {
		cfg.DB.URL = "reservations.db"
	}
	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("config: DB_URL is required for driver %s", cfg.DB.Driver)
	}
	return &cfg, nil
}

func (c *Config) SeedAdmin() bool {
	return c.Admin.Email != "" && c.Admin.Password != ""
}
