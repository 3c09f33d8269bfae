package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string
	LogLevel      string

	HTTPAddr       string
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int

	RedisURL       string
	SubmitGuardTTL time.Duration

	MigrationsDir      string
	DriftAuditInterval time.Duration

	// Location is the clinic's zone. Scheduling code receives it explicitly.
	Location *time.Location

	// OperatorIDs restricts the bot to these Telegram users. Empty allows everyone.
	OperatorIDs []int64
}

// Load reads .env (if present) and the process environment.
// Required fields are checked by the commands that need them.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBDSN:         getenv("DB_DSN"),
		TelegramToken: getenv("TELEGRAM_TOKEN"),
		Environment:   withDefault(getenv("ENV"), "development"),
		LogLevel:      getenv("LOG_LEVEL"),
		HTTPAddr:      withDefault(getenv("HTTP_ADDR"), ":8080"),
		JWTSecret:     getenv("JWT_SECRET"),
		RedisURL:      getenv("REDIS_URL"),
		MigrationsDir: withDefault(getenv("MIGRATIONS_DIR"), "migrations"),
	}

	var err error

	if cfg.RateLimitRPS, err = parseFloat(getenv("RATE_LIMIT_RPS"), 10); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = parseInt(getenv("RATE_LIMIT_BURST"), 20); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	if cfg.DriftAuditInterval, err = parseDuration(getenv("DRIFT_AUDIT_INTERVAL"), 24*time.Hour); err != nil {
		return nil, fmt.Errorf("DRIFT_AUDIT_INTERVAL: %w", err)
	}
	if cfg.SubmitGuardTTL, err = parseDuration(getenv("SUBMIT_GUARD_TTL"), 30*time.Second); err != nil {
		return nil, fmt.Errorf("SUBMIT_GUARD_TTL: %w", err)
	}
	if cfg.OperatorIDs, err = parseIDs(getenv("BOT_OPERATOR_IDS")); err != nil {
		return nil, fmt.Errorf("BOT_OPERATOR_IDS: %w", err)
	}
	if cfg.Location, err = resolveLocation(getenv("SCHEDULER_TZ"), getenv("TZ")); err != nil {
		return nil, fmt.Errorf("SCHEDULER_TZ: %w", err)
	}

	return cfg, nil
}

// RequireDB fails when no database DSN is configured.
func (c *Config) RequireDB() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}
	return nil
}

// RequireTelegram fails when the bot token is missing.
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// resolveLocation picks the clinic zone: SCHEDULER_TZ, then TZ, then the
// /etc/localtime link target, then time.Local.
func resolveLocation(name, tz string) (*time.Location, error) {
	if name != "" {
		return time.LoadLocation(name)
	}
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc, nil
		}
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			if loc, err := time.LoadLocation(target[i+len("zoneinfo/"):]); err == nil {
				return loc, nil
			}
		}
	}
	return time.Local, nil
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func parseFloat(value string, def float64) (float64, error) {
	if value == "" {
		return def, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseInt(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	return strconv.Atoi(value)
}

func parseDuration(value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", value)
	}
	return d, nil
}

func parseIDs(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
