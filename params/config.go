package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr        string
	CORSOrigins []string
	// MaxTradesLimit caps the limit query parameter of the trades endpoint.
	MaxTradesLimit int
}

type Auth struct {
	AdminUsername string
	AdminPassword string
	JWTSecret     string
	TokenTTL      time.Duration
}

type Book struct {
	Seed bool
	// StampMode is "engine" (every submit stamps the book) or "service"
	// (the exchange stamps after each order).
	StampMode string
	// TradeStore is "memory" or "pebble". Both are in-process only.
	TradeStore string
}

type Kafka struct {
	Brokers []string // empty disables trade publishing
	Topic   string
}

type Feeder struct {
	Enabled   bool
	BatchSize int
	Interval  time.Duration
}

type Log struct {
	Level string
	File  string // empty logs to stdout only
}

type Config struct {
	API    API
	Auth   Auth
	Book   Book
	Kafka  Kafka
	Feeder Feeder
	Log    Log
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:3001"},
			MaxTradesLimit: 100,
		},
		Auth: Auth{
			AdminUsername: "admin",
			AdminPassword: "admin",
			JWTSecret:     "change-me",
			TokenTTL:      10 * time.Hour,
		},
		Book: Book{
			Seed:       true,
			StampMode:  "engine",
			TradeStore: "memory",
		},
		Kafka: Kafka{
			Topic: "limitbook.trades",
		},
		Feeder: Feeder{
			Enabled:   false,
			BatchSize: 5,
			Interval:  500 * time.Millisecond,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = splitList(origins)
	}
	if limit := os.Getenv("TRADES_MAX_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			cfg.API.MaxTradesLimit = n
		}
	}

	cfg.Auth.AdminUsername = getEnv("ADMIN_USERNAME", cfg.Auth.AdminUsername)
	cfg.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.Auth.AdminPassword)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	if ttl := os.Getenv("JWT_TTL_MIN"); ttl != "" {
		if min, err := strconv.Atoi(ttl); err == nil && min > 0 {
			cfg.Auth.TokenTTL = time.Duration(min) * time.Minute
		}
	}

	if seed := os.Getenv("BOOK_SEED"); seed != "" {
		cfg.Book.Seed = seed == "true"
	}
	cfg.Book.StampMode = strings.ToLower(getEnv("BOOK_STAMP", cfg.Book.StampMode))
	cfg.Book.TradeStore = strings.ToLower(getEnv("TRADE_STORE", cfg.Book.TradeStore))

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	if enabled := os.Getenv("ENABLE_FEEDER"); enabled != "" {
		cfg.Feeder.Enabled = enabled == "true"
	}
	if batch := os.Getenv("FEEDER_BATCH_SIZE"); batch != "" {
		if n, err := strconv.Atoi(batch); err == nil && n > 0 {
			cfg.Feeder.BatchSize = n
		}
	}
	if interval := os.Getenv("FEEDER_INTERVAL_MS"); interval != "" {
		if ms, err := strconv.Atoi(interval); err == nil && ms > 0 {
			cfg.Feeder.Interval = time.Duration(ms) * time.Millisecond
		}
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
