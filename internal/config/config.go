package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"pixelcanvas/internal/logger"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	AppPort       string
	StorageDriver string
	DatabaseURL   string
	JWTSecret     string
	DevMode       bool
	AllowedOrigin string
	StaticDir     string

	LogLevel string
	LogJSON  bool
	LogFile  string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RealtimeChannel string

	// Canvas rules
	Cooldown          time.Duration
	DefaultFreePixels int64

	// Rate limits
	APIRateLimit    int
	APIRateWindow   time.Duration
	PlaceRateLimit  int
	PlaceRateWindow time.Duration
	ChatRateLimit   int
	ChatRateWindow  time.Duration

	Stripe StripeConfig
}

// StripeConfig holds payment gateway credentials and the price ids that map to entitlements.
type StripeConfig struct {
	SecretKey           string
	WebhookSecret       string
	PriceColors60       string
	PriceColors120      string
	PriceColorsAllMonth string
	PricePixels100      string
}

// Enabled reports whether checkout can be used at all.
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

// Load reads .env (if present) and the environment. Invalid configuration is fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from a getenv-style lookup.
func Parse(getenv func(string) string) (*Config, error) {
	driver := strings.ToLower(strings.TrimSpace(getenv("STORAGE_DRIVER")))
	if driver == "" {
		driver = StoragePostgres
	}
	if driver != StoragePostgres && driver != StorageMemory {
		return nil, errors.New("STORAGE_DRIVER must be postgres or memory")
	}

	dbURL := getenv("DATABASE_URL")
	if driver == StoragePostgres && dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	channel := getenv("REALTIME_CHANNEL")
	if channel == "" {
		channel = "pixelcanvas:events"
	}

	staticDir := getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "public"
	}

	logLevel := getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		AppPort:       port,
		StorageDriver: driver,
		DatabaseURL:   dbURL,
		JWTSecret:     jwtSecret,
		DevMode:       getenv("DEV_MODE") == "true",
		AllowedOrigin: getenv("ALLOWED_ORIGIN"),
		StaticDir:     staticDir,

		LogLevel: logLevel,
		LogJSON:  getenv("LOG_FORMAT") != "console",
		LogFile:  getenv("LOG_FILE"),

		RedisAddr:       getenv("REDIS_ADDR"),
		RedisPassword:   getenv("REDIS_PASSWORD"),
		RedisDB:         intEnv(getenv, "REDIS_DB", 0),
		RealtimeChannel: channel,

		Cooldown:          time.Duration(intEnv(getenv, "COOLDOWN_MS", 10000)) * time.Millisecond,
		DefaultFreePixels: int64(intEnv(getenv, "DEFAULT_FREE_PIXELS", 100)),

		// 120 requests per 15 seconds, same as the public API limiter of the web app
		APIRateLimit:    intEnv(getenv, "API_RATE_LIMIT", 120),
		APIRateWindow:   secondsEnv(getenv, "API_RATE_WINDOW_SECONDS", 15),
		PlaceRateLimit:  intEnv(getenv, "PLACE_RATE_LIMIT", 30),
		PlaceRateWindow: secondsEnv(getenv, "PLACE_RATE_WINDOW_SECONDS", 60),
		ChatRateLimit:   intEnv(getenv, "CHAT_RATE_LIMIT", 20),
		ChatRateWindow:  secondsEnv(getenv, "CHAT_RATE_WINDOW_SECONDS", 60),

		Stripe: StripeConfig{
			SecretKey:           getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:       getenv("STRIPE_WEBHOOK_SECRET"),
			PriceColors60:       getenv("STRIPE_PRICE_COLORS_60"),
			PriceColors120:      getenv("STRIPE_PRICE_COLORS_120"),
			PriceColorsAllMonth: getenv("STRIPE_PRICE_COLORS_ALL_MONTHLY"),
			PricePixels100:      getenv("STRIPE_PRICE_PIXELS_100"),
		},
	}, nil
}

// intEnv returns a positive integer from env or the default
func intEnv(getenv func(string) string, key string, def int) int {
	if v := getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func secondsEnv(getenv func(string) string, key string, def int) time.Duration {
	return time.Duration(intEnv(getenv, key, def)) * time.Second
}
