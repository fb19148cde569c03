package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	DBUrl    string

	JWTSecret         string
	AccessTokenExpiry time.Duration

	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration

	// Rate Limiting
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Coupon cache
	CouponCacheTTL time.Duration

	// Business Rules
	MaxCartQuantity       int
	FreeShippingThreshold decimal.Decimal
	StandardShippingFee   decimal.Decimal
	TaxRate               decimal.Decimal
	// Whether cancelling/refunding an order hands its coupon redemption back.
	ReleaseCouponOnCancel bool
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: .env for local dev; in docker/prod envs we
		// rely on system env vars, so a missing file is not an error.
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DBUrl:    getEnv("DB_DSN", ""),

		JWTSecret:         getEnv("JWT_SECRET", "default_secret_CHANGE_ME"),
		AccessTokenExpiry: getDurationEnv("ACCESS_TOKEN_EXPIRY", time.Hour*24),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		RateLimitPerSecond: getFloatEnv("RATE_LIMIT_PER_SECOND", 50),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 100),

		CouponCacheTTL: getDurationEnv("COUPON_CACHE_TTL", time.Minute),

		MaxCartQuantity:       getIntEnv("MAX_CART_QUANTITY", 1000),
		FreeShippingThreshold: getDecimalEnv("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(5000)),
		StandardShippingFee:   getDecimalEnv("STANDARD_SHIPPING_FEE", decimal.NewFromInt(200)),
		TaxRate:               getDecimalEnv("TAX_RATE", decimal.NewFromFloat(0.18)),
		ReleaseCouponOnCancel: getBoolEnv("RELEASE_COUPON_ON_CANCEL", false),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.DBUrl == "" {
		log.Fatal("CRITICAL: DB_DSN environment variable is required")
	}
	if c.JWTSecret == "default_secret_CHANGE_ME" {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		log.Fatal("CRITICAL: TAX_RATE must be in [0, 1)")
	}
	if c.StandardShippingFee.IsNegative() || c.FreeShippingThreshold.IsNegative() {
		log.Fatal("CRITICAL: shipping configuration must be non-negative")
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getInt32Env(key string, fallback int32) int32 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
		log.Printf("Invalid int32 for %s, using fallback", key)
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid float for %s, using fallback", key)
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Invalid bool for %s, using fallback", key)
	}
	return fallback
}

func getDecimalEnv(key string, fallback decimal.Decimal) decimal.Decimal {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
		log.Printf("Invalid decimal for %s, using fallback", key)
	}
	return fallback
}
