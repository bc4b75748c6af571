package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	LogLevel    string

	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	AllowedOrigins     []string

	BackendURL                string
	BackendAPIKey             string
	MerchantValidationTimeout time.Duration
	BreakerFailures           uint32
	BreakerOpenTimeout        time.Duration

	SecretProjectID string
	SecretName      string
	SecretVersion   string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	PreferencesTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	ApplePayEnabled    bool
	GooglePayEnabled   bool
	GooglePayScriptURL string
	WalletProbeTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real env vars take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return FromEnv(), nil
}

func FromEnv() *Config {
	return &Config{
		ServiceName: getEnv("SERVICE_NAME", "checkout-gateway"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50060"),
		RequestTimeout:     getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1<<20)), // 1MB
		AllowedOrigins:     getListEnv("ALLOWED_ORIGINS", []string{"http://localhost:8000"}),

		BackendURL:                strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:9000"), "/"),
		BackendAPIKey:             getEnv("BACKEND_PUBLISHABLE_KEY", ""),
		MerchantValidationTimeout: getDurationEnv("MERCHANT_VALIDATION_TIMEOUT", 15*time.Second),
		BreakerFailures:           uint32(getIntEnv("BACKEND_BREAKER_FAILURES", 5)),
		BreakerOpenTimeout:        getDurationEnv("BACKEND_BREAKER_OPEN_TIMEOUT", 10*time.Second),

		SecretProjectID: getEnv("SECRET_PROJECT_ID", ""),
		SecretName:      getEnv("SECRET_BACKEND_KEY_NAME", "storefront-backend-publishable-key"),
		SecretVersion:   getEnv("SECRET_BACKEND_KEY_VERSION", "latest"),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getIntEnv("REDIS_DB", 0),
		PreferencesTTL: getDurationEnv("WALLET_PREFERENCES_TTL", 30*24*time.Hour),

		KafkaBrokers: getListEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storefront-checkout-events"),

		ApplePayEnabled:    getBoolEnv("APPLE_PAY_ENABLED", true),
		GooglePayEnabled:   getBoolEnv("GOOGLE_PAY_ENABLED", true),
		GooglePayScriptURL: getEnv("GOOGLE_PAY_SCRIPT_URL", "https://pay.google.com/gp/p/js/pay.js"),
		WalletProbeTimeout: getDurationEnv("WALLET_PROBE_TIMEOUT", 1500*time.Millisecond),
	}
}

// bridgeHeadroom is kept between the merchant validation deadline and the
// request deadline so the bridge answers before the timeout middleware does.
const bridgeHeadroom = time.Second

// BridgeTimeout returns MerchantValidationTimeout limited to fit inside
// RequestTimeout. clamped reports whether the configured value was cut.
func (c *Config) BridgeTimeout() (timeout time.Duration, clamped bool) {
	limit := c.RequestTimeout - bridgeHeadroom
	if limit < c.RequestTimeout/2 {
		limit = c.RequestTimeout / 2
	}
	if c.MerchantValidationTimeout <= 0 || c.MerchantValidationTimeout > limit {
		return limit, true
	}
	return c.MerchantValidationTimeout, false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
