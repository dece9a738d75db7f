package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret     string
	HMACSecret    string
	EncryptionKey []byte

	RateFeedURL  string
	APRMarginPct decimal.Decimal

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	GracePeriodDays    int
	MinPaymentFloorPct decimal.Decimal
	MinPaymentFlat     decimal.Decimal
	SweepSchedule      string
}

// NewConfig loads configuration from the environment, with a .env file as
// fallback when present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5432 user=billing password=billing dbname=billing sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		HMACSecret:    getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		RateFeedURL:   getEnv("RATE_FEED_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "statements@billing.local"),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "0 3 * * *"),
	}

	key, err := hex.DecodeString(getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"))
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24 or 32 bytes, got %d", len(key))
	}
	cfg.EncryptionKey = key

	cfg.GracePeriodDays, err = getEnvInt("GRACE_PERIOD_DAYS", 21)
	if err != nil {
		return nil, err
	}
	if cfg.GracePeriodDays < 1 {
		return nil, fmt.Errorf("GRACE_PERIOD_DAYS must be at least 1")
	}

	cfg.MinPaymentFloorPct, err = getEnvDecimal("MIN_PAYMENT_FLOOR_PCT", "0.02")
	if err != nil {
		return nil, err
	}
	cfg.MinPaymentFlat, err = getEnvDecimal("MIN_PAYMENT_FLAT", "35")
	if err != nil {
		return nil, err
	}
	cfg.APRMarginPct, err = getEnvDecimal("APR_MARGIN_PCT", "5")
	if err != nil {
		return nil, err
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvDecimal(key, defaultVal string) (decimal.Decimal, error) {
	raw := getEnv(key, defaultVal)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	return value, nil
}
