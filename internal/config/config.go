package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port           string
	DBConn         string
	LogLevel       string
	JWTSecret      string
	GatewayKeyID   string
	GatewaySecret  string
	KeyRateURL     string
	PlatformSpread float64
	PlatformName   string
	PlatformVPA    string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SenderEmail    string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	spread, err := strconv.ParseFloat(getEnv("PLATFORM_SPREAD", "4.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_SPREAD: %w", err)
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=lending sslmode=disable"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		GatewayKeyID:   getEnv("GATEWAY_KEY_ID", "key_test"),
		GatewaySecret:  getEnv("GATEWAY_SECRET", "gateway_test_secret"),
		KeyRateURL:     getEnv("KEYRATE_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		PlatformSpread: spread,
		PlatformName:   getEnv("PLATFORM_NAME", "PeerFund"),
		PlatformVPA:    getEnv("PLATFORM_VPA", "peerfund@upi"),
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "noreply@peerfund.example"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GatewaySecret == "" {
		return nil, fmt.Errorf("GATEWAY_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
