package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBName    string
	JWTKey    string
	SaltRound int

	EmailSender string
	Password    string // SMTP Password

	PayGateBaseURL     string // Payment gateway API base URL
	PayGateClientID    string // Merchant client id
	PayGateApiKey      string // API key sent on every request
	PayGateChecksumKey string // Shared secret for request/webhook signatures
	PayGateReturnURL   string // Browser redirect after successful checkout
	PayGateCancelURL   string // Browser redirect after cancelled checkout

	PendingOrderTTLMin int // Minutes before an unpaid order is swept to CANCELLED
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	// Initialize AppConfig with values from environment variables
	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		DBName:    getEnv("DB_NAME", "lms"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		EmailSender: getEnv("EMAIL_SENDER", "defaultSecret"),
		Password:    getEnv("PASSWORD", "defaultSecret"),

		PayGateBaseURL:     getEnv("PAYGATE_BASE_URL", "https://api-merchant.paygate.vn"),
		PayGateClientID:    getEnv("PAYGATE_CLIENT_ID", ""),
		PayGateApiKey:      getEnv("PAYGATE_API_KEY", ""),
		PayGateChecksumKey: getEnv("PAYGATE_CHECKSUM_KEY", ""),
		PayGateReturnURL:   getEnv("PAYGATE_RETURN_URL", "http://localhost:3000/payment/success"),
		PayGateCancelURL:   getEnv("PAYGATE_CANCEL_URL", "http://localhost:3000/payment/cancel"),

		PendingOrderTTLMin: getEnvInt("PENDING_ORDER_TTL_MIN", 30),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.PayGateChecksumKey == "" {
		log.Println("Warning: PAYGATE_CHECKSUM_KEY is empty. Webhook verification will reject everything.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
