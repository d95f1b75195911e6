package config

import (
	"fmt"     // DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // Durations

	"github.com/joho/godotenv" // For loading .env files
)

// Supported storage drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	AppPort          string        // Application port
	DBDriver         string        // mysql, postgres or memory
	DBUser           string        // Database user
	DBPassword       string        // Database password
	DBHost           string        // Database host
	DBPort           string        // Database port
	DBName           string        // Database name
	JWTSecret        string        // JWT secret key
	RedisAddr        string        // Redis server address, empty disables Redis
	RedisPass        string        // Redis password
	RedisDB          int           // Redis database number
	IsProd           bool          // Is production environment
	Currency         string        // Currency of every wallet
	MaxRetries       int           // Attempts per ledger unit on version conflicts
	IdempotencyLease time.Duration // How long a reserved idempotency key blocks concurrent retries
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:          getEnv("APP_PORT", "8080"),                                              // Application port
		DBDriver:         getEnv("DB_DRIVER", DriverMySQL),                                        // Storage driver
		DBUser:           os.Getenv("DB_USER"),                                                    // Database user
		DBPassword:       os.Getenv("DB_PASSWORD"),                                                // Database password
		DBHost:           os.Getenv("DB_HOST"),                                                    // Database host
		DBPort:           os.Getenv("DB_PORT"),                                                    // Database port
		DBName:           os.Getenv("DB_NAME"),                                                    // Database name
		JWTSecret:        os.Getenv("JWT_SECRET"),                                                 // JWT secret key
		RedisAddr:        os.Getenv("REDIS_ADDR"),                                                 // Redis server address
		RedisPass:        os.Getenv("REDIS_PASS"),                                                 // Redis password
		RedisDB:          redisDB,                                                                 // Redis database number
		IsProd:           os.Getenv("IS_PROD") == "true",                                          // Is production environment
		Currency:         getEnv("LEDGER_CURRENCY", "USD"),                                        // Wallet currency
		MaxRetries:       getEnvInt("LEDGER_MAX_RETRIES", 3),                                      // Conflict retries
		IdempotencyLease: time.Duration(getEnvInt("IDEMPOTENCY_LEASE_SECONDS", 30)) * time.Second, // Reservation lease
	}
}

// MySQLDSN builds the Data Source Name for the MySQL driver
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// PostgresDSN builds the connection string for the Postgres driver
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// getEnv returns the variable or a fallback when unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the positive integer variable or a fallback
func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
