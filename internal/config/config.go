package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the gateway's environment-driven settings.
type Config struct {
	// Base URL of the record API (the system of record for cases,
	// metrics and evaluations).
	RecordAPIBaseURL string
	RedisAddr        string
	HTTPPort         string
	// Timeout applied to every record API request. Timeouts surface as
	// generic failures; they are not retried.
	RequestTimeout time.Duration
}

// Load reads configuration from the environment, with a .env file as a
// convenience for local development.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	return &Config{
		RecordAPIBaseURL: getEnv("RECORD_API_URL", "http://localhost:9000/api"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, val, defaultVal)
		return defaultVal
	}
	return n
}
