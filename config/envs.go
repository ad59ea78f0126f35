package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application's configuration values.
type Config struct {
	HostIP          string // Host IP for the server
	RESTPort        int    // Port for the REST API
	GinMode         string // Mode for the Gin framework (e.g., release, debug, test)
	DBDriver        string // Episode store: memory, sqlite or mongo
	SQLitePath      string // File used by the sqlite store
	DBHost          string // Hostname or IP address for MongoDB
	DBPort          int    // Port number for MongoDB
	DBUser          string // Username for MongoDB
	DBPassword      string // Password for MongoDB
	DBName          string // Name of the MongoDB database
	RedisAddr       string // Redis address, leaderboard and step stream are disabled when empty
	RedisPassword   string // Redis password
	LeaderboardSize int    // Entries kept per algorithm
	JWTSecret       string // Secret key for JWT signing
	JWTIssuer       string // Issuer claim for JWTs
	Workers         int    // Episodes simulated in parallel
}

// Envs holds the application's configuration loaded from environment variables.
var Envs = initConfig()

// initConfig initializes and returns the application configuration.
// It loads environment variables from a .env file.
func initConfig() Config {
	// Load .env file if available
	if err := godotenv.Load(); err != nil {
		log.Printf("[APP] [INFO] .env file not found or could not be loaded: %v", err)
	}

	return Config{
		HostIP:          getEnvWithDefault("HOST_IP", "0.0.0.0"),
		RESTPort:        getEnvAsIntWithDefault("REST_PORT", 8080),
		GinMode:         getEnvWithDefault("GIN_MODE", "release"),
		DBDriver:        getEnvWithDefault("DB_DRIVER", "memory"),
		SQLitePath:      getEnvWithDefault("SQLITE_PATH", "ohrace.db"),
		DBHost:          getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:          getEnvAsIntWithDefault("DB_PORT", 27017),
		DBUser:          getEnvWithDefault("DB_USER", ""),
		DBPassword:      getEnvWithDefault("DB_PASS", ""),
		DBName:          getEnvWithDefault("DB_NAME", "ohrace"),
		RedisAddr:       getEnvWithDefault("REDIS_ADDR", ""),
		RedisPassword:   getEnvWithDefault("REDIS_PASS", ""),
		LeaderboardSize: getEnvAsIntWithDefault("LEADERBOARD_SIZE", 10),
		JWTSecret:       getEnvWithDefault("JWT_SECRET", ""),
		JWTIssuer:       getEnvWithDefault("JWT_ISSUER", "ohrace"),
		Workers:         getEnvAsIntWithDefault("WORKERS", 4),
	}
}

// MustGetEnv retrieves the value of an environment variable or logs a fatal error if not set.
// Commands that cannot run without a value (the API secret) call it at startup.
func MustGetEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		log.Fatalf("[APP] [FATAL] Environment variable %s is not set", key)
	}
	return value
}

// getEnvAsIntWithDefault retrieves the value of an environment variable as an integer,
// falling back to defaultValue when unset and failing when it cannot be parsed.
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("[APP] [FATAL] Environment variable %s must be an integer: %v", key, err)
	}
	return value
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
