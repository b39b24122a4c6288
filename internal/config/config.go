package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver         string
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	RedisHost        string
	RedisPort        string
	SessionSecret    string
	GinMode          string
	ListenAddr       string
	LogFile          string
	OAuthUserInfoURL string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBDriver:         getEnv("DB_DRIVER", "postgres"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "pmuser"),
		DBPassword:       getEnv("DB_PASSWORD", "pmpassword"),
		DBName:           getEnv("DB_NAME", "project_management"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		SessionSecret:    getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		LogFile:          getEnv("LOG_FILE", "logs/api.log"),
		OAuthUserInfoURL: getEnv("OAUTH_USERINFO_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
