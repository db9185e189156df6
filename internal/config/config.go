package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"edupair/internal/utils"
)

const defaultAllowedOrigin = "https://edu-pair-frontend.vercel.app"

// Config holds every setting the server reads at startup. It is built once and
// treated as read-only afterwards.
type Config struct {
	Environment    string
	Port           string
	JWTSecret      string
	BcryptCost     int
	AllowedOrigins []string
	RedisAddr      string
	KafkaBrokers   []string
	LogLevel       slog.Level
	DB             *DBConfig
}

// LoadConfig loads application configuration from environment variables
func LoadConfig() (*Config, error) {
	dbCfg, err := LoadDBConfig()
	if err != nil {
		return nil, err
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}

	bcryptCost := utils.DefaultBcryptCost
	if raw := os.Getenv("BCRYPT_COST"); raw != "" {
		bcryptCost, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q: %w", raw, err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return &Config{
		Environment:    getEnv("APP_ENV", "development"),
		Port:           getEnv("SERVER_PORT", "5000"),
		JWTSecret:      jwtSecret,
		BcryptCost:     bcryptCost,
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultAllowedOrigin)),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		LogLevel:       level,
		DB:             dbCfg,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
