package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Addr             string
	BotMoveDelay     time.Duration
	ReconnectWindow  time.Duration
	GridColumns      int
	GridRows         int
	PostgresURL      string
	RedisURL         string
	RedisPassword    string
	DecisionCacheTTL time.Duration
	KafkaBrokers     []string
	KafkaTopic       string
	LogLevel         log.Level
}

// LoadDotEnv reads .env from the working directory or its parent. A
// missing file is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Debug("no .env file found")
		}
	}
}

func LoadConfig() *Config {
	// PORT first (used by Render, Fly.io, Heroku, etc.)
	addr := GetEnv("ADDR", ":8080")
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	var brokers []string
	for _, b := range strings.Split(GetEnv("KAFKA_BROKERS", ""), ",") {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}

	return &Config{
		Addr:             addr,
		BotMoveDelay:     GetEnvAsDuration("BOT_MOVE_DELAY", 500*time.Millisecond),
		ReconnectWindow:  GetEnvAsDuration("RECONNECT_WINDOW", 30*time.Second),
		GridColumns:      GetEnvAsInt("GRID_COLUMNS", 7),
		GridRows:         GetEnvAsInt("GRID_ROWS", 6),
		PostgresURL:      GetEnv("POSTGRES_URL", ""),
		RedisURL:         GetEnv("REDIS_URL", ""),
		RedisPassword:    GetEnv("REDIS_PASSWORD", ""),
		DecisionCacheTTL: GetEnvAsDuration("DECISION_CACHE_TTL", 10*time.Minute),
		KafkaBrokers:     brokers,
		KafkaTopic:       GetEnv("KAFKA_TOPIC", "game-events"),
		LogLevel:         LogLevel(GetEnv("LOG_LEVEL", "info")),
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warnf("invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsDuration accepts whole seconds ("30") or a Go duration ("1m30s").
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warnf("invalid duration for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}
	return d
}

// LogLevel parses name, falling back to info.
func LogLevel(name string) log.Level {
	level, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
