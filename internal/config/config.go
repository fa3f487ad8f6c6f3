// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the tracker service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// Reminder job tuning.
	ReminderIntervalHours int
	DeadlineWindowDays    int
	StaleAfterDays        int
}

// Load reads environment variables and returns a validated Config.
// A .env file in the working directory is applied first when present;
// real environment variables take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("TRACKER_PORT")
	if port == "" {
		port = "8082"
	}

	interval, err := intEnv("REMINDER_INTERVAL_HOURS", 6)
	if err != nil {
		return nil, err
	}
	window, err := intEnv("DEADLINE_WINDOW_DAYS", 7)
	if err != nil {
		return nil, err
	}
	stale, err := intEnv("STALE_AFTER_DAYS", 7)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                  port,
		DatabaseURL:           dbURL,
		RedisURL:              redisURL,
		ReminderIntervalHours: interval,
		DeadlineWindowDays:    window,
		StaleAfterDays:        stale,
	}, nil
}

// intEnv reads a positive integer variable, falling back to def when unset.
func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
