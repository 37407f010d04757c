package core

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// getEnvOrDefault returns the environment variable value or the default when unset.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value.
// Invalid values fall back to the default rather than failing.
func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseSizeEnv parses a byte-size environment variable with a default
// value. Accepts bare byte counts and unit suffixes ("20MB", "512KB").
// Invalid values fall back to the default rather than failing.
func parseSizeEnv(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if size, err := ParseBytes(value); err == nil {
			return size
		}
	}
	return defaultValue
}

// parseDurationEnv parses a duration environment variable (e.g. "30s", "2m")
// with a default value. Bare integers are interpreted as seconds.
func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// parseListEnv parses a comma-separated environment variable into a slice.
// Entries are trimmed of whitespace; empty entries are dropped.
// Returns nil if the variable is unset or contains no usable entries.
func parseListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
