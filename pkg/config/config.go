package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the trimmed value of key. Blank values count as unset.
func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func parsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	value, err := parse(raw)
	if err != nil {
		log.Printf("invalid value for %s: %v", key, err)
		return fallback
	}
	return value
}

// GetString retrieves an environment variable or returns fallback when it is
// unset or blank.
func GetString(key, fallback string) string {
	if value, ok := lookup(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as an integer.
func GetInt(key string, fallback int) int {
	return parsed(key, fallback, strconv.Atoi)
}

// GetBool retrieves an environment variable as a bool.
func GetBool(key string, fallback bool) bool {
	return parsed(key, fallback, strconv.ParseBool)
}

// GetDuration retrieves an environment variable as a duration. Values such as
// "90s" are parsed with time.ParseDuration; bare integers count in unit.
func GetDuration(key string, unit, fallback time.Duration) time.Duration {
	return parsed(key, fallback, func(raw string) (time.Duration, error) {
		if n, err := strconv.Atoi(raw); err == nil {
			return time.Duration(n) * unit, nil
		}
		return time.ParseDuration(raw)
	})
}
