package config

import (
	"os"
	"strconv"
)

// LockoutConfig holds the lockout policy envelope. DefaultMaxAttempts is the
// hard fallback when the mirrored threshold is absent or unreadable; the
// Min/Max bounds gate what a manager may configure.
type LockoutConfig struct {
	DefaultMaxAttempts int
	MinThreshold       int
	MaxThreshold       int
}

func LoadLockoutConfig() *LockoutConfig {
	return &LockoutConfig{
		DefaultMaxAttempts: getEnvAsInt("LOCKOUT_DEFAULT_MAX_ATTEMPTS", 3),
		MinThreshold:       getEnvAsInt("LOCKOUT_MIN_THRESHOLD", 1),
		MaxThreshold:       getEnvAsInt("LOCKOUT_MAX_THRESHOLD", 10),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
