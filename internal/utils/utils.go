package utils

import (
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// GetEnv returns the value of key, or fallback when unset or empty
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvDuration parses key as a time.Duration ("10m", "30s"). Bare integers
// are read as seconds.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("Ignoring invalid duration", "key", key, "value", value)
	return fallback
}

// CalculateDataMD5 returns the hex MD5 of data, used for content-addressed keys
func CalculateDataMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
