package utils

import (
	"os"
	"strings"
)

// GetEnvWithDefault returns the value of the environment variable key or the defaultValue if key is not set
func GetEnvWithDefault(key string, defaultValue string) string {
	envValue, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	return envValue
}

// FirstNonEmptyEnv returns the first non-empty value among the given environment variables.
func FirstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// LookupEnvVars takes a slice of environment variable names and returns all existing and missing keys
// in two separate slices.
func LookupEnvVars(envVars ...string) (existing []string, missing []string) {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value == "" {
			missing = append(missing, envVar)
		} else {
			existing = append(existing, envVar)
		}
	}

	return existing, missing
}

// EnvWithPrefix returns the names of all set environment variables starting with prefix.
func EnvWithPrefix(prefix string) []string {
	var keys []string
	for _, e := range os.Environ() {
		// Split on the first "=" only, values may contain one
		key, _, _ := strings.Cut(e, "=")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}
