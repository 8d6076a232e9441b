package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

func EnvString(env map[string]string, key string, fallback string) string {
	if env[key] != "" {
		return env[key]
	}

	return fallback
}

func EnvInt(env map[string]string, key string, fallback int) int {
	if env[key] != "" {
		if n, err := strconv.Atoi(env[key]); err == nil {
			return n
		}
	}

	return fallback
}

func EnvDuration(env map[string]string, key string, fallback time.Duration) time.Duration {
	if env[key] != "" {
		if d, err := time.ParseDuration(env[key]); err == nil {
			return d
		}
	}

	return fallback
}

func EnvBool(env map[string]string, key string, fallback bool) bool {
	if env[key] != "" {
		if b, err := strconv.ParseBool(env[key]); err == nil {
			return b
		}
	}

	return fallback
}
