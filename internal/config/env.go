package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// maxNumberedKeys bounds the GEMINI_API_KEY_<n> scan.
const maxNumberedKeys = 10

// geminiKeys collects the credential pool in rotation order:
// GEMINI_API_KEYS (csv), then GEMINI_API_KEY_1..10, then GEMINI_API_KEY.
// Duplicates are kept once.
func geminiKeys() []string {
	var keys []string
	seen := make(map[string]bool)
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}

	for _, k := range strings.Split(os.Getenv("GEMINI_API_KEYS"), ",") {
		add(k)
	}
	for i := 1; i <= maxNumberedKeys; i++ {
		add(os.Getenv(fmt.Sprintf("GEMINI_API_KEY_%d", i)))
	}
	add(os.Getenv("GEMINI_API_KEY"))

	return keys
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
