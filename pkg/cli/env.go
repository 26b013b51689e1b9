package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvAPIKey is consulted when the context carries no API key.
const EnvAPIKey = "GEMINI_API_KEY"

// ErrNoAPIKey is returned when no API key can be found.
var ErrNoAPIKey = errors.New("no API key: add a context with --api-key or set " + EnvAPIKey)

// LoadEnv loads the given .env files, or ./.env when none are given, into
// the process environment. Missing files are ignored and variables already
// set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("cli: load env: %w", err)
	}
	return nil
}

// ResolveAPIKey returns the context's API key, falling back to EnvAPIKey.
// ctx may be nil.
func ResolveAPIKey(ctx *Context) (string, error) {
	if ctx != nil && ctx.APIKey != "" {
		return ctx.APIKey, nil
	}
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}
	return "", ErrNoAPIKey
}
