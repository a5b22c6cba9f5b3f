package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from one or more .env files.
// When called without arguments it falls back to the default `.env` file in
// the current working directory. Files are applied in order, with values from
// later files taking precedence over earlier ones and over variables already
// present in the process environment.
//
// Example:
//
//	if err := config.LoadEnv("./config/.env", "./config/.env.local"); err != nil {
//		// Handle error
//	}
func LoadEnv(paths ...string) error {
	return godotenv.Overload(paths...)
}

// MustLoadEnv works like LoadEnv but panics if loading fails.
// This is useful for environment files that are required for the application
// to start.
//
// Example:
//
//	config.MustLoadEnv("./config/.env")
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("Failed to load required environment files: %v", err))
	}
}

// ResetCache clears the global configuration cache so every configuration
// type will be re-parsed on its next Load call. It is primarily intended for
// use in tests.
func ResetCache() {
	globalCache.mu.Lock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
	globalCache.mu.Unlock()
}

// ForceReloadConfig re-parses the environment into the provided configuration
// struct and replaces any cached copy, bypassing the once-per-type guarantee
// of Load. It is handy in tests after the process environment changes.
//
// Example:
//
//	t.Setenv("DB_HOST", "localhost")
//	var dbConfig DatabaseConfig
//	err := config.ForceReloadConfig(&dbConfig)
func ForceReloadConfig[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	if parseErr := env.Parse(v); parseErr != nil {
		return errors.Join(ErrParsingConfig, parseErr)
	}

	typeName := getTypeName[T]()

	// Replace the cached value and mark the type's sync.Once as consumed so
	// subsequent Load calls are served from the refreshed cache.
	once := new(sync.Once)
	once.Do(func() {})

	globalCache.mu.Lock()
	globalCache.values[typeName] = *v // Store a copy to avoid external modifications
	globalCache.onces[typeName] = once
	globalCache.mu.Unlock()

	return nil
}
