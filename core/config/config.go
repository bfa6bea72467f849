package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsing is returned when environment variables cannot be parsed into the target.
var ErrParsing = errors.New("config: failed to parse environment")

var (
	cache      sync.Map // reflect.Type -> any (value of the config struct)
	loadDotenv sync.Once
)

// Load fills cfg from the environment. The first Load for a type parses the
// environment; later calls for the same type copy the cached value.
// A .env file in the working directory is loaded once, without overriding
// variables already set.
func Load[T any](cfg *T) error {
	loadDotenv.Do(func() {
		_ = godotenv.Load()
	})

	typ := reflect.TypeFor[T]()
	if cached, ok := cache.Load(typ); ok {
		*cfg = cached.(T)
		return nil
	}

	var fresh T
	if err := env.Parse(&fresh); err != nil {
		return fmt.Errorf("%w: %w", ErrParsing, err)
	}

	actual, _ := cache.LoadOrStore(typ, fresh)
	*cfg = actual.(T)
	return nil
}

// MustLoad is Load that panics on error.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Parse fills cfg from the environment without caching or .env loading.
func Parse[T any](cfg *T) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrParsing, err)
	}
	return nil
}

// Reset clears the cache. Intended for tests.
func Reset() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}
