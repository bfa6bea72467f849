// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/flux/core/config"
//
//	func main() {
//		var cfg flux.Config
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//
//		f := flux.New(flux.WithConfig(cfg))
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 flux.Config
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 flux.Config
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently. Parse skips the cache and the
// .env file; Reset clears the cache in tests.
package config
