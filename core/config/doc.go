// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package loads .env files on first use and uses the caarlos0/env library
// for parsing environment variables into struct fields.
//
//	type VerificationConfig struct {
//		CodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`
//	}
//
//	var cfg VerificationConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Different types are cached independently; loading the same type twice returns
// the cached value without re-reading the environment.
package config
