// Package config loads typed configuration structs from environment
// variables. Each struct type is parsed once per process and cached, so
// independent components can load the same config without re-parsing.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the target struct.
	ErrParsingConfig = errors.New("config: failed to parse environment variables")
	// ErrNilPointer is returned when Load receives a nil destination.
	ErrNilPointer = errors.New("config: nil pointer provided")
)

var (
	mu         sync.RWMutex
	cache      = make(map[string]any)
	dotenvOnce sync.Once
)

// Load parses environment variables into cfg based on `env` struct tags.
// The first call for a given type performs the parse; later calls return
// the cached value. A .env file in the working directory is loaded once
// if present.
//
//	type PGConfig struct {
//		ConnString string `env:"PG_CONN_URL,required"`
//	}
//	var cfg PGConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](cfg *T) error {
	dotenvOnce.Do(func() {
		// Missing .env is not an error; real envs set variables directly.
		_ = godotenv.Load()
	})
	if cfg == nil {
		return ErrNilPointer
	}

	key := typeName[T]()

	mu.RLock()
	cached, ok := cache[key]
	mu.RUnlock()
	if ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	mu.Lock()
	// A concurrent loader may have won the race; keep its copy so every
	// caller observes the same value.
	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
	} else {
		cache[key] = *cfg
	}
	mu.Unlock()

	return nil
}

// MustLoad is Load that panics on failure. Intended for configuration the
// process cannot start without.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
