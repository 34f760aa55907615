// Package config loads typed configuration structs from environment
// variables, reading a .env file once per process when present. Each
// struct type is parsed once and cached, so every package that needs
// e.g. the postgres config gets the same values without re-parsing.
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
	// ErrParsingConfig wraps env parse failures, typically a missing
	// required variable or a malformed value.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
)

var (
	mu     sync.Mutex
	loaded = make(map[reflect.Type]any)

	dotenvOnce sync.Once
)

// Load parses environment variables into a fresh T. The first call for
// a given type does the parse; later calls return the cached copy.
//
//	pgCfg, err := config.Load[pg.Config]()
func Load[T any]() (T, error) {
	dotenvOnce.Do(func() {
		// A missing .env file is the normal production case.
		_ = godotenv.Load()
	})

	var zero T
	key := reflect.TypeOf(zero)

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := loaded[key]; ok {
		return cached.(T), nil
	}

	cfg, err := env.ParseAs[T]()
	if err != nil {
		return zero, errors.Join(ErrParsingConfig, err)
	}
	loaded[key] = cfg
	return cfg, nil
}

// MustLoad is Load that panics on failure. For configuration the
// process cannot start without.
func MustLoad[T any]() T {
	cfg, err := Load[T]()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}
