package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// cache keeps one parsed value per config type so that repeated Load calls
// across packages observe the same configuration.
type cache struct {
	mu     sync.RWMutex
	values map[string]any
}

var (
	global = &cache{values: make(map[string]any)}

	dotenvOnce sync.Once
)

// Load fills v from environment variables using `env` struct tags.
// A .env file in the working directory is read once per process if present.
// The parsed value is cached per type; later calls return the cached copy.
//
//	type PGConfig struct {
//		URL string `env:"PG_CONN_URL,required"`
//	}
//
//	var cfg PGConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	key := typeKey[T]()

	global.mu.RLock()
	cached, ok := global.values[key]
	global.mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	// another goroutine may have parsed it while we waited for the lock
	if cached, ok := global.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	global.values[key] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load that panics on failure. Intended for process start-up.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Reload drops the cached value for T and parses the environment again.
func Reload[T any](v *T) error {
	global.mu.Lock()
	delete(global.values, typeKey[T]())
	global.mu.Unlock()
	return Load(v)
}

func typeKey[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return t.PkgPath() + "." + t.String()
}
