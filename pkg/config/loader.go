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
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> cached value
)

type cached struct {
	once  sync.Once
	value any
	err   error
}

// Load parses the environment into v. The first successful parse of a type
// is cached and later calls for the same type receive a copy of it.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDotenv()

	key := reflect.TypeFor[T]()
	entry, _ := cache.LoadOrStore(key, &cached{})
	c := entry.(*cached)

	c.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			c.err = errors.Join(ErrParsingConfig, err)
			return
		}
		c.value = parsed
	})

	if c.err != nil {
		// Failed parses are not cached so a corrected environment can be retried.
		cache.CompareAndDelete(key, c)
		return c.err
	}
	*v = c.value.(T)
	return nil
}

// Parse parses the environment into v without caching.
func Parse[T any](v *T, opts ...env.Options) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDotenv()

	var o env.Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if err := env.ParseWithOptions(v, o); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad returns the configuration of type T and panics when it cannot
// be parsed. Intended for process start.
func MustLoad[T any]() T {
	var v T
	if err := Load(&v); err != nil {
		panic(fmt.Sprintf("config: load %s: %v", reflect.TypeFor[T](), err))
	}
	return v
}

func loadDotenv() {
	dotenvOnce.Do(func() {
		// A missing .env file is normal outside local development.
		_ = godotenv.Load()
	})
}
