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
	cacheMu sync.Mutex
	cache   = make(map[string]any)

	dotenvOnce sync.Once
)

// Option tunes how a configuration struct is parsed.
type Option func(*options)

type options struct {
	prefix   string
	envFiles []string
	noCache  bool
}

// WithPrefix requires every variable of the struct to carry the prefix,
// e.g. WithPrefix("NOTIFY_") reads NOTIFY_HTTP_ADDR for `env:"HTTP_ADDR"`.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvFiles loads the given dotenv files before parsing. Missing files are ignored.
// Without this option the default .env in the working directory is tried once.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = append(o.envFiles, files...) }
}

// WithoutCache parses the environment again even if the type was loaded before.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

// Load parses environment variables into v according to its `env` tags.
// Each configuration type (and prefix) is parsed once; later calls return
// the cached copy.
//
//	type StoreConfig struct {
//		Backend string `env:"STORE_BACKEND" envDefault:"sqlite"`
//	}
//
//	var cfg StoreConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.envFiles) > 0 {
		for _, f := range o.envFiles {
			// Overload is not used: real environment wins over files.
			_ = godotenv.Load(f)
		}
	} else {
		dotenvOnce.Do(func() { _ = godotenv.Load() })
	}

	key := cacheKey[T](o.prefix)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if !o.noCache {
		if cached, ok := cache[key]; ok {
			*v = cached.(T)
			return nil
		}
	}

	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = *v

	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func cacheKey[T any](prefix string) string {
	t := reflect.TypeFor[T]()
	return prefix + t.PkgPath() + "." + t.String()
}
