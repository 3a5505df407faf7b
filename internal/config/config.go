// Package config loads nativecall CLI settings.
//
// Sources are merged with koanf in increasing priority: built-in defaults,
// a YAML file, NATIVECALL_* environment variables, then explicit flag
// overrides. Environment names map to keys by dropping the prefix,
// lowercasing and turning underscores into dots, so NATIVECALL_SYMBOLS_GET
// sets symbols.get.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sliverarmory/nativecall"
	"github.com/sliverarmory/nativecall/internal/logger"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "NATIVECALL_"

// DefaultValue is passed to the consumer when no value is configured.
const DefaultValue = "18446744073709551615"

// Config is the resolved CLI configuration.
type Config struct {
	// Library is the path of the native shared library.
	Library string        `koanf:"library"`
	// Value is the decimal uint64 passed to the consumer. It is a string so
	// that values above 2^63 survive every source unchanged.
	Value   string        `koanf:"value"`
	Load    LoadConfig    `koanf:"load"`
	Symbols SymbolsConfig `koanf:"symbols"`
	Log     LogConfig     `koanf:"log"`
}

type LoadConfig struct {
	// Memory loads the library from an in-memory image.
	Memory bool `koanf:"memory"`
	// Verify checks both exports against the symbol table before binding.
	Verify bool `koanf:"verify"`
}

type SymbolsConfig struct {
	Get   string `koanf:"get"`
	Print string `koanf:"print"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the built-in configuration as a nested map.
func Defaults() map[string]any {
	log := logger.DefaultConfig()
	return map[string]any{
		"value": DefaultValue,
		"load": map[string]any{
			"memory": false,
			"verify": false,
		},
		"symbols": map[string]any{
			"get":   nativecall.DefaultProducer,
			"print": nativecall.DefaultConsumer,
		},
		"log": map[string]any{
			"level":  log.Level,
			"format": log.Format,
		},
	}
}

// Signatures returns the signature table for the configured symbols.
func (c *Config) Signatures() nativecall.SignatureTable {
	return nativecall.SignatureTable{
		{Name: c.Symbols.Get, Kind: nativecall.KindReturnsU64},
		{Name: c.Symbols.Print, Kind: nativecall.KindTakesU64},
	}
}

// ParsedValue parses Value as a base-10 uint64.
func (c *Config) ParsedValue() (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(c.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: value %q is not an unsigned 64-bit integer: %w", c.Value, err)
	}
	return v, nil
}

// Validate checks everything except the library path, which may still come
// from a command-line argument.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.ParsedValue(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Signatures().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: symbols: %w", err))
	}
	return errors.Join(errs...)
}

// Loader merges configuration sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: EnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges defaults, file, environment and overrides, then validates.
// Override keys are dotted paths such as "symbols.get".
func (l *Loader) Load(overrides map[string]any) (*Config, error) {
	if err := l.k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", l.filePath, err)
		}
	}

	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	if len(overrides) > 0 {
		if err := l.k.Load(mapProvider(maps.Unflatten(overrides, ".")), nil); err != nil {
			return nil, fmt.Errorf("config: load overrides: %w", err)
		}
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
