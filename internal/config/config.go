// Package config loads quill settings from an optional YAML file overlaid
// with QUILL_* environment variables.
//
// Precedence: defaults, then the file, then the environment. CLI flags are
// applied by the caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit path is given and it exists.
const DefaultFile = "quill.yaml"

// EnvPrefix prefixes every environment override, e.g. QUILL_STORE_DRIVER.
const EnvPrefix = "QUILL"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverSQL    = "sql"
)

// Config is the complete quill configuration.
type Config struct {
	Store         StoreConfig         `mapstructure:"store"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Search        SearchConfig        `mapstructure:"search"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Log           LogConfig           `mapstructure:"log"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Path   string      `mapstructure:"path"`
	Redis  RedisConfig `mapstructure:"redis"`
	SQL    SQLConfig   `mapstructure:"sql"`

	// EncryptionKey is a hex-encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key"`
	// FallbackKeys decrypt snapshots written with retired keys.
	FallbackKeys []string `mapstructure:"fallback_keys"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	// LockTTL is the lease of the per-thread lock. It is renewed while a run holds it.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type SQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SearchConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	MaxResults int    `mapstructure:"max_results"`
	MaxQueries int    `mapstructure:"max_queries"`
}

// CollaboratorsConfig bounds every call to the language model and search service.
type CollaboratorsConfig struct {
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	MaxRetries    int           `mapstructure:"max_retries"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type WorkflowConfig struct {
	MaxRevisions int `mapstructure:"max_revisions"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   ".quill/threads",
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "quill", LockTTL: 30 * time.Second},
			SQL:    SQLConfig{DSN: ".quill/quill.db?_pragma=busy_timeout(5000)"},
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4o-mini",
			Temperature: 0,
			Timeout:     60 * time.Second,
		},
		Search: SearchConfig{
			BaseURL:    "https://api.tavily.com",
			MaxResults: 2,
			MaxQueries: 3,
		},
		Collaborators: CollaboratorsConfig{
			RatePerSecond: 2,
			Burst:         4,
			MaxRetries:    2,
			Timeout:       90 * time.Second,
		},
		Workflow: WorkflowConfig{MaxRevisions: 2},
		Log:      LogConfig{Level: "info", Format: "text"},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Metrics:  MetricsConfig{Addr: ":2112"},
	}
}

// Load reads path (or DefaultFile when path is empty and the file exists)
// and applies environment overrides from the process environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	raw := map[string]any{}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	for _, key := range Keys() {
		if v, ok := lookup(EnvName(key)); ok {
			if err := set(raw, key, strings.TrimSpace(v)); err != nil {
				return Config{}, err
			}
		}
	}

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would only fail later at wiring time.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverRedis, DriverSQL:
	default:
		return fmt.Errorf("unknown store driver %q (want memory, file, redis or sql)", c.Store.Driver)
	}
	if c.Store.Redis.LockTTL <= 0 {
		return errors.New("store.redis.lock_ttl must be positive")
	}
	if c.Search.MaxResults < 1 || c.Search.MaxQueries < 1 {
		return errors.New("search.max_results and search.max_queries must be positive")
	}
	if c.Collaborators.MaxRetries < 0 {
		return errors.New("collaborators.max_retries must not be negative")
	}
	return nil
}

func decode(raw map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Keys lists the dotted path of every leaf setting, e.g. "store.redis.addr".
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := range t.NumField() {
			f := t.Field(i)
			key := prefix + f.Tag.Get("mapstructure")
			if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeFor[time.Duration]() {
				walk(f.Type, key+".")
				continue
			}
			keys = append(keys, key)
		}
	}
	walk(reflect.TypeFor[Config](), "")
	return keys
}

// EnvName maps a dotted key to its environment variable.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func set(raw map[string]any, key string, v any) error {
	parts := strings.Split(key, ".")
	m := raw
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p]
		if !ok || next == nil {
			child := map[string]any{}
			m[p] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %q is not a section", p)
		}
		m = child
	}
	m[parts[len(parts)-1]] = v
	return nil
}
