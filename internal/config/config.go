// Package config holds the runtime configuration: model server endpoint,
// cache sizing, per-operation sampling parameters and logging. Values are
// layered defaults < YAML file < environment, and the caller may apply flag
// overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by ApplyEnv.
const (
	EnvServerURL      = "TYPIFY_SERVER_URL"
	EnvCacheSize      = "TYPIFY_CACHE_SIZE"
	EnvCleanupBatch   = "TYPIFY_CLEANUP_BATCH"
	EnvLogLevel       = "TYPIFY_LOG_LEVEL"
	EnvRequestTimeout = "TYPIFY_REQUEST_TIMEOUT"
)

// Config is the full runtime configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Cache      CacheConfig      `yaml:"cache"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig locates the llama-server instance that performs inference.
type ServerConfig struct {
	URL string `yaml:"url"`

	// RequestTimeout bounds one completion call end to end; HealthTimeout
	// bounds a single readiness probe.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	HealthTimeout  time.Duration `yaml:"health_timeout"`

	// LoadRetries and LoadRetryDelay shape the startup probe loop:
	// llama-server answers 503 while the model is still loading.
	LoadRetries    int           `yaml:"load_retries"`
	LoadRetryDelay time.Duration `yaml:"load_retry_delay"`
}

// CacheConfig sizes the response caches. MaxSize bounds the grammar cache;
// the summary and tone caches each get half. CleanupBatch is shared.
type CacheConfig struct {
	MaxSize      int `yaml:"max_size"`
	CleanupBatch int `yaml:"cleanup_batch"`
}

// GenerationConfig carries the sampling parameters per operation plus the
// stop token sets.
type GenerationConfig struct {
	Grammar OpParams   `yaml:"grammar"`
	Summary OpParams   `yaml:"summary"`
	Tone    OpParams   `yaml:"tone"`
	Stop    StopTokens `yaml:"stop_tokens"`
}

// OpParams are the sampling knobs for one operation. The prediction budget
// for an input of n characters is n*PerCharTokens floored at MinTokens and,
// when MaxTokens is positive, capped there.
type OpParams struct {
	MinTokens     int     `yaml:"min_tokens"`
	MaxTokens     int     `yaml:"max_tokens"`
	PerCharTokens int     `yaml:"per_char_tokens"`
	Temperature   float64 `yaml:"temperature"`
	TopP          float64 `yaml:"top_p"`
	TopK          int     `yaml:"top_k"`
	RepeatPenalty float64 `yaml:"repeat_penalty"`

	// MinOutputRatio rejects model output shorter than this fraction of the
	// input; 0 disables the check.
	MinOutputRatio float64 `yaml:"min_output_ratio"`
}

// StopTokens are the per-operation stop sequences passed to the model.
type StopTokens struct {
	Default    []string `yaml:"default"`
	Summarize  []string `yaml:"summarize"`
	ToneChange []string `yaml:"tone_change"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// stopDefaults returns a fresh copy of the instruct-format stop sequences.
func stopDefaults() []string {
	return []string{"[INST]", "</s>", "[/INST]"}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "http://127.0.0.1:8080",
			RequestTimeout: 120 * time.Second,
			HealthTimeout:  2 * time.Second,
			LoadRetries:    30,
			LoadRetryDelay: 2 * time.Second,
		},
		Cache: CacheConfig{
			MaxSize:      100,
			CleanupBatch: 20,
		},
		Generation: GenerationConfig{
			Grammar: OpParams{
				MinTokens:      100,
				PerCharTokens:  4,
				Temperature:    0.3,
				TopP:           0.9,
				TopK:           40,
				RepeatPenalty:  1.05,
				MinOutputRatio: 0.3,
			},
			Summary: OpParams{
				MinTokens:     100,
				MaxTokens:     200,
				PerCharTokens: 1,
				Temperature:   0.2,
				TopP:          0.8,
				TopK:          40,
				RepeatPenalty: 1.05,
			},
			Tone: OpParams{
				MinTokens:      150,
				PerCharTokens:  2,
				Temperature:    0.2,
				TopP:           0.9,
				TopK:           40,
				RepeatPenalty:  1.05,
				MinOutputRatio: 0.3,
			},
			Stop: StopTokens{
				Default:    stopDefaults(),
				Summarize:  stopDefaults(),
				ToneChange: stopDefaults(),
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays recognized environment variables onto c. Unparseable
// values leave the field unchanged and are reported in the joined error.
func (c *Config) ApplyEnv() error {
	var errs []error
	if v := os.Getenv(EnvServerURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvCacheSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.MaxSize = n
		} else {
			errs = append(errs, fmt.Errorf("%s: invalid size %q", EnvCacheSize, v))
		}
	}
	if v := os.Getenv(EnvCleanupBatch); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.CleanupBatch = n
		} else {
			errs = append(errs, fmt.Errorf("%s: invalid batch size %q", EnvCleanupBatch, v))
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvRequestTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Server.RequestTimeout = d
		} else {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", EnvRequestTimeout, v))
		}
	}
	return errors.Join(errs...)
}

// Validate rejects configurations the application cannot run with.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server url is required")
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.CleanupBatch <= 0 {
		return fmt.Errorf("cache cleanup_batch must be positive, got %d", c.Cache.CleanupBatch)
	}
	return nil
}
