package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"xlorad/internal/engine"
	"xlorad/internal/xlora"
)

// Config holds runtime parameters for the server. Zero values mean
// "unspecified"; the manager and HTTP layer apply their own defaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	BudgetMB int `json:"budget_mb" yaml:"budget_mb" toml:"budget_mb"`
	MarginMB int `json:"margin_mb" yaml:"margin_mb" toml:"margin_mb"`

	MaxQueueDepth  int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitMS      int `json:"max_wait_ms" yaml:"max_wait_ms" toml:"max_wait_ms"`
	DrainTimeoutMS int `json:"drain_timeout_ms" yaml:"drain_timeout_ms" toml:"drain_timeout_ms"`
	ChatTimeoutMS  int `json:"chat_timeout_ms" yaml:"chat_timeout_ms" toml:"chat_timeout_ms"`

	ContextLen int `json:"context_len" yaml:"context_len" toml:"context_len"`
	Threads    int `json:"threads" yaml:"threads" toml:"threads"`

	// SamplingOrder is "temperature-first" or "top-p-first".
	SamplingOrder string `json:"sampling_order" yaml:"sampling_order" toml:"sampling_order"`

	// CacheTTLMS < 0 disables the deterministic completion cache; 0 keeps the
	// manager default.
	CacheTTLMS int `json:"cache_ttl_ms" yaml:"cache_ttl_ms" toml:"cache_ttl_ms"`
	CacheSize  int `json:"cache_size" yaml:"cache_size" toml:"cache_size"`

	LRUStatePath string `json:"lru_state_path" yaml:"lru_state_path" toml:"lru_state_path"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORS    CORS         `json:"cors" yaml:"cors" toml:"cors"`
	Scaling ScalingKnobs `json:"scaling" yaml:"scaling" toml:"scaling"`

	Models []ModelEntry `json:"models" yaml:"models" toml:"models"`
}

// CORS configures the opt-in CORS middleware.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// ScalingKnobs tunes the adapter blend applied to X-LoRA models. Pointers so
// an explicit zero weight (adapters off) survives parsing.
type ScalingKnobs struct {
	Weight *float64 `json:"weight" yaml:"weight" toml:"weight"`
	TopK   *int     `json:"top_k" yaml:"top_k" toml:"top_k"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate rejects values no component accepts. Defaults are left to the
// consumers; only contradictions fail here.
func (c Config) Validate() error {
	if c.BudgetMB < 0 {
		return fmt.Errorf("config: budget_mb must be >= 0, got %d", c.BudgetMB)
	}
	if c.MarginMB < 0 {
		return fmt.Errorf("config: margin_mb must be >= 0, got %d", c.MarginMB)
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("config: max_queue_depth must be >= 0, got %d", c.MaxQueueDepth)
	}
	if c.SamplingOrder != "" && !engine.ValidOrderPolicy(c.SamplingOrder) {
		return fmt.Errorf("config: unknown sampling_order %q", c.SamplingOrder)
	}
	switch c.LogLevel {
	case "", "off", "error", "info", "debug":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	ids := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("config: models[%d] has no id", i)
		}
		if ids[m.ID] {
			return fmt.Errorf("config: duplicate model id %q", m.ID)
		}
		ids[m.ID] = true
	}
	return nil
}

// MaxWait returns the admission wait as a duration; zero means unset.
func (c Config) MaxWait() time.Duration { return msDuration(c.MaxWaitMS) }

// DrainTimeout returns the unload drain bound; zero means unset.
func (c Config) DrainTimeout() time.Duration { return msDuration(c.DrainTimeoutMS) }

// ChatTimeout returns the per-request generation bound; zero means none.
func (c Config) ChatTimeout() time.Duration { return msDuration(c.ChatTimeoutMS) }

// CacheTTL returns the completion cache TTL. Negative disables the cache,
// zero keeps the manager default.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMS) * time.Millisecond
}

// OrderPolicy returns the configured sampling order, empty for the default.
func (c Config) OrderPolicy() engine.OrderPolicy {
	return engine.OrderPolicy(c.SamplingOrder)
}

// XLoraScaling materializes the scaling knobs, defaulting to the identity
// blend.
func (c Config) XLoraScaling() xlora.Scaling {
	s := xlora.DefaultScaling()
	if c.Scaling.Weight != nil {
		s.Weight = *c.Scaling.Weight
	}
	if c.Scaling.TopK != nil {
		k := *c.Scaling.TopK
		s.TopK = &k
	}
	return s
}

func msDuration(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
