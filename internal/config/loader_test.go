package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"xlorad/internal/engine"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const yamlConfig = `addr: ":8080"
models_dir: /models
default_model: zephyr-xlora
budget_mb: 8192
margin_mb: 512
max_queue_depth: 16
max_wait_ms: 10000
drain_timeout_ms: 2000
chat_timeout_ms: 60000
context_len: 4096
threads: 8
sampling_order: top-p-first
cache_ttl_ms: 60000
cache_size: 64
lru_state_path: /var/lib/xlorad/lru.json
log_level: info
cors:
  enabled: true
  origins: ["https://example.com"]
scaling:
  weight: 0.5
  top_k: 2
models:
  - id: zephyr-xlora
    family: zephyr
    kind: xlora-gguf
    tok_model_id: HuggingFaceH4/zephyr-7b-beta
    quantized_model_id: TheBloke/zephyr-7B-beta-GGUF
    quantized_filename: zephyr-7b-beta.Q4_0.gguf
    xlora_model_id: lamm-mit/x-lora
    order: /models/xlora-ordering.json
`

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", yamlConfig)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.ModelsDir != "/models" || cfg.DefaultModel != "zephyr-xlora" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.BudgetMB != 8192 || cfg.MarginMB != 512 || cfg.MaxQueueDepth != 16 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if cfg.SamplingOrder != "top-p-first" || cfg.ContextLen != 4096 || cfg.Threads != 8 {
		t.Fatalf("unexpected knobs: %+v", cfg)
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.Origins) != 1 {
		t.Fatalf("unexpected cors: %+v", cfg.CORS)
	}
	if cfg.Scaling.Weight == nil || *cfg.Scaling.Weight != 0.5 || cfg.Scaling.TopK == nil || *cfg.Scaling.TopK != 2 {
		t.Fatalf("unexpected scaling: %+v", cfg.Scaling)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].ID != "zephyr-xlora" || cfg.Models[0].XLoraModelID != "lamm-mit/x-lora" {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{
		"addr": ":7070",
		"models_dir": "/m",
		"budget_mb": 42,
		"margin_mb": 2,
		"default_model": "m2",
		"models": [{"id": "m2", "quantized_filename": "m2.Q4_0.gguf"}]
	}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.BudgetMB != 42 || cfg.MarginMB != 2 || cfg.DefaultModel != "m2" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].QuantizedFilename != "m2.Q4_0.gguf" {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", `addr = ":8081"
models_dir = "/x"
budget_mb = 9
margin_mb = 1
default_model = "m3"

[[models]]
id = "m3"
quantized_filename = "m3.Q5_K_M.gguf"
repeat_last_n = 32
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.BudgetMB != 9 || cfg.MarginMB != 1 || cfg.DefaultModel != "m3" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].RepeatLastN == nil || *cfg.Models[0].RepeatLastN != 32 {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoadInvalidPayloads(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.json": `{"addr": ":8080", "models_dir": }`,
		"bad.toml": "addr = \n",
	}
	for name, content := range cases {
		p := writeTempFile(t, d, name, content)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected unmarshal error", name)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"zero value", func(c *Config) {}, true},
		{"negative budget", func(c *Config) { c.BudgetMB = -1 }, false},
		{"negative margin", func(c *Config) { c.MarginMB = -1 }, false},
		{"negative queue", func(c *Config) { c.MaxQueueDepth = -1 }, false},
		{"bad order", func(c *Config) { c.SamplingOrder = "alphabetical" }, false},
		{"good order", func(c *Config) { c.SamplingOrder = "temperature-first" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, false},
		{"model without id", func(c *Config) { c.Models = []ModelEntry{{}} }, false},
		{"duplicate ids", func(c *Config) { c.Models = []ModelEntry{{ID: "a"}, {ID: "a"}} }, false},
	}
	for _, tc := range cases {
		var cfg Config
		tc.mutate(&cfg)
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Config{MaxWaitMS: 1500, DrainTimeoutMS: 200, ChatTimeoutMS: 60000, CacheTTLMS: -1}
	if cfg.MaxWait() != 1500*time.Millisecond {
		t.Fatalf("MaxWait=%v", cfg.MaxWait())
	}
	if cfg.DrainTimeout() != 200*time.Millisecond {
		t.Fatalf("DrainTimeout=%v", cfg.DrainTimeout())
	}
	if cfg.ChatTimeout() != time.Minute {
		t.Fatalf("ChatTimeout=%v", cfg.ChatTimeout())
	}
	if cfg.CacheTTL() >= 0 {
		t.Fatalf("negative ttl must stay negative: %v", cfg.CacheTTL())
	}
	var zero Config
	if zero.MaxWait() != 0 || zero.CacheTTL() != 0 {
		t.Fatalf("zero config must map to zero durations")
	}
}

func TestOrderPolicy(t *testing.T) {
	var cfg Config
	if cfg.OrderPolicy() != engine.OrderPolicy("") {
		t.Fatalf("unset order must stay empty")
	}
	cfg.SamplingOrder = "top-p-first"
	if cfg.OrderPolicy() != engine.TopPFirst {
		t.Fatalf("OrderPolicy=%v", cfg.OrderPolicy())
	}
}

func TestXLoraScaling(t *testing.T) {
	var cfg Config
	s := cfg.XLoraScaling()
	if s.Weight != 1.0 || s.TopK != nil {
		t.Fatalf("default scaling: %+v", s)
	}

	w := 0.0
	k := 3
	cfg.Scaling = ScalingKnobs{Weight: &w, TopK: &k}
	s = cfg.XLoraScaling()
	if s.Weight != 0 {
		t.Fatalf("explicit zero weight lost: %+v", s)
	}
	if s.TopK == nil || *s.TopK != 3 {
		t.Fatalf("top_k lost: %+v", s)
	}
	k = 9
	if *s.TopK != 3 {
		t.Fatalf("top_k aliased config pointer")
	}
}
