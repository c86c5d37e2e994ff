package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xlorad/internal/engine"
	"xlorad/internal/httpapi"
	"xlorad/internal/manager"
	"xlorad/internal/model"
	"xlorad/internal/registry"
)

// writeGGUFFiles populates dir with placeholder .gguf files and returns their
// names, which double as discovered model IDs.
func writeGGUFFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return names
}

// writeTokenizerJSON writes a minimal HuggingFace-style tokenizer.json for
// tokID under modelsDir and returns its path.
func writeTokenizerJSON(t *testing.T, modelsDir, tokID string, vocab map[string]int) string {
	t.Helper()
	dir := filepath.Join(modelsDir, filepath.FromSlash(tokID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir tokenizer dir: %v", err)
	}
	doc := map[string]any{
		"model": map[string]any{"vocab": vocab},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal tokenizer: %v", err)
	}
	p := filepath.Join(dir, "tokenizer.json")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write tokenizer: %v", err)
	}
	return p
}

// writeOrderingJSON writes an adapter ordering file and returns its path.
func writeOrderingJSON(t *testing.T, dir, baseModelID string, order []string, layers map[string]int) string {
	t.Helper()
	doc := map[string]any{
		"base_model_id": baseModelID,
		"order":         order,
		"layers":        layers,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal ordering: %v", err)
	}
	p := filepath.Join(dir, "xlora-ordering.json")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write ordering: %v", err)
	}
	return p
}

// scriptedEval is an evaluator runtime that replays a token script: the logits
// for each step favor the script entry following the scripted tokens already
// present at the end of the sequence. Deriving the step from the sequence
// keeps the fake stateless, so concurrent and repeated requests stay
// deterministic.
type scriptedEval struct {
	vocabSize int
	script    []int

	mu    sync.Mutex
	calls int
}

func (f *scriptedEval) Describe() string { return "scripted-eval" }

func (f *scriptedEval) Logits(ctx context.Context, seq []int) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	step := 0
	for n := min(len(f.script), len(seq)); n > 0; n-- {
		if suffixMatches(seq, f.script[:n]) {
			step = n
			break
		}
	}
	if step >= len(f.script) {
		step = len(f.script) - 1
	}
	logits := make([]float32, f.vocabSize)
	for i := range logits {
		logits[i] = -4
	}
	logits[f.script[step]] = 8
	return logits, nil
}

func (f *scriptedEval) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func suffixMatches(seq, prefix []int) bool {
	if len(seq) < len(prefix) {
		return false
	}
	tail := seq[len(seq)-len(prefix):]
	for i := range prefix {
		if tail[i] != prefix[i] {
			return false
		}
	}
	return true
}

// slowGen is a generator runtime for wire-level tests that need no tokenizer:
// it emits fixed tokens after an optional delay.
type slowGen struct {
	tokens []string
	delay  time.Duration
}

func (g *slowGen) Describe() string { return "slow-gen" }

func (g *slowGen) Generate(ctx context.Context, req engine.GenRequest) (engine.GenResult, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return engine.GenResult{}, ctx.Err()
		}
	}
	var text bytes.Buffer
	for _, tok := range g.tokens {
		if req.OnToken != nil {
			if err := req.OnToken(tok); err != nil {
				return engine.GenResult{}, err
			}
		}
		text.WriteString(tok)
	}
	return engine.GenResult{
		Text:             text.String(),
		FinishReason:     engine.FinishStop,
		PromptTokens:     3,
		CompletionTokens: len(g.tokens),
	}, nil
}

func runtimeFactory(rt engine.Runtime) model.RuntimeFactory {
	return func(string, model.Options) (engine.Runtime, error) {
		return rt, nil
	}
}

// newServer starts an httptest server over a manager built from cfg.
func newServer(t *testing.T, cfg manager.ManagerConfig) *httptest.Server {
	t.Helper()
	mgr := manager.NewWithConfig(cfg)
	t.Cleanup(func() { _ = mgr.Close() })
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv
}

// scanServer discovers models in modelsDir and serves them with the given
// runtime. mutate adjusts the manager config before construction.
func scanServer(t *testing.T, modelsDir string, rt engine.Runtime, mutate func(*manager.ManagerConfig)) *httptest.Server {
	t.Helper()
	entries, err := registry.LoadDir(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	reg, err := registry.Build(nil, entries)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	cfg := manager.ManagerConfig{
		Registry:  reg,
		ModelsDir: modelsDir,
	}
	if rt != nil {
		cfg.Runtime = runtimeFactory(rt)
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return newServer(t, cfg)
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
