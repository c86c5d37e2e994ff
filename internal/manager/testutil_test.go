package manager

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"xlorad/internal/engine"
	"xlorad/internal/model"
	"xlorad/internal/registry"
	"xlorad/pkg/types"
)

// writeWeights creates a file of approximately sizeMB megabytes under dir.
func writeWeights(t *testing.T, dir, name string, sizeMB int) string {
	t.Helper()
	if sizeMB <= 0 {
		sizeMB = 1
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	block := make([]byte, 1024*1024)
	for i := 0; i < sizeMB; i++ {
		if _, err := f.Write(block); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	return p
}

// modelEntry writes a weights file and returns the matching registry entry.
func modelEntry(t *testing.T, dir, id string, sizeMB int) registry.Entry {
	t.Helper()
	name := id + ".Q4_0.gguf"
	writeWeights(t, dir, name, sizeMB)
	return registry.Entry{
		ID:     id,
		Source: registry.GGUF{QuantizedModelID: dir, QuantizedFilename: name},
	}
}

// fakeGen is a generator-capable runtime with scripted output.
type fakeGen struct {
	mu     sync.Mutex
	tokens []string
	genErr error
	delay  time.Duration
	calls  int
	closes int
}

func (f *fakeGen) Describe() string { return "fake-gen" }

func (f *fakeGen) Generate(ctx context.Context, req engine.GenRequest) (engine.GenResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.genErr != nil {
		return engine.GenResult{}, f.genErr
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return engine.GenResult{}, ctx.Err()
		}
	}
	var b strings.Builder
	for _, tok := range f.tokens {
		if err := ctx.Err(); err != nil {
			return engine.GenResult{}, err
		}
		if req.OnToken != nil {
			if err := req.OnToken(tok); err != nil {
				return engine.GenResult{}, err
			}
		}
		b.WriteString(tok)
	}
	return engine.GenResult{
		Text:             b.String(),
		FinishReason:     engine.FinishStop,
		PromptTokens:     3,
		CompletionTokens: len(f.tokens),
	}, nil
}

func (f *fakeGen) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeGen) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGen) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// newTestManager builds a manager over one registered model "m" backed by gen.
func newTestManager(t *testing.T, gen *fakeGen, mutate func(*ManagerConfig)) *Manager {
	t.Helper()
	dir := t.TempDir()
	reg := registry.New()
	if err := reg.Add(modelEntry(t, dir, "m", 1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	cfg := ManagerConfig{
		Registry:      reg,
		ModelsDir:     dir,
		DefaultModel:  "m",
		MaxQueueDepth: 1,
		MaxWait:       50 * time.Millisecond,
		DrainTimeout:  200 * time.Millisecond,
		Runtime: func(string, model.Options) (engine.Runtime, error) {
			return gen, nil
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func chatReq(model string) types.ChatCompletionRequest {
	return types.ChatCompletionRequest{
		Model:    model,
		Messages: []types.ChatMessage{{Role: "user", Content: "What is graphene?"}},
	}
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
