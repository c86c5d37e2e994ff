//go:build llama

package model

import (
	"context"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"xlorad/internal/engine"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaRuntime wraps a loaded llama.cpp model behind the Generator seam. The
// sampling loop stays on the native side; the token callback bridges
// streaming and cancellation.
type llamaRuntime struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func newRuntime(weightsPath string, opts Options) (engine.Runtime, error) {
	mo := []llama.ModelOption{}
	if opts.ContextLen > 0 {
		mo = append(mo, llama.SetContext(opts.ContextLen))
	}
	m, err := llama.New(weightsPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaRuntime{model: m, threads: opts.Threads}, nil
}

func (r *llamaRuntime) Describe() string { return "llama.cpp" }

func (r *llamaRuntime) Generate(ctx context.Context, req engine.GenRequest) (engine.GenResult, error) {
	// Predict is not reentrant on one model; serialize callers.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model == nil {
		return engine.GenResult{}, ErrDependencyUnavailable("llama model already closed")
	}

	completion := 0
	r.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		completion++
		if req.OnToken != nil {
			if err := req.OnToken(tok); err != nil {
				return false
			}
		}
		return true
	})
	defer r.model.SetTokenCallback(nil)

	text, err := r.model.Predict(req.Prompt, predictOptions(req, r.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return engine.GenResult{}, ctx.Err()
		}
		return engine.GenResult{}, err
	}
	reason := engine.FinishStop
	if req.MaxTokens > 0 && completion >= req.MaxTokens {
		reason = engine.FinishLength
	}
	return engine.GenResult{
		Text:             text,
		FinishReason:     reason,
		CompletionTokens: completion,
	}, nil
}

func (r *llamaRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

func predictOptions(req engine.GenRequest, threads int) []llama.PredictOption {
	if threads < 1 {
		threads = 1
	}
	maxTokens := req.MaxTokens
	if maxTokens < 1 {
		maxTokens = 1
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(threads),
		llama.SetTemperature(float32(req.Temperature)),
	}
	if req.TopP > 0 {
		po = append(po, llama.SetTopP(float32(req.TopP)))
	}
	if req.PresencePenalty > 0 {
		// Nearest native knob: llama.cpp's multiplicative repeat penalty
		// over the same trailing window.
		po = append(po, llama.SetPenalty(float32(1.0+req.PresencePenalty)))
	}
	if req.RepeatLastN > 0 {
		po = append(po, llama.SetRepeat(req.RepeatLastN))
	}
	if req.Seed != 0 {
		po = append(po, llama.SetSeed(int(req.Seed)))
	}
	if len(req.Stop) > 0 {
		po = append(po, llama.SetStopWords(req.Stop...))
	}
	return po
}
