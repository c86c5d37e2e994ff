// Package engine drives generation sessions: prompt assembly, the sampling
// pipeline, and the autoregressive loop between a model runtime and a
// tokenizer. Runtimes plug in through small capability interfaces so tests
// and native backends share one session implementation.
package engine

import "context"

// Runtime is what a loaded model hands to sessions. Sessions discover
// capabilities by type assertion, preferring Evaluator over Generator.
type Runtime interface {
	// Describe reports the backend in log-friendly form ("llama.cpp", "fake").
	Describe() string
}

// Evaluator is the step-wise capability: next-token logits for a token
// sequence. The session's own loop drives sampling and stop handling, so
// every sampling semantic applies uniformly. Implementations must honor ctx.
type Evaluator interface {
	Logits(ctx context.Context, tokens []int) ([]float32, error)
}

// Generator is the whole-generation capability for backends that keep the
// sampling loop on their side of the boundary. The session delegates to it
// only when the runtime is not an Evaluator.
type Generator interface {
	Generate(ctx context.Context, req GenRequest) (GenResult, error)
}

// GenRequest carries one generation into a Generator backend.
type GenRequest struct {
	Prompt          string
	MaxTokens       int
	Temperature     float64
	TopP            float64
	PresencePenalty float64
	RepeatLastN     int
	Seed            int64
	Stop            []string
	// OnToken, when set, receives each decoded token as it is produced.
	// Returning an error aborts generation.
	OnToken func(string) error
}

// GenResult summarizes a Generator backend's generation.
type GenResult struct {
	Text             string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}
