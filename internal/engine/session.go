package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"xlorad/internal/tokenizer"
	"xlorad/pkg/types"
)

// State is a session's lifecycle position.
type State string

const (
	StateInitialized State = "initialized"
	StateGenerating  State = "generating"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Finish reasons reported to clients. EOS and stop-sequence matches both
// finish as "stop"; exhausting the token budget finishes as "length".
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// Request carries one generation request into a session. Sampling fields are
// resolved values; defaulting happens at the API boundary before a session is
// built.
type Request struct {
	Model           string
	Messages        []types.ChatMessage
	MaxTokens       int
	Temperature     float64
	TopP            float64
	PresencePenalty float64
	Seed            int64
	Stop            []string
	// OnToken, when set, receives each decoded token as it is produced.
	// Returning an error aborts generation.
	OnToken func(string) error
}

// Config fixes the per-model invariants a session runs under.
type Config struct {
	ModelID     string
	ContextLen  int
	RepeatLastN int
	Template    Template
	Order       OrderPolicy
}

// Result is a completed generation.
type Result struct {
	Text             string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int

	PromptDuration time.Duration
	DecodeDuration time.Duration
	SampleDuration time.Duration
	TotalDuration  time.Duration
}

// Usage projects the result into wire-shape token accounting with average
// throughput over the whole request, the prefill, the decode loop, and the
// sampler.
func (r Result) Usage() types.Usage {
	u := types.Usage{
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.PromptTokens + r.CompletionTokens,
	}
	if s := r.TotalDuration.Seconds(); s > 0 {
		u.AvgTokPerSec = float64(u.TotalTokens) / s
	}
	if s := r.PromptDuration.Seconds(); s > 0 {
		u.AvgPromptTokPerSec = float64(r.PromptTokens) / s
	}
	if s := r.DecodeDuration.Seconds(); s > 0 {
		u.AvgComplTokPerSec = float64(r.CompletionTokens) / s
	}
	if s := r.SampleDuration.Seconds(); s > 0 {
		u.AvgSampleTokPerSec = float64(u.TotalTokens) / s
	}
	return u
}

// Session drives one request from Initialized through Generating to
// Completed, or to Failed on validation or runtime error. A session runs on
// a single goroutine; its mutable state is never shared.
type Session struct {
	id    string
	cfg   Config
	req   Request
	rt    Runtime
	tok   tokenizer.Tokenizer
	state State
}

// NewSession builds a session in the Initialized state.
func NewSession(cfg Config, rt Runtime, tok tokenizer.Tokenizer, req Request) *Session {
	return &Session{
		id:    uuid.NewString(),
		cfg:   cfg,
		req:   req,
		rt:    rt,
		tok:   tok,
		state: StateInitialized,
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// State returns the session's lifecycle position.
func (s *Session) State() State { return s.state }

// Run executes the session. Cancellation is honored between steps: after a
// token is emitted the context is checked before the next evaluation.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if err := s.validate(); err != nil {
		s.state = StateFailed
		return Result{}, err
	}
	s.state = StateGenerating

	var (
		res Result
		err error
	)
	switch rt := s.rt.(type) {
	case Evaluator:
		res, err = s.runEvaluator(ctx, rt)
	case Generator:
		res, err = s.runGenerator(ctx, rt)
	default:
		err = fmt.Errorf("engine: runtime %q provides no generation capability", s.rt.Describe())
	}
	if err != nil {
		s.state = StateFailed
		return Result{}, err
	}
	s.state = StateCompleted
	return res, nil
}

func (s *Session) validate() error {
	if len(s.req.Messages) == 0 {
		return invalidf("engine: at least one message is required")
	}
	for i, m := range s.req.Messages {
		if !ValidRole(m.Role) {
			return invalidf("engine: message %d has unknown role %q", i, m.Role)
		}
	}
	if s.req.Temperature < 0 || math.IsNaN(s.req.Temperature) {
		return invalidf("engine: temperature must be >= 0, got %v", s.req.Temperature)
	}
	if !(s.req.TopP > 0 && s.req.TopP <= 1) {
		return invalidf("engine: top_p must be in (0, 1], got %v", s.req.TopP)
	}
	if s.req.MaxTokens <= 0 {
		return invalidf("engine: max_tokens must be > 0, got %d", s.req.MaxTokens)
	}
	if s.req.Model != "" && s.cfg.ModelID != "" && s.req.Model != s.cfg.ModelID {
		return invalidf("engine: request model %q does not match loaded model %q", s.req.Model, s.cfg.ModelID)
	}
	return nil
}

func (s *Session) runEvaluator(ctx context.Context, ev Evaluator) (Result, error) {
	if s.tok == nil {
		return Result{}, fmt.Errorf("engine: evaluator runtime requires a tokenizer")
	}
	start := time.Now()
	prompt, err := RenderPrompt(s.cfg.Template, s.req.Messages)
	if err != nil {
		return Result{}, err
	}
	seq := s.tok.Encode(prompt)
	promptN := len(seq)
	if s.cfg.ContextLen > 0 && promptN >= s.cfg.ContextLen {
		return Result{}, &ContextOverflowError{PromptTokens: promptN, ContextLen: s.cfg.ContextLen}
	}

	smp := NewSampler(SamplerConfig{
		Temperature:     s.req.Temperature,
		TopP:            s.req.TopP,
		PresencePenalty: s.req.PresencePenalty,
		RepeatLastN:     s.cfg.RepeatLastN,
		Seed:            s.req.Seed,
		Order:           s.cfg.Order,
	})
	eos := s.tok.EOS()

	var (
		text       strings.Builder
		completion int
		reason     string
		cutAt      = -1
		promptDone time.Time
		sampleTime time.Duration
	)
	for completion < s.req.MaxTokens {
		if s.cfg.ContextLen > 0 && len(seq) >= s.cfg.ContextLen {
			return Result{}, &ContextOverflowError{
				PromptTokens:     promptN,
				CompletionTokens: completion,
				ContextLen:       s.cfg.ContextLen,
			}
		}
		logits, err := ev.Logits(ctx, seq)
		if err != nil {
			return Result{}, fmt.Errorf("engine: evaluate step %d: %w", completion, err)
		}
		if promptDone.IsZero() {
			// Prefill ends when the first step's logits arrive.
			promptDone = time.Now()
		}
		t0 := time.Now()
		next := smp.Next(logits, seq)
		sampleTime += time.Since(t0)

		if eos >= 0 && next == eos {
			reason = FinishStop
			break
		}
		seq = append(seq, next)
		completion++
		piece := s.tok.Decode([]int{next})
		text.WriteString(piece)
		if s.req.OnToken != nil {
			if err := s.req.OnToken(piece); err != nil {
				return Result{}, fmt.Errorf("engine: token sink: %w", err)
			}
		}
		if idx, hit := matchStop(text.String(), s.req.Stop); hit {
			cutAt = idx
			reason = FinishStop
			break
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
	}
	if reason == "" {
		reason = FinishLength
	}
	end := time.Now()
	if promptDone.IsZero() {
		promptDone = end
	}
	out := text.String()
	if cutAt >= 0 {
		out = out[:cutAt]
	}
	return Result{
		Text:             out,
		FinishReason:     reason,
		PromptTokens:     promptN,
		CompletionTokens: completion,
		PromptDuration:   promptDone.Sub(start),
		DecodeDuration:   end.Sub(promptDone),
		SampleDuration:   sampleTime,
		TotalDuration:    end.Sub(start),
	}, nil
}

func (s *Session) runGenerator(ctx context.Context, g Generator) (Result, error) {
	start := time.Now()
	prompt, err := RenderPrompt(s.cfg.Template, s.req.Messages)
	if err != nil {
		return Result{}, err
	}
	gres, err := g.Generate(ctx, GenRequest{
		Prompt:          prompt,
		MaxTokens:       s.req.MaxTokens,
		Temperature:     s.req.Temperature,
		TopP:            s.req.TopP,
		PresencePenalty: s.req.PresencePenalty,
		RepeatLastN:     s.cfg.RepeatLastN,
		Seed:            s.req.Seed,
		Stop:            s.req.Stop,
		OnToken:         s.req.OnToken,
	})
	if err != nil {
		return Result{}, err
	}
	total := time.Since(start)
	reason := gres.FinishReason
	if reason == "" {
		reason = FinishStop
	}
	promptN := gres.PromptTokens
	if promptN == 0 {
		// Backends that keep the loop on their side may not report prompt
		// counts; estimate so usage stays populated.
		promptN = tokenizer.NewEstimator().Estimate(prompt)
	}
	return Result{
		Text:             gres.Text,
		FinishReason:     reason,
		PromptTokens:     promptN,
		CompletionTokens: gres.CompletionTokens,
		DecodeDuration:   total,
		TotalDuration:    total,
	}, nil
}

// matchStop returns the earliest index where any stop sequence occurs.
func matchStop(text string, stops []string) (int, bool) {
	best := -1
	for _, stop := range stops {
		if stop == "" {
			continue
		}
		if i := strings.Index(text, stop); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best, best >= 0
}
