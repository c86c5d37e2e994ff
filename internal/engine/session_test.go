package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"xlorad/internal/tokenizer"
	"xlorad/pkg/types"
)

// fakeEvaluator scripts per-step logits: call n favors script[n]. Once the
// script is exhausted it favors the last entry.
type fakeEvaluator struct {
	vocabSize int
	script    []int
	calls     int
}

func (f *fakeEvaluator) Describe() string { return "fake-evaluator" }

func (f *fakeEvaluator) Logits(ctx context.Context, tokens []int) ([]float32, error) {
	step := f.calls
	f.calls++
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

type fakeGenerator struct {
	res   GenResult
	err   error
	calls int
}

func (f *fakeGenerator) Describe() string { return "fake-generator" }

func (f *fakeGenerator) Generate(ctx context.Context, req GenRequest) (GenResult, error) {
	f.calls++
	if f.err != nil {
		return GenResult{}, f.err
	}
	return f.res, nil
}

func testVocab() *tokenizer.Vocab {
	return tokenizer.FromTokens([]string{"a", "b", "c", "d", "</s>"}, "</s>")
}

func userRequest(content string) Request {
	return Request{
		Messages:    []types.ChatMessage{{Role: "user", Content: content}},
		MaxTokens:   16,
		Temperature: 0,
		TopP:        1,
	}
}

func TestSession_GreedyCompletesOnEOS(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{0, 2, 4}}
	s := NewSession(Config{ModelID: "m", Template: TemplatePlain}, ev, testVocab(), userRequest("ab"))
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Text != "ac" {
		t.Fatalf("text: %q", res.Text)
	}
	if res.FinishReason != FinishStop {
		t.Fatalf("finish: %q", res.FinishReason)
	}
	if res.CompletionTokens != 2 {
		t.Fatalf("completion tokens: %d", res.CompletionTokens)
	}
	if res.PromptTokens == 0 {
		t.Fatalf("prompt tokens not counted")
	}
	if s.State() != StateCompleted {
		t.Fatalf("state: %s", s.State())
	}
}

func TestSession_BudgetExhaustionFinishesLength(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{0, 1, 2, 3, 0, 1, 2, 3}}
	req := userRequest("x")
	req.MaxTokens = 3
	s := NewSession(Config{Template: TemplatePlain}, ev, testVocab(), req)
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.FinishReason != FinishLength {
		t.Fatalf("finish: %q", res.FinishReason)
	}
	if res.CompletionTokens != 3 || res.Text != "abc" {
		t.Fatalf("got %d tokens, text %q", res.CompletionTokens, res.Text)
	}
}

func TestSession_SameSeedSameText(t *testing.T) {
	run := func() string {
		ev := &fakeEvaluator{vocabSize: 5, script: []int{0, 1, 2, 3, 0, 1, 2, 3}}
		req := userRequest("x")
		req.Temperature = 0.9
		req.TopP = 0.95
		req.Seed = 1234
		req.MaxTokens = 8
		s := NewSession(Config{Template: TemplatePlain}, ev, testVocab(), req)
		res, err := s.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res.Text
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("same seed produced %q then %q", a, b)
	}
}

func TestSession_StopSequenceTruncates(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{0, 1, 2, 3}}
	req := userRequest("x")
	req.Stop = []string{"b"}
	s := NewSession(Config{Template: TemplatePlain}, ev, testVocab(), req)
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.FinishReason != FinishStop {
		t.Fatalf("finish: %q", res.FinishReason)
	}
	if res.Text != "a" {
		t.Fatalf("text not truncated at stop: %q", res.Text)
	}
	if res.CompletionTokens != 2 {
		t.Fatalf("completion tokens: %d", res.CompletionTokens)
	}
}

func TestSession_StreamsTokensInOrder(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{2, 0, 4}}
	req := userRequest("x")
	var got []string
	req.OnToken = func(tok string) error {
		got = append(got, tok)
		return nil
	}
	s := NewSession(Config{Template: TemplatePlain}, ev, testVocab(), req)
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Join(got, "") != res.Text {
		t.Fatalf("streamed %v, result %q", got, res.Text)
	}
	if len(got) != 2 {
		t.Fatalf("streamed %d tokens", len(got))
	}
}

func TestSession_CancelBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ev := &fakeEvaluator{vocabSize: 5, script: []int{0, 1, 2, 3}}
	req := userRequest("x")
	req.OnToken = func(string) error {
		cancel()
		return nil
	}
	s := NewSession(Config{Template: TemplatePlain}, ev, testVocab(), req)
	_, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ev.calls != 1 {
		t.Fatalf("evaluator ran %d steps after cancel", ev.calls)
	}
	if s.State() != StateFailed {
		t.Fatalf("state: %s", s.State())
	}
}

func TestSession_TokenSinkErrorAborts(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{0, 1, 2}}
	req := userRequest("x")
	sinkErr := errors.New("client went away")
	req.OnToken = func(string) error { return sinkErr }
	s := NewSession(Config{Template: TemplatePlain}, ev, testVocab(), req)
	_, err := s.Run(context.Background())
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestSession_ContextOverflowMidGeneration(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{0, 1, 2, 3}}
	req := userRequest("x")
	req.MaxTokens = 16
	promptLen := len(testVocab().Encode("user: x\nassistant:"))
	s := NewSession(Config{Template: TemplatePlain, ContextLen: promptLen + 2}, ev, testVocab(), req)
	_, err := s.Run(context.Background())
	if !IsContextOverflow(err) {
		t.Fatalf("expected overflow, got %v", err)
	}
	var oe *ContextOverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("overflow type lost: %v", err)
	}
	if oe.CompletionTokens != 2 {
		t.Fatalf("partial count: %d", oe.CompletionTokens)
	}
	if oe.PromptTokens != promptLen {
		t.Fatalf("prompt count: %d want %d", oe.PromptTokens, promptLen)
	}
	if s.State() != StateFailed {
		t.Fatalf("state: %s", s.State())
	}
}

func TestSession_PromptAloneOverflows(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{0}}
	s := NewSession(Config{Template: TemplatePlain, ContextLen: 1}, ev, testVocab(), userRequest("abcd"))
	_, err := s.Run(context.Background())
	if !IsContextOverflow(err) {
		t.Fatalf("expected overflow, got %v", err)
	}
	var oe *ContextOverflowError
	errors.As(err, &oe)
	if oe.CompletionTokens != 0 || oe.PromptTokens == 0 {
		t.Fatalf("counts: %+v", oe)
	}
	if ev.calls != 0 {
		t.Fatalf("evaluator ran despite overflow")
	}
}

func TestSession_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Request)
	}{
		{"no messages", func(r *Request) { r.Messages = nil }},
		{"unknown role", func(r *Request) { r.Messages[0].Role = "narrator" }},
		{"negative temperature", func(r *Request) { r.Temperature = -0.1 }},
		{"zero top_p", func(r *Request) { r.TopP = 0 }},
		{"top_p above one", func(r *Request) { r.TopP = 1.5 }},
		{"zero max_tokens", func(r *Request) { r.MaxTokens = 0 }},
		{"model mismatch", func(r *Request) { r.Model = "other" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := &fakeEvaluator{vocabSize: 5, script: []int{0}}
			req := userRequest("x")
			tc.mut(&req)
			s := NewSession(Config{ModelID: "m", Template: TemplatePlain}, ev, testVocab(), req)
			_, err := s.Run(context.Background())
			if !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ev.calls != 0 {
				t.Fatalf("evaluator ran on invalid request")
			}
			if s.State() != StateFailed {
				t.Fatalf("state: %s", s.State())
			}
		})
	}
}

func TestSession_MatchingModelAccepted(t *testing.T) {
	ev := &fakeEvaluator{vocabSize: 5, script: []int{4}}
	req := userRequest("x")
	req.Model = "m"
	s := NewSession(Config{ModelID: "m", Template: TemplatePlain}, ev, testVocab(), req)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestSession_GeneratorPath(t *testing.T) {
	g := &fakeGenerator{res: GenResult{
		Text:             "delegated",
		FinishReason:     FinishStop,
		PromptTokens:     5,
		CompletionTokens: 7,
	}}
	s := NewSession(Config{Template: TemplatePlain}, g, testVocab(), userRequest("x"))
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Text != "delegated" || res.PromptTokens != 5 || res.CompletionTokens != 7 {
		t.Fatalf("result not mapped: %+v", res)
	}
	if g.calls != 1 {
		t.Fatalf("generator calls: %d", g.calls)
	}
}

// evalAndGen provides both capabilities; the session must prefer Evaluator.
type evalAndGen struct {
	fakeEvaluator
	gen fakeGenerator
}

func (e *evalAndGen) Generate(ctx context.Context, req GenRequest) (GenResult, error) {
	return e.gen.Generate(ctx, req)
}

func TestSession_PrefersEvaluator(t *testing.T) {
	rt := &evalAndGen{fakeEvaluator: fakeEvaluator{vocabSize: 5, script: []int{4}}}
	s := NewSession(Config{Template: TemplatePlain}, rt, testVocab(), userRequest("x"))
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rt.calls == 0 {
		t.Fatalf("evaluator unused")
	}
	if rt.gen.calls != 0 {
		t.Fatalf("generator used despite evaluator capability")
	}
}

type bareRuntime struct{}

func (bareRuntime) Describe() string { return "bare" }

func TestSession_NoCapabilityFails(t *testing.T) {
	s := NewSession(Config{Template: TemplatePlain}, bareRuntime{}, testVocab(), userRequest("x"))
	_, err := s.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error for capability-less runtime")
	}
}

func TestResult_Usage(t *testing.T) {
	r := Result{
		PromptTokens:     10,
		CompletionTokens: 20,
		PromptDuration:   1 * time.Second,
		DecodeDuration:   1 * time.Second,
		SampleDuration:   500 * time.Millisecond,
		TotalDuration:    2 * time.Second,
	}
	u := r.Usage()
	if u.TotalTokens != 30 {
		t.Fatalf("total: %d", u.TotalTokens)
	}
	if u.AvgTokPerSec != 15 {
		t.Fatalf("avg tok/s: %v", u.AvgTokPerSec)
	}
	if u.AvgPromptTokPerSec != 10 {
		t.Fatalf("avg prompt tok/s: %v", u.AvgPromptTokPerSec)
	}
	if u.AvgComplTokPerSec != 20 {
		t.Fatalf("avg compl tok/s: %v", u.AvgComplTokPerSec)
	}
	if u.AvgSampleTokPerSec != 60 {
		t.Fatalf("avg sample tok/s: %v", u.AvgSampleTokPerSec)
	}
}

func TestResult_UsageZeroDurations(t *testing.T) {
	u := Result{PromptTokens: 1, CompletionTokens: 2}.Usage()
	if u.AvgTokPerSec != 0 || u.AvgPromptTokPerSec != 0 {
		t.Fatalf("zero durations must not divide: %+v", u)
	}
	if u.TotalTokens != 3 {
		t.Fatalf("total: %d", u.TotalTokens)
	}
}

// The original client example's parameters: a short factual question with
// presence penalty 1.0, top_p 0.1, temperature 0.5 and a 256-token budget
// must complete within budget with a definite finish reason.
func TestSession_ShortFactualQuestionUnderBudget(t *testing.T) {
	vocab := tokenizer.FromTokens(
		[]string{"Graphene", " is", " a", " single", " layer", " of", " carbon", " atoms", ".", "</s>"},
		"</s>",
	)
	ev := &fakeEvaluator{vocabSize: 10, script: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}
	req := Request{
		Model:           "zephyr-xlora",
		Messages:        []types.ChatMessage{{Role: "user", Content: "What is graphene?"}},
		MaxTokens:       256,
		Temperature:     0.5,
		TopP:            0.1,
		PresencePenalty: 1.0,
	}
	s := NewSession(Config{ModelID: "zephyr-xlora", RepeatLastN: 64, Template: TemplateZephyr}, ev, vocab, req)
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Text != "Graphene is a single layer of carbon atoms." {
		t.Fatalf("text: %q", res.Text)
	}
	if res.FinishReason != FinishStop {
		t.Fatalf("finish: %q", res.FinishReason)
	}
	if res.CompletionTokens > 256 {
		t.Fatalf("budget exceeded: %d", res.CompletionTokens)
	}
	if res.CompletionTokens != 9 {
		t.Fatalf("completion tokens: %d", res.CompletionTokens)
	}
}
