package manager

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"xlorad/internal/engine"
	"xlorad/internal/model"
	"xlorad/pkg/types"
)

// Request defaults applied when the wire request leaves a knob nil.
const (
	defaultMaxTokens   = 256
	defaultTemperature = 1.0
	defaultTopP        = 1.0
)

// Completion is the terminal outcome of one chat request.
type Completion struct {
	ModelID      string
	Text         string
	FinishReason string
	Usage        types.Usage
}

// Complete runs a blocking chat completion. Deterministic requests
// (temperature 0 or an explicit seed) are served from the completion cache
// when possible.
func (m *Manager) Complete(ctx context.Context, req types.ChatCompletionRequest) (Completion, error) {
	modelID, err := m.resolveModelID(req.Model)
	if err != nil {
		return Completion{}, err
	}
	ereq := m.resolveRequest(modelID, req, nil)

	key, cacheable := m.completionKey(modelID, req, ereq)
	if cacheable {
		if out, hit := m.cache.get(key); hit {
			log.Printf("manager event=cache_hit model=%q", modelID)
			m.publisher.Publish(Event{Name: "cache_hit", ModelID: modelID})
			return out, nil
		}
	}

	res, err := m.generate(ctx, modelID, ereq)
	if err != nil {
		return Completion{}, err
	}
	out := Completion{
		ModelID:      modelID,
		Text:         res.Text,
		FinishReason: res.FinishReason,
		Usage:        res.Usage(),
	}
	if cacheable {
		m.cache.put(key, out)
	}
	return out, nil
}

// Stream runs a chat completion and writes NDJSON to w: one token line per
// emitted token, then a final done line carrying the full content, finish
// reason, and usage. flusher, when non-nil, is invoked after every line.
func (m *Manager) Stream(ctx context.Context, req types.ChatCompletionRequest, w io.Writer, flusher func()) error {
	modelID, err := m.resolveModelID(req.Model)
	if err != nil {
		return err
	}
	onToken := func(tok string) error {
		if _, err := w.Write(tokenLineJSON(tok)); err != nil {
			return err
		}
		if flusher != nil {
			flusher()
		}
		return nil
	}
	ereq := m.resolveRequest(modelID, req, onToken)
	res, err := m.generate(ctx, modelID, ereq)
	if err != nil {
		return err
	}
	final := types.StreamDone{
		Done:         true,
		Content:      res.Text,
		FinishReason: res.FinishReason,
		Usage:        res.Usage(),
	}
	jb, err := json.Marshal(final)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(jb, '\n')); err != nil {
		return err
	}
	if flusher != nil {
		flusher()
	}
	return nil
}

// generate ensures the instance, passes admission, and drives one session on
// the instance's handle.
func (m *Manager) generate(ctx context.Context, modelID string, ereq engine.Request) (engine.Result, error) {
	if err := m.EnsureInstance(ctx, modelID); err != nil {
		return engine.Result{}, err
	}
	release, err := m.beginGeneration(ctx, modelID)
	if err != nil {
		return engine.Result{}, err
	}
	defer release()

	m.mu.RLock()
	inst := m.instances[modelID]
	var h *model.Handle
	if inst != nil {
		h = inst.Handle
	}
	m.mu.RUnlock()
	if h == nil {
		// Evicted between ensure and admission; rare enough to surface as a
		// lookup failure rather than retry internally.
		return engine.Result{}, ErrModelNotFound(modelID)
	}

	sess := engine.NewSession(h.SessionConfig(m.orderPolicy), h.Runtime(), h.Tokenizer(), ereq)
	res, err := sess.Run(ctx)
	if err != nil {
		log.Printf("manager event=generate_error model=%q session=%s err=%v", modelID, sess.ID(), err)
		return engine.Result{}, err
	}
	m.publisher.Publish(Event{Name: "completion", ModelID: modelID, Fields: map[string]any{
		"completion_tokens": res.CompletionTokens,
		"finish_reason":     res.FinishReason,
	}})
	return res, nil
}

func (m *Manager) resolveModelID(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if m.defaultModel != "" {
		return m.defaultModel, nil
	}
	return "", modelNotFoundError{id: "(unspecified)"}
}

// resolveRequest applies request defaults; nil optionals take the package
// defaults, a nil seed draws a fresh one so repeated requests differ.
func (m *Manager) resolveRequest(modelID string, req types.ChatCompletionRequest, onToken func(string) error) engine.Request {
	out := engine.Request{
		Model:       modelID,
		Messages:    req.Messages,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
		TopP:        defaultTopP,
		Stop:        req.Stop,
		OnToken:     onToken,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		out.TopP = *req.TopP
	}
	if req.PresencePenalty != nil {
		out.PresencePenalty = *req.PresencePenalty
	}
	if req.Seed != nil {
		out.Seed = *req.Seed
	} else {
		out.Seed = time.Now().UnixNano()
	}
	return out
}

// tokenLineJSON formats a token NDJSON line using json.Marshal for correctness.
func tokenLineJSON(tok string) []byte {
	b, _ := json.Marshal(types.StreamToken{Token: tok})
	return append(b, '\n')
}
