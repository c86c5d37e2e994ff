// Package model loads registry entries into runnable handles: it resolves and
// validates the weights file, the tokenizer, and (for X-LoRA stacks) the
// adapter ordering, then binds the backend runtime. A Handle's resources are
// immutable after Load and shared read-only across concurrent sessions.
package model

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"xlorad/internal/engine"
	"xlorad/internal/registry"
	"xlorad/internal/tokenizer"
	"xlorad/internal/xlora"
)

// RuntimeFactory builds the backend runtime for a resolved weights file.
// Tests inject fakes here; nil selects the built-in backend.
type RuntimeFactory func(weightsPath string, opts Options) (engine.Runtime, error)

// Options configures a load.
type Options struct {
	// ModelsDir anchors weights and tokenizer resolution.
	ModelsDir string
	// ContextLen is the default context window when the entry declares none.
	ContextLen int
	// Threads for the native backend.
	Threads int
	// Scaling for X-LoRA adapter blending; the zero value selects the
	// default full-weight blend.
	Scaling xlora.Scaling
	// Runtime overrides the backend factory.
	Runtime RuntimeFactory
}

// Handle owns one loaded model: resolved weights, the fallback tokenizer when
// one is declared, the adapter selector for X-LoRA stacks, and the backend
// runtime. Close releases the backend deterministically and is safe to call
// more than once.
type Handle struct {
	entry     registry.Entry
	weights   string
	sizeBytes int64
	ctxLen    int
	tok       tokenizer.Tokenizer
	selector  *xlora.Selector
	rt        engine.Runtime

	closeOnce sync.Once
	closeErr  error
}

// Load validates and loads a registry entry. Validation order is fixed:
// weights first, then tokenizer, then ordering, so the reported kind is
// always the earliest failure.
func Load(entry registry.Entry, opts Options) (*Handle, error) {
	src, err := ggufSource(entry)
	if err != nil {
		return nil, err
	}
	if opts.Scaling == (xlora.Scaling{}) {
		opts.Scaling = xlora.DefaultScaling()
	}

	weights, size, err := resolveWeights(entry.ID, src, opts.ModelsDir)
	if err != nil {
		return nil, err
	}

	tok, err := resolveTokenizer(entry.ID, src, opts.ModelsDir)
	if err != nil {
		return nil, err
	}

	var sel *xlora.Selector
	if x, ok := entry.Source.(registry.XLoraGGUF); ok {
		sel, err = resolveOrdering(entry.ID, x, opts)
		if err != nil {
			return nil, err
		}
	}

	factory := opts.Runtime
	if factory == nil {
		factory = newRuntime
	}
	rt, err := factory(weights, opts)
	if err != nil {
		return nil, fmt.Errorf("model %s: backend: %w", entry.ID, err)
	}

	ctxLen := entry.ContextLength
	if ctxLen <= 0 {
		ctxLen = opts.ContextLen
	}
	return &Handle{
		entry:     entry,
		weights:   weights,
		sizeBytes: size,
		ctxLen:    ctxLen,
		tok:       tok,
		selector:  sel,
		rt:        rt,
	}, nil
}

// NewHandle assembles a handle from already-loaded parts. Load is the
// validating path; this exists for composing pre-built runtimes.
func NewHandle(entry registry.Entry, rt engine.Runtime, tok tokenizer.Tokenizer, sel *xlora.Selector, sizeBytes int64) *Handle {
	return &Handle{
		entry:     entry,
		sizeBytes: sizeBytes,
		ctxLen:    entry.ContextLength,
		tok:       tok,
		selector:  sel,
		rt:        rt,
	}
}

func ggufSource(entry registry.Entry) (registry.GGUF, error) {
	switch s := entry.Source.(type) {
	case registry.GGUF:
		return s, nil
	case registry.XLoraGGUF:
		return s.GGUF, nil
	default:
		return registry.GGUF{}, fmt.Errorf("model %s: unsupported source", entry.ID)
	}
}

func resolveWeights(id string, src registry.GGUF, modelsDir string) (string, int64, error) {
	if !strings.EqualFold(filepath.Ext(src.QuantizedFilename), ".gguf") {
		return "", 0, loadErr(MissingWeights, id,
			fmt.Errorf("quantized filename %q is not a .gguf", src.QuantizedFilename))
	}
	cands := src.WeightsCandidates(modelsDir)
	for _, c := range cands {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, st.Size(), nil
		}
	}
	return "", 0, loadErr(MissingWeights, id,
		fmt.Errorf("weights %q not found (searched %v)", src.QuantizedFilename, cands))
}

// resolveTokenizer loads the declared tokenizer. A plain source declaring no
// tokenizer resolves to nil: the GGUF's embedded tokenizer serves the native
// backend, and accounting falls back to estimation.
func resolveTokenizer(id string, src registry.GGUF, modelsDir string) (tokenizer.Tokenizer, error) {
	if src.TokenizerJSON == nil && src.TokModelID == "" {
		return nil, nil
	}
	path, err := tokenizer.Resolve(src.TokenizerJSON, src.TokModelID, modelsDir)
	if err != nil {
		return nil, loadErr(TokenizerUnresolved, id, err)
	}
	vocab, err := tokenizer.LoadFile(path)
	if err != nil {
		return nil, loadErr(TokenizerUnresolved, id, err)
	}
	return vocab, nil
}

func resolveOrdering(id string, src registry.XLoraGGUF, opts Options) (*xlora.Selector, error) {
	path := src.Order
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil && opts.ModelsDir != "" {
			if alt := filepath.Join(opts.ModelsDir, path); exists(alt) {
				path = alt
			}
		}
	}
	ord, err := xlora.LoadOrdering(path)
	if err != nil {
		return nil, loadErr(OrderingMismatch, id, err)
	}
	if err := ord.CheckBaseModel(src.TokModelID); err != nil {
		return nil, loadErr(OrderingMismatch, id, err)
	}
	return xlora.NewSelector(ord, src.TgtNonGranularIndex, opts.Scaling), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ID returns the registry ID the handle serves.
func (h *Handle) ID() string { return h.entry.ID }

// Entry returns the registry entry.
func (h *Handle) Entry() registry.Entry { return h.entry }

// WeightsPath returns the resolved weights file path.
func (h *Handle) WeightsPath() string { return h.weights }

// SizeBytes returns the weights file size, the basis for memory estimates.
func (h *Handle) SizeBytes() int64 { return h.sizeBytes }

// ContextLen returns the effective context window.
func (h *Handle) ContextLen() int { return h.ctxLen }

// Tokenizer returns the fallback tokenizer, nil when none was declared.
func (h *Handle) Tokenizer() tokenizer.Tokenizer { return h.tok }

// Selector returns the adapter selector, nil for plain models.
func (h *Handle) Selector() *xlora.Selector { return h.selector }

// Runtime returns the backend runtime.
func (h *Handle) Runtime() engine.Runtime { return h.rt }

// XLora reports whether the handle carries an adapter set.
func (h *Handle) XLora() bool { return h.selector != nil }

// RepeatLastN returns the source's repetition window.
func (h *Handle) RepeatLastN() int {
	src, err := ggufSource(h.entry)
	if err != nil {
		return 0
	}
	return src.RepeatLastN
}

// Template returns the prompt template for the entry's family.
func (h *Handle) Template() engine.Template {
	return engine.TemplateForFamily(h.entry.Family)
}

// SessionConfig assembles the per-model invariants sessions run under.
func (h *Handle) SessionConfig(order engine.OrderPolicy) engine.Config {
	return engine.Config{
		ModelID:     h.entry.ID,
		ContextLen:  h.ctxLen,
		RepeatLastN: h.RepeatLastN(),
		Template:    h.Template(),
		Order:       order,
	}
}

// Close releases the backend runtime. Further calls return the first result.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if c, ok := h.rt.(io.Closer); ok {
			h.closeErr = c.Close()
		}
	})
	return h.closeErr
}
