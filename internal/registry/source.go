package registry

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Source kinds.
const (
	KindGGUF      = "gguf"
	KindXLoraGGUF = "xlora-gguf"
)

// ModelSource identifies which base-model/quantization/adapter combination a
// model entry loads. The set is closed: GGUF for a plain quantized checkpoint,
// XLoraGGUF for a quantized checkpoint with an X-LoRA adapter set. Sources are
// immutable once constructed; optional fields are pointers, nil meaning "use
// the default", never a sentinel value.
type ModelSource interface {
	Kind() string
	Validate() error
	sealedSource()
}

// GGUF is a plain quantized base model.
type GGUF struct {
	// TokModelID names the model whose tokenizer the weights were built with.
	// Optional: a GGUF file embeds its tokenizer, so the native runtime does
	// not need it; without it only the embedded tokenizer is available.
	TokModelID string
	// QuantizedModelID locates the weights: a local directory, or a
	// repo-style id resolved under the models dir.
	QuantizedModelID string
	// QuantizedFilename is the weights file name inside the location.
	QuantizedFilename string
	// TokenizerJSON optionally overrides tokenizer resolution with an
	// explicit file path. nil derives the tokenizer from TokModelID.
	TokenizerJSON *string
	// RepeatLastN is the trailing-token window the presence penalty looks at.
	RepeatLastN int
}

// XLoraGGUF is a quantized base model with an X-LoRA adapter set.
type XLoraGGUF struct {
	GGUF
	// XLoraModelID names the adapter set.
	XLoraModelID string
	// Order is the path of the adapter ordering JSON file.
	Order string
	// TgtNonGranularIndex optionally caps adapter granularity: layer depths
	// at or beyond it fall back to base-only output. nil applies adapters at
	// every depth the ordering declares.
	TgtNonGranularIndex *int
}

func (GGUF) Kind() string      { return KindGGUF }
func (XLoraGGUF) Kind() string { return KindXLoraGGUF }

func (GGUF) sealedSource() {}

// quantTagRe recognizes quantization tags embedded in GGUF filenames
// (Q4_0, Q5_K_M, Q6_K, IQ3_XXS, F16, ...).
var quantTagRe = regexp.MustCompile(`(?i)(?:^|[._-])(i?q\d(?:_[a-z0-9]{1,3})*|f16|f32|bf16)(?:[._-]|$)`)

// QuantTag extracts the quantization tag from a GGUF filename.
func QuantTag(filename string) (string, bool) {
	m := quantTagRe.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// Validate checks the fields a plain GGUF source requires: a weights filename
// with the .gguf extension and a recognizable quantization tag, and a
// non-negative repeat window.
func (g GGUF) Validate() error {
	if g.QuantizedFilename == "" {
		return fmt.Errorf("registry: gguf source has no quantized filename")
	}
	if !strings.EqualFold(filepath.Ext(g.QuantizedFilename), ".gguf") {
		return fmt.Errorf("registry: quantized filename %q does not end in .gguf", g.QuantizedFilename)
	}
	if _, ok := QuantTag(g.QuantizedFilename); !ok {
		return fmt.Errorf("registry: quantized filename %q embeds no quantization tag", g.QuantizedFilename)
	}
	if g.RepeatLastN < 0 {
		return fmt.Errorf("registry: repeat_last_n must be >= 0, got %d", g.RepeatLastN)
	}
	return nil
}

// Validate checks everything GGUF requires plus the X-LoRA fields: the
// tokenizer model id (adapter scalings need a resolvable tokenizer), the
// adapter set id, and the ordering file path.
func (x XLoraGGUF) Validate() error {
	if err := x.GGUF.Validate(); err != nil {
		return err
	}
	if x.TokModelID == "" {
		return fmt.Errorf("registry: xlora-gguf source has no tok model id")
	}
	if x.QuantizedModelID == "" {
		return fmt.Errorf("registry: xlora-gguf source has no quantized model id")
	}
	if x.XLoraModelID == "" {
		return fmt.Errorf("registry: xlora-gguf source has no adapter set id")
	}
	if x.Order == "" {
		return fmt.Errorf("registry: xlora-gguf source has no ordering file path")
	}
	return nil
}

// WeightsCandidates returns the paths where the weights file may live, in
// probe order. Pure: the caller decides which candidate exists.
func (g GGUF) WeightsCandidates(modelsDir string) []string {
	if filepath.IsAbs(g.QuantizedFilename) {
		return []string{g.QuantizedFilename}
	}
	var out []string
	if g.QuantizedModelID != "" {
		out = append(out, filepath.Join(filepath.FromSlash(g.QuantizedModelID), g.QuantizedFilename))
		if modelsDir != "" {
			out = append(out, filepath.Join(modelsDir, filepath.FromSlash(g.QuantizedModelID), g.QuantizedFilename))
		}
	}
	if modelsDir != "" {
		out = append(out, filepath.Join(modelsDir, g.QuantizedFilename))
	}
	return out
}
