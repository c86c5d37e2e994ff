package config

import (
	"fmt"

	"xlorad/internal/registry"
)

// defaultRepeatLastN is applied when a model entry leaves the penalty window
// unset.
const defaultRepeatLastN = 64

// ModelEntry is one model in the config file. Kind selects the source
// variant; when empty it is inferred: entries naming an adapter set are
// xlora-gguf, the rest plain gguf.
type ModelEntry struct {
	ID            string `json:"id" yaml:"id" toml:"id"`
	Name          string `json:"name" yaml:"name" toml:"name"`
	Family        string `json:"family" yaml:"family" toml:"family"`
	Kind          string `json:"kind" yaml:"kind" toml:"kind"`
	ContextLength int    `json:"context_length" yaml:"context_length" toml:"context_length"`

	TokModelID        string  `json:"tok_model_id" yaml:"tok_model_id" toml:"tok_model_id"`
	QuantizedModelID  string  `json:"quantized_model_id" yaml:"quantized_model_id" toml:"quantized_model_id"`
	QuantizedFilename string  `json:"quantized_filename" yaml:"quantized_filename" toml:"quantized_filename"`
	TokenizerJSON     *string `json:"tokenizer_json" yaml:"tokenizer_json" toml:"tokenizer_json"`
	RepeatLastN       *int    `json:"repeat_last_n" yaml:"repeat_last_n" toml:"repeat_last_n"`

	XLoraModelID        string `json:"xlora_model_id" yaml:"xlora_model_id" toml:"xlora_model_id"`
	Order               string `json:"order" yaml:"order" toml:"order"`
	TgtNonGranularIndex *int   `json:"tgt_non_granular_index" yaml:"tgt_non_granular_index" toml:"tgt_non_granular_index"`
}

func (m ModelEntry) kind() string {
	if m.Kind != "" {
		return m.Kind
	}
	if m.XLoraModelID != "" || m.Order != "" {
		return registry.KindXLoraGGUF
	}
	return registry.KindGGUF
}

func (m ModelEntry) gguf() registry.GGUF {
	g := registry.GGUF{
		TokModelID:        m.TokModelID,
		QuantizedModelID:  m.QuantizedModelID,
		QuantizedFilename: m.QuantizedFilename,
		RepeatLastN:       defaultRepeatLastN,
	}
	if m.TokenizerJSON != nil {
		p := *m.TokenizerJSON
		g.TokenizerJSON = &p
	}
	if m.RepeatLastN != nil {
		g.RepeatLastN = *m.RepeatLastN
	}
	return g
}

// Entry converts the config entry into a registry entry. The source is not
// validated here; registry.Add owns that.
func (m ModelEntry) Entry() (registry.Entry, error) {
	e := registry.Entry{
		ID:            m.ID,
		Name:          m.Name,
		Family:        m.Family,
		ContextLength: m.ContextLength,
	}
	switch m.kind() {
	case registry.KindGGUF:
		e.Source = m.gguf()
	case registry.KindXLoraGGUF:
		x := registry.XLoraGGUF{
			GGUF:         m.gguf(),
			XLoraModelID: m.XLoraModelID,
			Order:        m.Order,
		}
		if m.TgtNonGranularIndex != nil {
			idx := *m.TgtNonGranularIndex
			x.TgtNonGranularIndex = &idx
		}
		e.Source = x
	default:
		return registry.Entry{}, fmt.Errorf("config: model %q has unknown kind %q", m.ID, m.Kind)
	}
	return e, nil
}

// Entries converts every configured model.
func (c Config) Entries() ([]registry.Entry, error) {
	if len(c.Models) == 0 {
		return nil, nil
	}
	out := make([]registry.Entry, 0, len(c.Models))
	for _, m := range c.Models {
		e, err := m.Entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
