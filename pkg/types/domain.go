package types

// Model describes one registered model as reported by the registry.
// Kind distinguishes plain quantized checkpoints from X-LoRA stacks; the
// adapter fields are only set when Kind is "xlora-gguf".
type Model struct {
	// Stable identifier used in requests.
	// example: zephyr-xlora
	ID string `json:"id" example:"zephyr-xlora"`
	// Human-readable name.
	// example: Zephyr 7B beta X-LoRA
	Name string `json:"name,omitempty" example:"Zephyr 7B beta X-LoRA"`
	// Source kind: gguf or xlora-gguf.
	// example: xlora-gguf
	Kind string `json:"kind" example:"xlora-gguf"`
	// Model family used to pick the prompt template.
	// example: zephyr
	Family string `json:"family,omitempty" example:"zephyr"`
	// Quantization tag parsed from the weights filename.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Filesystem path of the quantized weights.
	// example: /models/zephyr-7b-beta.Q4_K_M.gguf
	Path string `json:"path,omitempty" example:"/models/zephyr-7b-beta.Q4_K_M.gguf"`
	// Context window length in tokens.
	// example: 4096
	ContextLength int `json:"context_length,omitempty" example:"4096"`
	// Tokenizer model identifier the weights were tokenized with.
	// example: HuggingFaceH4/zephyr-7b-beta
	TokenizerID string `json:"tokenizer_id,omitempty" example:"HuggingFaceH4/zephyr-7b-beta"`
	// Registration time in unix seconds.
	// example: 1700000000
	Created int64 `json:"created,omitempty" example:"1700000000"`
	// Adapter set identifier, xlora-gguf only.
	// example: lamm-mit/x-lora
	AdapterID string `json:"adapter_id,omitempty" example:"lamm-mit/x-lora"`
	// Number of adapters in the ordering, xlora-gguf only.
	// example: 9
	AdapterCount int `json:"adapter_count,omitempty" example:"9"`
}
