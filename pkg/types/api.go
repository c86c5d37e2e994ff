package types

// ChatMessage is a single role/content pair in a conversation. Message order
// is conversation order and is preserved end to end.
type ChatMessage struct {
	// Role of the author: system, user, or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: What is graphene?
	Content string `json:"content" example:"What is graphene?"`
}

// ChatCompletionRequest is the JSON body for POST /v1/chat/completions.
// Optional sampling fields are pointers: nil means "use the server default",
// while an explicit zero keeps its meaning (temperature 0 is greedy decoding).
type ChatCompletionRequest struct {
	// Model identifier. If empty, the server default model is used.
	// example: zephyr-xlora
	Model string `json:"model,omitempty" example:"zephyr-xlora"`
	// Ordered conversation messages. At least one is required.
	Messages []ChatMessage `json:"messages"`
	// Maximum number of completion tokens. Defaults to the server cap.
	// example: 256
	MaxTokens *int `json:"max_tokens,omitempty" example:"256"`
	// Sampling temperature, >= 0. 0 selects deterministic argmax decoding.
	// example: 0.5
	Temperature *float64 `json:"temperature,omitempty" example:"0.5"`
	// Nucleus sampling mass, in (0, 1]. 1 disables nucleus filtering.
	// example: 0.1
	TopP *float64 `json:"top_p,omitempty" example:"0.1"`
	// Penalty subtracted from logits of tokens seen in the repeat window.
	// example: 1.0
	PresencePenalty *float64 `json:"presence_penalty,omitempty" example:"1.0"`
	// If true, stream tokens as NDJSON lines instead of a single JSON body.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
	// RNG seed for reproducible sampling. nil lets the server choose.
	// example: 42
	Seed *int64 `json:"seed,omitempty" example:"42"`
	// Optional stop sequences. Generation stops when any is matched.
	Stop []string `json:"stop,omitempty"`
}

// ChatCompletionResponse is the non-streaming response envelope.
type ChatCompletionResponse struct {
	// Response identifier.
	// example: chatcmpl-4f6c0e5e
	ID string `json:"id" example:"chatcmpl-4f6c0e5e"`
	// Always "chat.completion".
	// example: chat.completion
	Object string `json:"object" example:"chat.completion"`
	// Creation time in unix seconds.
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
	// Model that served the request.
	// example: zephyr-xlora
	Model string `json:"model" example:"zephyr-xlora"`
	// Completion choices. This server returns exactly one.
	Choices []Choice `json:"choices"`
	// Token accounting and throughput for the request.
	Usage Usage `json:"usage"`
}

// Choice is a single completion within a response.
type Choice struct {
	// Index of the choice, starting at 0.
	// example: 0
	Index int `json:"index" example:"0"`
	// Generated assistant message.
	Message ChatMessage `json:"message"`
	// Why generation ended: stop or length.
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
}

// Usage reports token counts and average throughput for one request.
type Usage struct {
	// Tokens consumed by the prompt.
	// example: 12
	PromptTokens int `json:"prompt_tokens" example:"12"`
	// Tokens generated for the completion.
	// example: 98
	CompletionTokens int `json:"completion_tokens" example:"98"`
	// Prompt plus completion tokens.
	// example: 110
	TotalTokens int `json:"total_tokens" example:"110"`
	// Average tokens per second over the whole request.
	AvgTokPerSec float64 `json:"avg_tok_per_sec,omitempty"`
	// Average prompt tokens per second during prefill.
	AvgPromptTokPerSec float64 `json:"avg_prompt_tok_per_sec,omitempty"`
	// Average completion tokens per second during generation.
	AvgComplTokPerSec float64 `json:"avg_compl_tok_per_sec,omitempty"`
	// Average tokens per second spent inside the sampler.
	AvgSampleTokPerSec float64 `json:"avg_sample_tok_per_sec,omitempty"`
}

// StreamToken is one NDJSON line of a streaming completion.
type StreamToken struct {
	// Decoded token text.
	// example: graphene
	Token string `json:"token" example:"graphene"`
}

// StreamDone is the final NDJSON line of a streaming completion.
type StreamDone struct {
	// Always true on the final line.
	// example: true
	Done bool `json:"done" example:"true"`
	// Full generated text.
	Content string `json:"content"`
	// Why generation ended: stop or length.
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
	// Token accounting for the request.
	Usage Usage `json:"usage"`
}

// ModelsResponse wraps the model list returned by GET /models.
type ModelsResponse struct {
	// Registered models.
	Models []Model `json:"models"`
}

// ModelList is the OpenAI-shaped response for GET /v1/models.
type ModelList struct {
	// Always "list".
	// example: list
	Object string           `json:"object" example:"list"`
	Data   []ModelListEntry `json:"data"`
}

// ModelListEntry is one model in a ModelList.
type ModelListEntry struct {
	// Model identifier.
	// example: zephyr-xlora
	ID string `json:"id" example:"zephyr-xlora"`
	// Always "model".
	// example: model
	Object string `json:"object" example:"model"`
	// Registration time in unix seconds.
	// example: 1700000000
	Created int64 `json:"created" example:"1700000000"`
	// Owner tag reported for compatibility.
	// example: xlorad
	OwnedBy string `json:"owned_by" example:"xlorad"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: zephyr-xlora
	Error string `json:"error" example:"model not found: zephyr-xlora"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// InstanceStatus summarizes one loaded model instance for /status.
type InstanceStatus struct {
	// ID of the model this instance serves.
	// example: zephyr-xlora
	ModelID string `json:"model_id" example:"zephyr-xlora"`
	// Lifecycle state: loading, ready, draining, or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this instance served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Estimated resident memory of the loaded weights in MB.
	// example: 4096
	EstMemoryMB int `json:"est_memory_mb" example:"4096"`
	// Number of queued requests waiting for this instance.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight generations (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Queue capacity before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Whether the instance carries an X-LoRA adapter set.
	// example: true
	XLora bool `json:"xlora,omitempty" example:"true"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Loaded instances.
	Instances []InstanceStatus `json:"instances"`
	// Memory budget in MB across all instances (0 = unlimited).
	// example: 8192
	BudgetMB int `json:"budget_mb" example:"8192"`
	// Estimated used memory in MB.
	// example: 4096
	UsedMB int `json:"used_est_mb" example:"4096"`
	// Reserved memory margin in MB.
	// example: 512
	MarginMB int `json:"margin_mb" example:"512"`
	// Overall manager state: loading, ready, or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Last error observed by the manager, if any.
	LastError string `json:"last_error,omitempty"`
	// Uptime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total evictions performed to stay inside the budget.
	// example: 2
	EvictionsTotal uint64 `json:"evictions_total" example:"2"`
	// Total model loads since start.
	// example: 5
	LoadsTotal uint64 `json:"loads_total" example:"5"`
	// Instances currently warming up.
	// example: 0
	WarmupsInProgress int `json:"warmups_in_progress" example:"0"`
	// Instances currently draining before unload.
	// example: 0
	DrainingCount int `json:"draining_count" example:"0"`
}
