package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"xlorad/internal/manager"
	"xlorad/internal/registry"
	"xlorad/pkg/types"
)

const zephyrTokID = "HuggingFaceH4/zephyr-7b-beta"

// xloraServer builds a server over one explicit X-LoRA entry and one plain
// entry with a 2-token context window, both resolving real files on disk:
// weights, tokenizer.json, and the adapter ordering.
func xloraServer(t *testing.T, ev *scriptedEval) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	writeGGUFFiles(t, dir, "zephyr-7b-beta.Q4_K_M.gguf")
	writeTokenizerJSON(t, dir, zephyrTokID, map[string]int{
		"Graphene": 0, " is": 1, " a": 2, " single": 3, " layer": 4,
		" of": 5, " carbon": 6, " atoms": 7, ".": 8, "</s>": 9,
	})
	ordering := writeOrderingJSON(t, dir, zephyrTokID,
		[]string{"adapter_1", "adapter_2", "adapter_3", "adapter_4", "adapter_5",
			"adapter_6", "adapter_7", "adapter_8", "adapter_9"},
		map[string]int{
			"model.layers.0.self_attn.q_proj": 0,
			"model.layers.1.self_attn.q_proj": 1,
			"model.layers.2.self_attn.q_proj": 2,
		})

	base := registry.GGUF{
		TokModelID:        zephyrTokID,
		QuantizedModelID:  dir,
		QuantizedFilename: "zephyr-7b-beta.Q4_K_M.gguf",
		RepeatLastN:       64,
	}
	entries := []registry.Entry{
		{
			ID:            "zephyr-xlora",
			Name:          "Zephyr 7B beta X-LoRA",
			Family:        "zephyr",
			ContextLength: 4096,
			Source: registry.XLoraGGUF{
				GGUF:         base,
				XLoraModelID: "lamm-mit/x-lora",
				Order:        ordering,
			},
		},
		{ID: "tiny-ctx", Family: "zephyr", ContextLength: 2, Source: base},
	}
	reg, err := registry.Build(entries, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return newServer(t, manager.ManagerConfig{
		Registry:     reg,
		ModelsDir:    dir,
		DefaultModel: "zephyr-xlora",
		Runtime:      runtimeFactory(ev),
	})
}

func graphenePayload() []byte {
	return []byte(`{
		"model": "zephyr-xlora",
		"messages": [{"role": "user", "content": "What is graphene?"}],
		"max_tokens": 256,
		"temperature": 0.5,
		"top_p": 0.1,
		"presence_penalty": 1.0,
		"seed": 42
	}`)
}

func TestXLoraPipeline_ChatCompletion(t *testing.T) {
	ev := &scriptedEval{vocabSize: 10, script: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}
	srv := xloraServer(t, ev)

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions", graphenePayload())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status=%d body=%s", resp.StatusCode, body)
	}
	var out types.ChatCompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("chat json: %v body=%s", err, body)
	}
	if out.Model != "zephyr-xlora" || out.Object != "chat.completion" {
		t.Fatalf("envelope: %+v", out)
	}
	if len(out.Choices) != 1 {
		t.Fatalf("choices: %d", len(out.Choices))
	}
	choice := out.Choices[0]
	if choice.Message.Content != "Graphene is a single layer of carbon atoms." {
		t.Fatalf("content: %q", choice.Message.Content)
	}
	if choice.FinishReason != "stop" {
		t.Fatalf("finish: %q", choice.FinishReason)
	}
	if out.Usage.CompletionTokens != 9 || out.Usage.PromptTokens == 0 {
		t.Fatalf("usage: %+v", out.Usage)
	}
	if out.Usage.TotalTokens != out.Usage.PromptTokens+out.Usage.CompletionTokens {
		t.Fatalf("usage totals: %+v", out.Usage)
	}
}

func TestXLoraPipeline_ListingAndStatus(t *testing.T) {
	ev := &scriptedEval{vocabSize: 10, script: []int{9}}
	srv := xloraServer(t, ev)

	resp, body := httpGet(t, srv.URL+"/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models status=%d", resp.StatusCode)
	}
	var listing types.ModelsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatalf("/models json: %v", err)
	}
	if len(listing.Models) != 2 {
		t.Fatalf("models: %d", len(listing.Models))
	}
	m := listing.Models[0]
	if m.ID != "zephyr-xlora" || m.Kind != "xlora-gguf" {
		t.Fatalf("first model: %+v", m)
	}
	if m.Quant != "Q4_K_M" || m.AdapterID != "lamm-mit/x-lora" || m.TokenizerID != zephyrTokID {
		t.Fatalf("projection: %+v", m)
	}

	resp, body = httpPostJSON(t, srv.URL+"/v1/chat/completions", graphenePayload())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = httpGet(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d", resp.StatusCode)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v", err)
	}
	if len(st.Instances) != 1 {
		t.Fatalf("instances: %+v", st.Instances)
	}
	if inst := st.Instances[0]; inst.ModelID != "zephyr-xlora" || !inst.XLora {
		t.Fatalf("instance: %+v", inst)
	}
}

func TestXLoraPipeline_ValidationRejected(t *testing.T) {
	ev := &scriptedEval{vocabSize: 10, script: []int{9}}
	srv := xloraServer(t, ev)

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions",
		[]byte(`{"messages":[{"role":"user","content":"hi"}],"temperature":-1}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, body)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("error body: %v body=%s", err, body)
	}
	if er.Code != http.StatusBadRequest || er.Error == "" {
		t.Fatalf("error payload: %+v", er)
	}
}

func TestXLoraPipeline_ContextOverflowRejected(t *testing.T) {
	ev := &scriptedEval{vocabSize: 10, script: []int{9}}
	srv := xloraServer(t, ev)

	resp, body := httpPostJSON(t, srv.URL+"/v1/chat/completions",
		[]byte(`{"model":"tiny-ctx","messages":[{"role":"user","content":"What is graphene?"}]}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 overflow, got %d body=%s", resp.StatusCode, body)
	}
}

func TestXLoraPipeline_SeededRepeatServedFromCache(t *testing.T) {
	ev := &scriptedEval{vocabSize: 10, script: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}
	srv := xloraServer(t, ev)

	resp, body1 := httpPostJSON(t, srv.URL+"/v1/chat/completions", graphenePayload())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first chat: %d body=%s", resp.StatusCode, body1)
	}
	calls := ev.callCount()
	if calls == 0 {
		t.Fatalf("evaluator never ran")
	}

	resp, body2 := httpPostJSON(t, srv.URL+"/v1/chat/completions", graphenePayload())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second chat: %d body=%s", resp.StatusCode, body2)
	}
	if got := ev.callCount(); got != calls {
		t.Fatalf("cache miss: evaluator calls %d -> %d", calls, got)
	}

	var first, second types.ChatCompletionResponse
	if err := json.Unmarshal(body1, &first); err != nil {
		t.Fatalf("first json: %v", err)
	}
	if err := json.Unmarshal(body2, &second); err != nil {
		t.Fatalf("second json: %v", err)
	}
	if first.Choices[0].Message.Content != second.Choices[0].Message.Content {
		t.Fatalf("cached content diverged: %q vs %q",
			first.Choices[0].Message.Content, second.Choices[0].Message.Content)
	}
}
