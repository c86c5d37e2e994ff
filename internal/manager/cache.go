package manager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"xlorad/internal/engine"
	"xlorad/pkg/types"
)

// completionCache holds finished completions for requests whose output is a
// pure function of their input: greedy (temperature 0) or explicitly seeded.
type completionCache struct {
	c        *ttlcache.Cache[string, Completion]
	stopOnce sync.Once
}

func newCompletionCache(ttl time.Duration, capacity int) *completionCache {
	c := ttlcache.New[string, Completion](
		ttlcache.WithTTL[string, Completion](ttl),
		ttlcache.WithCapacity[string, Completion](uint64(capacity)),
		ttlcache.WithDisableTouchOnHit[string, Completion](),
	)
	go c.Start()
	return &completionCache{c: c}
}

func (cc *completionCache) get(key string) (Completion, bool) {
	item := cc.c.Get(key)
	if item == nil {
		return Completion{}, false
	}
	return item.Value(), true
}

func (cc *completionCache) put(key string, v Completion) {
	cc.c.Set(key, v, ttlcache.DefaultTTL)
}

// stop is safe to call more than once; Manager.Close may run twice.
func (cc *completionCache) stop() { cc.stopOnce.Do(cc.c.Stop) }

// completionKey derives the cache key for a resolved request, and reports
// whether the request is cacheable at all. Only deterministic requests
// qualify: greedy decoding ignores the seed, so the key normalizes it to
// zero; seeded requests key on the explicit seed.
func (m *Manager) completionKey(modelID string, raw types.ChatCompletionRequest, ereq engine.Request) (string, bool) {
	if m.cache == nil {
		return "", false
	}
	deterministic := ereq.Temperature == 0 || raw.Seed != nil
	if !deterministic {
		return "", false
	}
	seed := ereq.Seed
	if ereq.Temperature == 0 {
		seed = 0
	}
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(struct {
		Model       string              `json:"model"`
		Messages    []types.ChatMessage `json:"messages"`
		MaxTokens   int                 `json:"max_tokens"`
		Temperature float64             `json:"temperature"`
		TopP        float64             `json:"top_p"`
		Presence    float64             `json:"presence_penalty"`
		Seed        int64               `json:"seed"`
		Stop        []string            `json:"stop"`
	}{modelID, ereq.Messages, ereq.MaxTokens, ereq.Temperature, ereq.TopP, ereq.PresencePenalty, seed, ereq.Stop})
	return hex.EncodeToString(h.Sum(nil)), true
}
