package engine

import (
	"math"
	"math/rand"
	"sort"
)

// OrderPolicy fixes the order in which temperature scaling and nucleus
// filtering apply to a step's logits.
type OrderPolicy string

const (
	// TemperatureFirst scales logits by temperature before the nucleus cut.
	TemperatureFirst OrderPolicy = "temperature-first"
	// TopPFirst cuts the nucleus on the untempered distribution, then
	// applies temperature within it.
	TopPFirst OrderPolicy = "top-p-first"
)

// ValidOrderPolicy reports whether s names a known policy.
func ValidOrderPolicy(s string) bool {
	switch OrderPolicy(s) {
	case TemperatureFirst, TopPFirst:
		return true
	}
	return false
}

// SamplerConfig fixes one session's sampling behavior.
type SamplerConfig struct {
	// Temperature >= 0; 0 selects deterministic argmax decoding.
	Temperature float64
	// TopP in (0, 1]; 1 disables nucleus filtering.
	TopP float64
	// PresencePenalty is subtracted from logits of tokens present in the
	// trailing window.
	PresencePenalty float64
	// RepeatLastN bounds the trailing window the penalty looks at;
	// 0 disables the penalty.
	RepeatLastN int
	// Seed fixes the RNG; identical seeds replay identical draws.
	Seed int64
	// Order defaults to TemperatureFirst.
	Order OrderPolicy
}

// Sampler turns per-step logits into token choices. It owns the session RNG;
// all other state arrives as arguments, so a Sampler is safe to drive from
// the single session goroutine without locking.
type Sampler struct {
	cfg SamplerConfig
	rng *rand.Rand
}

// NewSampler builds a sampler for one session.
func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Order == "" {
		cfg.Order = TemperatureFirst
	}
	return &Sampler{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Next picks the next token. recent is the token sequence so far; only its
// trailing RepeatLastN entries feed the presence penalty. Degenerate
// distributions (all-NaN, all -Inf, vanished mass) fall back to greedy argmax
// locally rather than surfacing an error.
func (s *Sampler) Next(logits []float32, recent []int) int {
	ls := make([]float64, len(logits))
	for i, l := range logits {
		ls[i] = float64(l)
	}
	s.applyPresencePenalty(ls, recent)

	if s.cfg.Temperature == 0 {
		return greedy(ls)
	}

	switch s.cfg.Order {
	case TopPFirst:
		probs := softmax(ls)
		if probs == nil {
			return greedy(ls)
		}
		keep := nucleus(probs, s.cfg.TopP)
		return s.drawTempered(ls, keep)
	default:
		for i := range ls {
			ls[i] /= s.cfg.Temperature
		}
		probs := softmax(ls)
		if probs == nil {
			return greedy(ls)
		}
		keep := nucleus(probs, s.cfg.TopP)
		return s.draw(probs, keep)
	}
}

func (s *Sampler) applyPresencePenalty(ls []float64, recent []int) {
	if s.cfg.PresencePenalty == 0 || s.cfg.RepeatLastN <= 0 || len(recent) == 0 {
		return
	}
	window := recent
	if len(window) > s.cfg.RepeatLastN {
		window = window[len(window)-s.cfg.RepeatLastN:]
	}
	seen := make(map[int]bool, len(window))
	for _, t := range window {
		if t >= 0 && t < len(ls) && !seen[t] {
			seen[t] = true
			ls[t] -= s.cfg.PresencePenalty
		}
	}
}

// nucleus returns the indices of the smallest probability-sorted prefix whose
// cumulative mass reaches topP. topP >= 1 keeps the full vocabulary. At least
// one index is always kept.
func nucleus(probs []float64, topP float64) []int {
	idx := argsortDesc(probs)
	if topP >= 1 {
		return idx
	}
	var cum float64
	for n, i := range idx {
		cum += probs[i]
		if cum >= topP {
			return idx[:n+1]
		}
	}
	return idx
}

// argsortDesc returns indices ordered by descending value; equal values keep
// ascending index order so the result is deterministic.
func argsortDesc(vals []float64) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return vals[idx[a]] > vals[idx[b]]
	})
	return idx
}

// draw samples from probs restricted to the kept indices.
func (s *Sampler) draw(probs []float64, keep []int) int {
	var total float64
	for _, i := range keep {
		total += probs[i]
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return greedy(probs)
	}
	r := s.rng.Float64() * total
	var cum float64
	for _, i := range keep {
		cum += probs[i]
		if r < cum {
			return i
		}
	}
	return keep[len(keep)-1]
}

// drawTempered samples from exp(logit/T) restricted to the kept indices,
// used by the top-p-first policy where temperature shapes only the nucleus.
func (s *Sampler) drawTempered(ls []float64, keep []int) int {
	max := math.Inf(-1)
	for _, i := range keep {
		if !math.IsNaN(ls[i]) && ls[i] > max {
			max = ls[i]
		}
	}
	if math.IsInf(max, -1) {
		return greedy(ls)
	}
	weights := make([]float64, len(keep))
	var total float64
	for n, i := range keep {
		if math.IsNaN(ls[i]) || math.IsInf(ls[i], -1) {
			continue
		}
		w := math.Exp((ls[i] - max) / s.cfg.Temperature)
		weights[n] = w
		total += w
	}
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return greedy(ls)
	}
	r := s.rng.Float64() * total
	var cum float64
	for n, i := range keep {
		cum += weights[n]
		if r < cum {
			return i
		}
	}
	return keep[len(keep)-1]
}

// greedy returns the index of the highest finite value, lowest index winning
// ties. A slice with no finite values yields 0.
func greedy(vals []float64) int {
	best := -1
	bestV := math.Inf(-1)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v > bestV {
			best, bestV = i, v
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// softmax returns the stable softmax of ls, or nil when the distribution is
// degenerate (no finite values, vanished or non-finite mass). NaN and -Inf
// entries carry zero probability.
func softmax(ls []float64) []float64 {
	max := math.Inf(-1)
	for _, l := range ls {
		if !math.IsNaN(l) && l > max {
			max = l
		}
	}
	if math.IsInf(max, -1) {
		return nil
	}
	out := make([]float64, len(ls))
	var sum float64
	for i, l := range ls {
		if math.IsNaN(l) || math.IsInf(l, -1) {
			continue
		}
		e := math.Exp(l - max)
		out[i] = e
		sum += e
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
