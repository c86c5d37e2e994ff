package tokenizer

import (
	"math"

	"xlorad/pkg/types"
)

const (
	defaultCharsPerToken = 3.5
	// Per-message overhead for role markers and separators.
	roleOverheadTokens = 4

	calibrationSample = "The quick brown fox jumps over the lazy dog. " +
		"Pack my box with five dozen liquor jugs. " +
		"Sphinx of black quartz, judge my vow. " +
		"Amazingly few discotheques provide jukeboxes."
)

// Estimator approximates token counts from character counts. It is used for
// context budgeting before a model's tokenizer is loaded; once one is
// available it can be calibrated against it.
type Estimator struct {
	charsPerToken float64
	calibrated    bool
}

// NewEstimator returns an Estimator with the default chars-per-token ratio.
func NewEstimator() *Estimator {
	return &Estimator{charsPerToken: defaultCharsPerToken}
}

// Calibrate adjusts the ratio by encoding a fixed sample with tok. A tokenizer
// that produces no tokens leaves the default ratio in place.
func (e *Estimator) Calibrate(tok Tokenizer) {
	n := len(tok.Encode(calibrationSample))
	if n > 0 {
		e.charsPerToken = float64(len(calibrationSample)) / float64(n)
		e.calibrated = true
	}
}

// Calibrated reports whether Calibrate has adjusted the ratio.
func (e *Estimator) Calibrated() bool { return e.calibrated }

// Estimate returns the estimated token count for text.
func (e *Estimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / e.charsPerToken))
}

// EstimateMessages returns the estimated total tokens for a conversation,
// including per-message role overhead.
func (e *Estimator) EstimateMessages(msgs []types.ChatMessage) int {
	total := 0
	for _, m := range msgs {
		total += roleOverheadTokens + e.Estimate(m.Content)
	}
	return total
}
