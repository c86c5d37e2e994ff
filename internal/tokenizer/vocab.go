package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Vocab is a fallback encoder over a fixed vocabulary. Encode is greedy
// longest-match with single-byte fallback, which is not the exact BPE/unigram
// segmentation but agrees with it on token counts closely enough for
// accounting, and is exact for the synthetic vocabs used in tests.
type Vocab struct {
	tokens []string
	ids    map[string]int
	maxLen int
	eosID  int
}

// tokenizerFile is the subset of a HuggingFace tokenizer.json we read.
type tokenizerFile struct {
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
}

// eosCandidates are checked in order when deriving the EOS ID from a vocab.
var eosCandidates = []string{"</s>", "<|endoftext|>", "<|end|>", "<eos>"}

// LoadFile reads a tokenizer.json and builds a Vocab from its model.vocab
// plus added_tokens.
func LoadFile(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: read %s: %w", path, err)
	}
	var tf tokenizerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("tokenizer: parse %s: %w", path, err)
	}
	if len(tf.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer: %s has an empty model.vocab", path)
	}
	maxID := -1
	for _, id := range tf.Model.Vocab {
		if id > maxID {
			maxID = id
		}
	}
	for _, at := range tf.AddedTokens {
		if at.ID > maxID {
			maxID = at.ID
		}
	}
	v := &Vocab{
		tokens: make([]string, maxID+1),
		ids:    make(map[string]int, len(tf.Model.Vocab)+len(tf.AddedTokens)),
		eosID:  -1,
	}
	for tok, id := range tf.Model.Vocab {
		v.add(tok, id)
	}
	// Added tokens override vocab entries at the same ID.
	for _, at := range tf.AddedTokens {
		v.add(at.Content, at.ID)
	}
	for _, cand := range eosCandidates {
		if id, ok := v.ids[cand]; ok {
			v.eosID = id
			break
		}
	}
	return v, nil
}

// FromTokens builds a Vocab whose IDs are slice indexes. eos names the
// end-of-sequence token; pass "" when the vocab has none.
func FromTokens(tokens []string, eos string) *Vocab {
	v := &Vocab{
		tokens: make([]string, len(tokens)),
		ids:    make(map[string]int, len(tokens)),
		eosID:  -1,
	}
	for id, tok := range tokens {
		v.add(tok, id)
	}
	if eos != "" {
		if id, ok := v.ids[eos]; ok {
			v.eosID = id
		}
	}
	return v
}

func (v *Vocab) add(tok string, id int) {
	for id >= len(v.tokens) {
		v.tokens = append(v.tokens, "")
	}
	v.tokens[id] = tok
	v.ids[tok] = id
	if len(tok) > v.maxLen {
		v.maxLen = len(tok)
	}
}

// Len returns the vocabulary size (highest ID + 1).
func (v *Vocab) Len() int { return len(v.tokens) }

// EOS returns the end-of-sequence token ID, or -1 when unknown.
func (v *Vocab) EOS() int { return v.eosID }

// ID returns the token ID for an exact token string.
func (v *Vocab) ID(tok string) (int, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

// Encode segments text greedily: at each position the longest vocab entry
// matching the remaining input wins; bytes with no covering entry fall back
// to their <0xNN> byte token when the vocab carries one, else they are
// dropped from the encoding.
func (v *Vocab) Encode(text string) []int {
	var out []int
	for i := 0; i < len(text); {
		best := 0
		bestID := -1
		max := v.maxLen
		if rem := len(text) - i; rem < max {
			max = rem
		}
		for l := max; l > 0; l-- {
			if id, ok := v.ids[text[i:i+l]]; ok {
				best, bestID = l, id
				break
			}
		}
		if bestID >= 0 {
			out = append(out, bestID)
			i += best
			continue
		}
		if id, ok := v.ids[fmt.Sprintf("<0x%02X>", text[i])]; ok {
			out = append(out, id)
		}
		i++
	}
	return out
}

// Decode concatenates token texts, expanding <0xNN> byte tokens and mapping
// the sentencepiece word boundary (U+2581) back to a space.
func (v *Vocab) Decode(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		if id < 0 || id >= len(v.tokens) {
			continue
		}
		tok := v.tokens[id]
		if len(tok) == 6 && strings.HasPrefix(tok, "<0x") && tok[5] == '>' {
			var c byte
			if _, err := fmt.Sscanf(tok, "<0x%02X>", &c); err == nil {
				b.WriteByte(c)
				continue
			}
		}
		b.WriteString(strings.ReplaceAll(tok, "▁", " "))
	}
	return b.String()
}
