// Package tokenizer resolves tokenizer files for registered models and
// provides a vocab-backed fallback encoder. Exact merge tables are the native
// runtime's business; the fallback exists for prompt accounting and for
// driving the pure-Go evaluation path in tests.
package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Tokenizer converts between text and token IDs.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
	// EOS returns the end-of-sequence token ID, or -1 when unknown.
	EOS() int
}

var errUnresolved = errors.New("no tokenizer.json resolvable")

// IsUnresolved reports whether err means no tokenizer file could be located
// for a model.
func IsUnresolved(err error) bool { return errors.Is(err, errUnresolved) }

// Resolve picks the tokenizer file for a model. An explicit override wins and
// must exist; otherwise the file is derived as <dir>/<tokModelID>/tokenizer.json
// over the given search dirs, first hit wins.
func Resolve(override *string, tokModelID string, searchDirs ...string) (string, error) {
	if override != nil {
		if *override == "" {
			return "", fmt.Errorf("tokenizer: empty override path: %w", errUnresolved)
		}
		if _, err := os.Stat(*override); err != nil {
			return "", fmt.Errorf("tokenizer: override %s: %w", *override, errUnresolved)
		}
		return *override, nil
	}
	if tokModelID == "" {
		return "", fmt.Errorf("tokenizer: no tokenizer model id: %w", errUnresolved)
	}
	for _, dir := range searchDirs {
		if dir == "" {
			continue
		}
		cand := filepath.Join(dir, filepath.FromSlash(tokModelID), "tokenizer.json")
		if st, err := os.Stat(cand); err == nil && !st.IsDir() {
			return cand, nil
		}
	}
	return "", fmt.Errorf("tokenizer: %s has no tokenizer.json under %v: %w", tokModelID, searchDirs, errUnresolved)
}
