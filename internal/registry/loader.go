package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"xlorad/internal/common/fsutil"
)

// GGUFScanner discovers model files in a directory.
type GGUFScanner struct{}

// NewGGUFScanner returns a scanner for *.gguf files.
func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan walks dir non-recursively and returns an entry per *.gguf file. The
// filename (including extension) becomes the model ID; the file's directory
// becomes the quantized model location.
func (s *GGUFScanner) Scan(dir string) ([]Entry, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		out = append(out, Entry{
			ID:   name,
			Name: name,
			Source: GGUF{
				QuantizedModelID:  abs,
				QuantizedFilename: name,
			},
		})
	}
	return out, nil
}

// LoadDir scans dir for *.gguf files and returns discovered entries.
func LoadDir(dir string) ([]Entry, error) {
	return NewGGUFScanner().Scan(dir)
}
