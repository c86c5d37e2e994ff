//go:build !llama

package model

import (
	"xlorad/internal/engine"
)

// This file is compiled when the 'llama' build tag is NOT set, keeping
// default builds and CI CGO-free. Loads fail fast instead of mocking
// inference in production binaries.

// llamaBuilt indicates this binary was compiled without real llama support.
var llamaBuilt = false

func newRuntime(weightsPath string, opts Options) (engine.Runtime, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
