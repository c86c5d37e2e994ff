package manager

import (
	"os"

	"xlorad/internal/model"
)

// SanityReport describes startup checks for the serving dependencies.
type SanityReport struct {
	NativeRuntime bool   `json:"native_runtime"`
	ModelsDir     string `json:"models_dir,omitempty"`
	ModelsDirOK   bool   `json:"models_dir_ok"`
	Models        int    `json:"models"`
	DefaultModel  string `json:"default_model,omitempty"`
	DefaultFound  bool   `json:"default_found"`
	Error         string `json:"error,omitempty"`
}

// SanityCheck validates that the process can plausibly serve: the native
// backend is compiled in, the models dir exists, and the default model is
// registered. It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{
		NativeRuntime: model.Built(),
		ModelsDir:     m.modelsDir,
		Models:        m.registry.Len(),
		DefaultModel:  m.defaultModel,
	}
	if !r.NativeRuntime {
		r.Error = "native runtime not built (missing 'llama' build tag)"
	}
	if m.modelsDir != "" {
		if fi, err := os.Stat(m.modelsDir); err == nil && fi.IsDir() {
			r.ModelsDirOK = true
		} else if r.Error == "" {
			r.Error = "models dir not found: " + m.modelsDir
		}
	}
	if m.defaultModel != "" {
		r.DefaultFound = m.registry.Has(m.defaultModel)
		if !r.DefaultFound && r.Error == "" {
			r.Error = "default model not registered: " + m.defaultModel
		}
	}
	return r
}
