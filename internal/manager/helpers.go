package manager

import (
	"os"

	"xlorad/internal/model"
	"xlorad/internal/registry"
)

// estimateMemoryMB sizes a model by its weights file (MB). An unlocatable
// file returns a conservative minimum of 1 so budget checks are never
// bypassed by an unknown size.
func (m *Manager) estimateMemoryMB(entry registry.Entry) int {
	var g registry.GGUF
	switch s := entry.Source.(type) {
	case registry.GGUF:
		g = s
	case registry.XLoraGGUF:
		g = s.GGUF
	default:
		return 1
	}
	for _, c := range g.WeightsCandidates(m.modelsDir) {
		fi, err := os.Stat(c)
		if err != nil || fi.IsDir() {
			continue
		}
		mb := int(fi.Size() / (1024 * 1024))
		if mb <= 0 {
			mb = 1
		}
		return mb
	}
	return 1
}

func (m *Manager) loadOptions() model.Options {
	return model.Options{
		ModelsDir:  m.modelsDir,
		ContextLen: m.ctxLen,
		Threads:    m.threads,
		Scaling:    m.scaling,
		Runtime:    m.runtime,
	}
}
