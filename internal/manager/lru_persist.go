package manager

import (
	"encoding/json"
	"os"
)

type lruRecord struct {
	LastUsedUnix int64 `json:"last_used_unix"`
	EstMemMB     int   `json:"est_mem_mb"`
}

func (m *Manager) loadLRUMetadata() {
	if m.lruPath == "" {
		return
	}
	f, err := os.Open(m.lruPath)
	if err != nil {
		return
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	var data map[string]lruRecord
	if err := dec.Decode(&data); err == nil {
		m.lruMeta = data
	}
}

func (m *Manager) saveLRUMetadata() {
	if m.lruPath == "" {
		return
	}
	// Snapshot under lock
	m.mu.RLock()
	snap := make(map[string]lruRecord, len(m.instances))
	for id, inst := range m.instances {
		snap[id] = lruRecord{LastUsedUnix: inst.LastUsed.Unix(), EstMemMB: inst.EstMemMB}
	}
	m.mu.RUnlock()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(m.lruPath, b, 0o644)
}

// StartupModel picks the model to pre-warm at boot: the configured default
// when set, else the most recently used model from persisted metadata that
// is still registered. Empty means nothing to warm.
func (m *Manager) StartupModel() string {
	if m.defaultModel != "" {
		return m.defaultModel
	}
	var best string
	var bestTs int64
	for id, rec := range m.lruMeta {
		if !m.registry.Has(id) {
			continue
		}
		if rec.LastUsedUnix > bestTs {
			best, bestTs = id, rec.LastUsedUnix
		}
	}
	return best
}
