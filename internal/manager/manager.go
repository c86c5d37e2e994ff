package manager

import (
	"sync"
	"time"

	"xlorad/internal/engine"
	"xlorad/internal/model"
	"xlorad/internal/registry"
	"xlorad/internal/xlora"
	"xlorad/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	state        State
	lastErr      string
	registry     *registry.Registry
	modelsDir    string
	defaultModel string
	budgetMB     int
	marginMB     int

	instances map[string]*Instance
	usedEstMB int

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	drainTimeout  time.Duration

	// Backend config
	ctxLen      int
	threads     int
	scaling     xlora.Scaling
	runtime     model.RuntimeFactory
	orderPolicy engine.OrderPolicy

	cache     *completionCache
	publisher EventPublisher

	lruPath string
	lruMeta map[string]lruRecord

	startTime      time.Time
	loadsTotal     uint64
	evictionsTotal uint64
}

// New constructs a Manager with package defaults for everything beyond the
// registry, budget, and default model.
func New(reg *registry.Registry, budgetMB, marginMB int, defaultModel string) *Manager {
	return NewWithConfig(ManagerConfig{
		Registry:     reg,
		BudgetMB:     budgetMB,
		MarginMB:     marginMB,
		DefaultModel: defaultModel,
	})
}

// Ready reports whether at least one instance can serve requests.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == StateError {
		return false
	}
	for _, inst := range m.instances {
		if inst.State == StateReady {
			return true
		}
	}
	return false
}

// ListModels returns the registry projected to the wire shape.
func (m *Manager) ListModels() []types.Model {
	entries := m.registry.List()
	out := make([]types.Model, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.APIModel())
	}
	return out
}

// Registry exposes the underlying registry for read-only lookups.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// DefaultModel returns the configured default model id, possibly empty.
func (m *Manager) DefaultModel() string { return m.defaultModel }

// Close tears down every instance without draining and stops the cache.
// Last-used metadata is persisted first so a restart keeps eviction order.
func (m *Manager) Close() error {
	m.saveLRUMetadata()
	m.mu.Lock()
	insts := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		insts = append(insts, inst)
	}
	m.instances = make(map[string]*Instance)
	m.usedEstMB = 0
	m.mu.Unlock()

	var first error
	for _, inst := range insts {
		if inst.Handle == nil {
			continue
		}
		if err := inst.Handle.Close(); err != nil && first == nil {
			first = err
		}
	}
	if m.cache != nil {
		m.cache.stop()
	}
	return first
}
