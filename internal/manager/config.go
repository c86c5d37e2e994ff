package manager

import (
	"time"

	"xlorad/internal/engine"
	"xlorad/internal/model"
	"xlorad/internal/registry"
	"xlorad/internal/xlora"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
	defaultCacheTTL      = 5 * time.Minute
	defaultCacheSize     = 256
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry      *registry.Registry
	ModelsDir     string
	DefaultModel  string
	BudgetMB      int
	MarginMB      int
	MaxQueueDepth int
	MaxWait       time.Duration
	DrainTimeout  time.Duration

	// Backend configuration passed through to model.Load.
	ContextLen int
	Threads    int
	Scaling    xlora.Scaling
	// Runtime overrides the backend factory; tests inject fakes here.
	Runtime model.RuntimeFactory

	// SamplingOrder fixes the sampler's temperature/top-p order; empty
	// selects temperature-first.
	SamplingOrder engine.OrderPolicy

	// CacheTTL < 0 disables the deterministic completion cache.
	CacheTTL  time.Duration
	CacheSize int

	// LRUStatePath persists last-used metadata across restarts when set.
	LRUStatePath string

	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}
	m := &Manager{
		state:        StateLoading,
		registry:     reg,
		modelsDir:    cfg.ModelsDir,
		defaultModel: cfg.DefaultModel,
		budgetMB:     cfg.BudgetMB,
		marginMB:     cfg.MarginMB,
		instances:    make(map[string]*Instance),
		ctxLen:       cfg.ContextLen,
		threads:      cfg.Threads,
		scaling:      cfg.Scaling,
		runtime:      cfg.Runtime,
		orderPolicy:  cfg.SamplingOrder,
		lruPath:      cfg.LRUStatePath,
		publisher:    cfg.Publisher,
		startTime:    time.Now(),
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if m.orderPolicy == "" {
		m.orderPolicy = engine.TemperatureFirst
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.CacheTTL >= 0 {
		ttl := cfg.CacheTTL
		if ttl == 0 {
			ttl = defaultCacheTTL
		}
		size := cfg.CacheSize
		if size <= 0 {
			size = defaultCacheSize
		}
		m.cache = newCompletionCache(ttl, size)
	}
	m.loadLRUMetadata()
	return m
}
