package manager

import (
	"context"
	"log"
	"time"

	"xlorad/internal/model"
)

// EnsureInstance brings a model instance to StateReady, loading and evicting
// as the memory budget requires. Concurrent ensures of the same model may
// both load; the first commit wins and the loser's handle is released.
func (m *Manager) EnsureInstance(ctx context.Context, modelID string) error {
	startTs := time.Now()
	if modelID == "" {
		// If unspecified, use default if present; else no-op
		modelID = m.defaultModel
		if modelID == "" {
			return nil
		}
	}
	log.Printf("manager event=ensure_start model=%q", modelID)
	m.publisher.Publish(Event{Name: "ensure_start", ModelID: modelID})

	m.mu.RLock()
	inst, ok := m.instances[modelID]
	ready := ok && inst != nil && inst.State == StateReady
	m.mu.RUnlock()
	if ready {
		// Upgrade to write lock to safely mutate LastUsed and re-check state
		m.mu.Lock()
		if inst2, ok2 := m.instances[modelID]; ok2 && inst2 != nil && inst2.State == StateReady {
			inst2.LastUsed = time.Now()
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()
		// If state changed in between, continue with ensure path
	}

	entry, ok := m.registry.Get(modelID)
	if !ok {
		log.Printf("manager event=ensure_model_not_found model=%q", modelID)
		m.publisher.Publish(Event{Name: "ensure_model_not_found", ModelID: modelID})
		return ErrModelNotFound(modelID)
	}
	reqMB := m.estimateMemoryMB(entry)

	// Evict until it fits budget + margin, if budget configured
	if m.budgetMB > 0 {
		if err := m.evictUntilFits(reqMB); err != nil {
			log.Printf("manager event=ensure_budget_fail model=%q err=%v", modelID, err)
			m.publisher.Publish(Event{Name: "ensure_budget_fail", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
			return err
		}
	}

	// Mark a loading instance before the load so status reflects the warmup
	m.mu.Lock()
	m.state = StateLoading
	m.lastErr = ""
	inst, existed := m.instances[modelID]
	addedNow := false
	if !existed || inst == nil {
		inst = &Instance{
			ID:       modelID,
			State:    StateLoading,
			LastUsed: time.Now(),
			EstMemMB: reqMB,
			genCh:    make(chan struct{}, 1),
			queueCh:  make(chan struct{}, m.maxQueueDepth),
		}
		m.instances[modelID] = inst
		addedNow = true
	} else {
		inst.State = StateLoading
		inst.EstMemMB = reqMB
		inst.LastUsed = time.Now()
	}
	m.mu.Unlock()

	h, err := model.Load(entry, m.loadOptions())
	if err != nil {
		m.mu.Lock()
		if addedNow {
			delete(m.instances, modelID)
		}
		m.state = StateError
		m.lastErr = err.Error()
		m.mu.Unlock()
		log.Printf("manager event=ensure_load_error model=%q err=%v", modelID, err)
		m.publisher.Publish(Event{Name: "ensure_load_error", ModelID: modelID, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = h.Close()
		m.mu.Lock()
		if addedNow {
			delete(m.instances, modelID)
		}
		m.state = StateError
		m.lastErr = err.Error()
		m.mu.Unlock()
		return err
	}

	// Commit instance as ready
	m.mu.Lock()
	if inst.State == StateReady && inst.Handle != nil {
		// A concurrent ensure won the race; keep its handle.
		m.mu.Unlock()
		_ = h.Close()
		return nil
	}
	if addedNow {
		// Only add to used estimate when we actually added a new instance
		m.usedEstMB += reqMB
	}
	// Refresh the estimate from the resolved weights size
	if mb := int(h.SizeBytes() / (1024 * 1024)); mb > 0 && mb != inst.EstMemMB {
		m.usedEstMB += mb - inst.EstMemMB
		inst.EstMemMB = mb
	}
	inst.Handle = h
	inst.State = StateReady
	inst.LastUsed = time.Now()
	m.state = StateReady
	m.lastErr = ""
	m.loadsTotal++
	m.mu.Unlock()
	m.saveLRUMetadata()

	log.Printf("manager event=ensure_ready model=%q dur_ms=%d", modelID, time.Since(startTs)/time.Millisecond)
	m.publisher.Publish(Event{Name: "ensure_ready", ModelID: modelID, Fields: map[string]any{"dur_ms": int(time.Since(startTs) / time.Millisecond)}})
	return nil
}
