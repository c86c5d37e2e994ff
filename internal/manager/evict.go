package manager

import (
	"log"
	"time"
)

// evictUntilFits removes LRU idle instances until requiredMB fits within
// budget + margin. Instances with queued or in-flight work, or still
// loading, are never evicted. When nothing evictable remains the budget is
// treated as best-effort and the load proceeds.
func (m *Manager) evictUntilFits(requiredMB int) error {
	deadline := time.Now().Add(1 * time.Second)
	for {
		m.mu.Lock()
		fits := (m.usedEstMB + requiredMB + m.marginMB) <= m.budgetMB
		if fits {
			m.mu.Unlock()
			return nil
		}
		var lru *Instance
		for _, inst := range m.instances {
			if len(inst.genCh) > 0 || len(inst.queueCh) > 0 {
				continue
			}
			if inst.State == StateLoading {
				continue
			}
			if lru == nil || inst.LastUsed.Before(lru.LastUsed) {
				lru = inst
			}
		}
		if lru == nil {
			// nothing to evict
			m.mu.Unlock()
			return nil
		}
		h := lru.Handle
		delete(m.instances, lru.ID)
		m.usedEstMB -= lru.EstMemMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
		m.evictionsTotal++
		m.mu.Unlock()

		if h != nil {
			_ = h.Close()
		}
		log.Printf("manager event=evict model=%q", lru.ID)
		m.publisher.Publish(Event{Name: "evict", ModelID: lru.ID})

		if time.Now().After(deadline) {
			return nil
		}
		// loop to re-check
	}
}
