package manager

import (
	"log"
	"time"
)

// Unload initiates a graceful drain of a model instance and removes it.
// The instance moves to draining (rejecting new enqueues), in-flight and
// queued requests get up to drainTimeout to finish, then the handle is
// closed and the entry removed.
func (m *Manager) Unload(modelID string) error {
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}
	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil {
		m.mu.Unlock()
		return ErrModelNotFound(modelID)
	}
	inst.State = StateDraining
	m.mu.Unlock()
	log.Printf("manager event=unload_start model=%q", modelID)
	m.publisher.Publish(Event{Name: "unload_start", ModelID: modelID})

	deadline := time.Now().Add(m.drainTimeout)
	for {
		m.mu.RLock()
		qlen := len(inst.queueCh)
		inflight := len(inst.genCh)
		m.mu.RUnlock()
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.publisher.Publish(Event{Name: "unload_timeout", ModelID: modelID, Fields: map[string]any{"inflight": inflight, "queue": qlen}})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	m.mu.Lock()
	var closeErr error
	if inst2 := m.instances[modelID]; inst2 != nil {
		m.usedEstMB -= inst2.EstMemMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
		if inst2.Handle != nil {
			closeErr = inst2.Handle.Close()
		}
	}
	delete(m.instances, modelID)
	m.mu.Unlock()
	m.saveLRUMetadata()

	log.Printf("manager event=unload_done model=%q", modelID)
	m.publisher.Publish(Event{Name: "unload_done", ModelID: modelID})
	return closeErr
}
