package manager

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Switch kicks off an async ensure of the given model and returns an
// operation id. The work runs on a detached context so it is not canceled
// with the caller; progress is observable via Status() and events.
func (m *Manager) Switch(ctx context.Context, modelID string) (string, error) {
	op := uuid.NewString()
	log.Printf("manager event=switch_start op=%s model=%q", op, modelID)
	m.publisher.Publish(Event{Name: "switch_start", ModelID: modelID, Fields: map[string]any{"op": op}})
	go func() {
		if err := m.EnsureInstance(context.Background(), modelID); err != nil {
			log.Printf("manager event=switch_error op=%s model=%q err=%v", op, modelID, err)
			m.publisher.Publish(Event{Name: "switch_error", ModelID: modelID, Fields: map[string]any{"op": op, "error": err.Error()}})
			return
		}
		m.publisher.Publish(Event{Name: "switch_done", ModelID: modelID, Fields: map[string]any{"op": op}})
	}()
	return op, nil
}
