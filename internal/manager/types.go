package manager

import (
	"time"

	"xlorad/internal/model"
)

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateError    State = "error"
)

// Instance is one live model (one per model id). The handle is set when the
// instance reaches StateReady and stays valid until eviction or unload.
type Instance struct {
	ID       string
	State    State
	LastUsed time.Time
	EstMemMB int
	// Queueing primitives
	genCh   chan struct{} // size 1: single in-flight generation
	queueCh chan struct{} // buffered: queue slots
	// Loaded model backing this instance; nil while loading.
	Handle *model.Handle
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State   State
	Current string
	Err     string
}
