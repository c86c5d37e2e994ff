package registry

import (
	"fmt"
	"sort"
	"time"

	"xlorad/pkg/types"
)

// Entry is one registered model: a stable ID bound to a validated source plus
// listing metadata.
type Entry struct {
	ID            string
	Name          string
	Family        string
	ContextLength int
	Created       int64
	Source        ModelSource
}

// Validate checks the entry and its source.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("registry: entry has no id")
	}
	if e.Source == nil {
		return fmt.Errorf("registry: entry %s has no source", e.ID)
	}
	if err := e.Source.Validate(); err != nil {
		return fmt.Errorf("registry: entry %s: %w", e.ID, err)
	}
	return nil
}

// APIModel projects the entry into the wire shape used by model listings.
func (e Entry) APIModel() types.Model {
	m := types.Model{
		ID:            e.ID,
		Name:          e.Name,
		Kind:          e.Source.Kind(),
		Family:        e.Family,
		ContextLength: e.ContextLength,
	}
	m.Created = e.Created
	switch s := e.Source.(type) {
	case GGUF:
		m.Quant, _ = QuantTag(s.QuantizedFilename)
		m.TokenizerID = s.TokModelID
	case XLoraGGUF:
		m.Quant, _ = QuantTag(s.QuantizedFilename)
		m.TokenizerID = s.TokModelID
		m.AdapterID = s.XLoraModelID
	}
	return m
}

// Registry maps model IDs to entries. Listing order is insertion order:
// explicit config entries first, then discovered files.
type Registry struct {
	entries map[string]Entry
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Build assembles a registry from validated explicit entries and permissively
// accepted discovered entries. Explicit entries win on ID collision; duplicate
// explicit IDs are an error.
func Build(explicit, discovered []Entry) (*Registry, error) {
	r := New()
	for _, e := range explicit {
		if err := r.Add(e); err != nil {
			return nil, err
		}
	}
	for _, e := range discovered {
		r.AddDiscovered(e)
	}
	return r, nil
}

// Add validates and registers an explicit entry. Duplicate IDs are rejected.
func (r *Registry) Add(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, exists := r.entries[e.ID]; exists {
		return fmt.Errorf("registry: duplicate model id %q", e.ID)
	}
	if e.Created == 0 {
		e.Created = time.Now().Unix()
	}
	r.entries[e.ID] = e
	r.order = append(r.order, e.ID)
	return nil
}

// AddDiscovered registers a scanner-produced entry without source validation;
// raw files on disk carry no declared metadata to hold against. Entries whose
// ID is already registered are skipped, so explicit config wins.
func (r *Registry) AddDiscovered(e Entry) {
	if e.ID == "" || e.Source == nil {
		return
	}
	if _, exists := r.entries[e.ID]; exists {
		return
	}
	if e.Created == 0 {
		e.Created = time.Now().Unix()
	}
	r.entries[e.ID] = e
	r.order = append(r.order, e.ID)
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of registered models.
func (r *Registry) Len() int { return len(r.entries) }

// List returns entries in listing order.
func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// IDs returns the registered IDs sorted, for log lines and error messages.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
