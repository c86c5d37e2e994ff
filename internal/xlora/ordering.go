// Package xlora implements adapter selection for X-LoRA model stacks: parsing
// and validating ordering files, and deciding at which layer depths the
// adapter set applies for a given non-granular cutoff.
package xlora

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Ordering maps the adapters of an X-LoRA set onto model layers. It is read
// from the external ordering JSON and never mutated after load.
type Ordering struct {
	// BaseModelID names the base model this ordering was produced for.
	BaseModelID string `json:"base_model_id"`
	// Order lists adapter names; layer values index into it.
	Order []string `json:"order"`
	// Layers maps a layer name to the index of its adapter in Order.
	Layers map[string]int `json:"layers"`
}

type mismatchError struct{ msg string }

func (e *mismatchError) Error() string { return e.msg }

func mismatchf(format string, args ...any) error {
	return &mismatchError{msg: fmt.Sprintf(format, args...)}
}

// IsMismatch reports whether err marks an ordering that is structurally
// inconsistent with its adapter set or base model.
func IsMismatch(err error) bool {
	var me *mismatchError
	return errors.As(err, &me)
}

// ParseOrdering decodes and validates ordering JSON.
func ParseOrdering(data []byte) (*Ordering, error) {
	var o Ordering
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("xlora: parse ordering: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// LoadOrdering reads and validates an ordering file.
func LoadOrdering(path string) (*Ordering, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlora: read ordering %s: %w", path, err)
	}
	o, err := ParseOrdering(data)
	if err != nil {
		return nil, fmt.Errorf("xlora: ordering %s: %w", path, err)
	}
	return o, nil
}

// Validate checks structural consistency: a non-empty adapter list, every
// layer index inside it, and a parseable depth in every layer name. It runs
// at load time so no request ever sees an inconsistent ordering.
func (o *Ordering) Validate() error {
	if len(o.Order) == 0 {
		return mismatchf("ordering declares no adapters")
	}
	for name, idx := range o.Layers {
		if idx < 0 || idx >= len(o.Order) {
			return mismatchf("layer %s references adapter %d, ordering has %d", name, idx, len(o.Order))
		}
		if _, err := LayerDepth(name); err != nil {
			return mismatchf("layer %s: no depth in name", name)
		}
	}
	return nil
}

// CheckBaseModel verifies the ordering was produced for the given base model.
// Empty IDs on either side skip the check.
func (o *Ordering) CheckBaseModel(id string) error {
	if id == "" || o.BaseModelID == "" || o.BaseModelID == id {
		return nil
	}
	return mismatchf("ordering built for %s, model is %s", o.BaseModelID, id)
}

// AdapterForLayer returns the adapter name assigned to a layer.
func (o *Ordering) AdapterForLayer(name string) (string, bool) {
	idx, ok := o.Layers[name]
	if !ok || idx < 0 || idx >= len(o.Order) {
		return "", false
	}
	return o.Order[idx], true
}

// Depths returns the sorted set of layer depths the ordering declares.
func (o *Ordering) Depths() []int {
	seen := make(map[int]bool)
	for name := range o.Layers {
		if d, err := LayerDepth(name); err == nil {
			seen[d] = true
		}
	}
	out := make([]int, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// LayerDepth extracts the layer depth from a dotted layer name, taking the
// first numeric segment ("model.layers.17.self_attn.q_proj" -> 17).
func LayerDepth(name string) (int, error) {
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			continue
		}
		if d, err := strconv.Atoi(seg); err == nil {
			return d, nil
		}
	}
	return 0, fmt.Errorf("xlora: no numeric segment in layer name %q", name)
}

// ActiveLayers returns the set of layer depths where the adapter set applies.
// A nil cutoff keeps every declared depth; with a cutoff c, depths >= c fall
// back to base-only output. The result for any cutoff is a subset of the
// nil-cutoff result.
func ActiveLayers(o *Ordering, cutoff *int) map[int]bool {
	active := make(map[int]bool)
	for name := range o.Layers {
		d, err := LayerDepth(name)
		if err != nil {
			// Validate rejects these at load.
			continue
		}
		if cutoff != nil && d >= *cutoff {
			continue
		}
		active[d] = true
	}
	return active
}
