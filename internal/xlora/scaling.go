package xlora

// Scaling controls how adapter contributions are blended with the base model
// output. Weight multiplies every adapter contribution globally; 0 disables
// the adapter set entirely. TopK, when set, keeps only the k highest-scoring
// adapters per layer.
type Scaling struct {
	Weight float64
	TopK   *int
}

// DefaultScaling returns the identity blend: full adapter weight, no top-k.
func DefaultScaling() Scaling { return Scaling{Weight: 1.0} }

// Active reports whether the adapter set contributes at all under this
// scaling. A zero weight short-circuits every layer to base-only output.
func (s Scaling) Active() bool { return s.Weight != 0 }

// AdapterScale returns the per-adapter output scale alpha/rank. Rank 0
// adapters scale by 1.
func AdapterScale(alpha float64, rank int) float64 {
	if rank <= 0 {
		return 1.0
	}
	return alpha / float64(rank)
}

// Selector bundles an ordering with the runtime knobs that decide where the
// adapter set applies: the non-granular cutoff and the global scaling.
type Selector struct {
	ord     *Ordering
	cutoff  *int
	scaling Scaling
}

// NewSelector builds a Selector over a validated ordering. cutoff may be nil.
func NewSelector(ord *Ordering, cutoff *int, sc Scaling) *Selector {
	return &Selector{ord: ord, cutoff: cutoff, scaling: sc}
}

// Ordering returns the underlying ordering.
func (s *Selector) Ordering() *Ordering { return s.ord }

// Cutoff returns the non-granular cutoff, nil when unset.
func (s *Selector) Cutoff() *int { return s.cutoff }

// Scaling returns the global scaling configuration.
func (s *Selector) Scaling() Scaling { return s.scaling }

// Adapters returns the adapter names in ordering order.
func (s *Selector) Adapters() []string { return s.ord.Order }

// Active returns the layer depths where adapters apply under the selector's
// cutoff and scaling. Zero scaling weight yields the empty set.
func (s *Selector) Active() map[int]bool {
	if !s.scaling.Active() {
		return map[int]bool{}
	}
	return ActiveLayers(s.ord, s.cutoff)
}
