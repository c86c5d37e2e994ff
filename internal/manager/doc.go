// Package manager coordinates model lifecycle, admission, and generation. It
// is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor wrapper, simple getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, Instance, Snapshot).
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound).
//   - admission.go: per-instance queueing and generation admission.
//   - ensure.go: EnsureInstance lifecycle and loading.
//   - evict.go: eviction logic to fit within the memory budget.
//   - chat.go: chat completion entry points, streaming and blocking.
//   - cache.go: deterministic completion cache.
//   - status.go: Status/Snapshot reporting helpers.
//   - ops.go: background operations (Switch).
//   - unload.go: graceful drain and removal.
//   - lru_persist.go: last-used metadata across restarts.
//   - sanity.go: startup dependency checks.
//
// Instances own loaded model handles (internal/model). Generation runs
// through internal/engine sessions; the manager only decides which handle a
// request lands on and when handles come and go. External packages should
// treat this package as the orchestration layer and use public methods only.
package manager
