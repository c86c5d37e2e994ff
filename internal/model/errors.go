package model

import (
	"errors"
	"fmt"
)

// LoadKind classifies why a model spec could not be loaded. The set is
// closed; callers branch on it with errors.As.
type LoadKind string

const (
	// MissingWeights: the quantized weights file is absent or not a GGUF.
	MissingWeights LoadKind = "missing_weights"
	// TokenizerUnresolved: neither the explicit override nor the model id
	// yielded a usable tokenizer file.
	TokenizerUnresolved LoadKind = "tokenizer_unresolved"
	// OrderingMismatch: the adapter ordering file is absent or structurally
	// inconsistent with the declared adapter set.
	OrderingMismatch LoadKind = "ordering_mismatch"
)

// LoadError reports a failed model load with its classification.
type LoadError struct {
	Kind    LoadKind
	ModelID string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("model %s: %s: %v", e.ModelID, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErr(kind LoadKind, id string, err error) error {
	return &LoadError{Kind: kind, ModelID: id, Err: err}
}

// AsLoadError unwraps err into a LoadError when it is one.
func AsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsLoadKind reports whether err is a LoadError of the given kind.
func IsLoadKind(err error, kind LoadKind) bool {
	le, ok := AsLoadError(err)
	return ok && le.Kind == kind
}

type unavailableError struct{ msg string }

func (e *unavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable marks a missing backend dependency, e.g. a binary
// built without the native runtime.
func ErrDependencyUnavailable(msg string) error {
	return &unavailableError{msg: msg}
}

// IsDependencyUnavailable reports whether err marks a missing backend
// dependency.
func IsDependencyUnavailable(err error) bool {
	var ue *unavailableError
	return errors.As(err, &ue)
}
