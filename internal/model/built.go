package model

// Built reports whether this binary carries the native llama backend.
func Built() bool { return llamaBuilt }
