package engine

import (
	"errors"
	"fmt"
)

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a request validation failure, the
// client-correctable kind.
func IsValidation(err error) bool {
	var ve *validationError
	return errors.As(err, &ve)
}

// ContextOverflowError reports that prompt plus generated tokens hit the
// model context window. Overflow is a failure, not a finish reason: the error
// carries the counts produced up to the point of overflow.
type ContextOverflowError struct {
	PromptTokens     int
	CompletionTokens int
	ContextLen       int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("engine: context window overflow: %d prompt + %d completion tokens against window %d",
		e.PromptTokens, e.CompletionTokens, e.ContextLen)
}

// IsContextOverflow reports whether err is a context window overflow.
func IsContextOverflow(err error) bool {
	var oe *ContextOverflowError
	return errors.As(err, &oe)
}
