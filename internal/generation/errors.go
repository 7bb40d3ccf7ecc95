package generation

import "fmt"

// GenerationError reports a failed language-model call. Model failures
// are not retried and propagate to the coordinator's caller as a hard
// failure for that query.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
