package ml

import "fmt"

// PredictionError wraps any failure raised inside a model during inference,
// typically a shape mismatch from training/serving drift. It is never
// swallowed or retried: model state is immutable, so a repeat of the same
// input yields the same failure. Callers decide whether to expose the
// diagnostic.
type PredictionError struct {
	Model string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("%s prediction failed: %v", e.Model, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}
