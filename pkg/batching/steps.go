package batching

import (
	"errors"
	"fmt"
)

// ErrUndeterminableStepCount reports that no positive training-step count
// could be computed from the given inputs.
var ErrUndeterminableStepCount = errors.New("batching: training step count cannot be determined")

// Sized is anything with a determinable length, typically a *Loader.
type Sized interface {
	Len() int
}

// TrainingSteps computes the total number of optimization steps for a
// training loop. A positive maxSteps overrides everything else. Otherwise
// the count is floor(batches / gradAccumulation) × epochs, where batches is
// loader.Len(). Pass a nil loader when the length is unknown.
//
// Returns ErrUndeterminableStepCount when no positive count results.
func TrainingSteps(loader Sized, epochs, maxSteps, gradAccumulation int) (int, error) {
	if maxSteps > 0 {
		return maxSteps, nil
	}
	if gradAccumulation < 1 {
		return 0, fmt.Errorf("batching: gradient accumulation factor must be at least 1, got %d", gradAccumulation)
	}

	steps := 0
	if loader != nil && epochs > 0 {
		steps = loader.Len() / gradAccumulation * epochs
	}
	if steps <= 0 {
		return 0, ErrUndeterminableStepCount
	}
	return steps, nil
}
