package flow

import "errors"

var (
	// ErrUnknownStep indicates a step name that is not one of the five stages.
	ErrUnknownStep = errors.New("flow: unknown step")

	// ErrInconsistentState indicates a State whose flags disagree with its step.
	ErrInconsistentState = errors.New("flow: inconsistent state")

	// ErrStaleGeneration indicates a cache write from a superseded evaluation.
	ErrStaleGeneration = errors.New("flow: stale generation")
)
