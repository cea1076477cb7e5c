package graph

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state whose update is a delta.
type Counter struct {
	Value int
}

// Delta is the partial update for Counter: add N, optionally record a step.
type Delta struct {
	Add  int
	Step string
}

// Record is a richer state for routing and tracking scenarios.
type Record struct {
	Steps []string
	Label Label
	Tries int
	Done  bool
}

// RecordUpdate appends steps and optionally overwrites fields.
type RecordUpdate struct {
	Steps []string
	Label *Label
	Tries *int
	Done  *bool
}

// Helper reducers

func applyDelta(s Counter, u Delta) Counter {
	s.Value += u.Add
	return s
}

func applyRecord(s Record, u RecordUpdate) Record {
	if len(u.Steps) > 0 {
		steps := make([]string, 0, len(s.Steps)+len(u.Steps))
		steps = append(steps, s.Steps...)
		steps = append(steps, u.Steps...)
		s.Steps = steps
	}
	if u.Label != nil {
		s.Label = *u.Label
	}
	if u.Tries != nil {
		s.Tries = *u.Tries
	}
	if u.Done != nil {
		s.Done = *u.Done
	}
	return s
}

// Helper stage functions

// addOne is a stage that increments the counter by one.
func addOne(ctx Context, s Counter) (Delta, error) {
	return Delta{Add: 1}, nil
}

// makeTrackingStage creates a stage that records its execution.
func makeTrackingStage(name string, tracker *[]string) StageFunc[Record, RecordUpdate] {
	return func(ctx Context, s Record) (RecordUpdate, error) {
		*tracker = append(*tracker, name)
		return RecordUpdate{Steps: []string{name}}, nil
	}
}

// makeFailingStage creates a stage that returns the given error.
func makeFailingStage(err error) StageFunc[Record, RecordUpdate] {
	return func(ctx Context, s Record) (RecordUpdate, error) {
		return RecordUpdate{}, err
	}
}

// makePanicStage creates a stage that panics with the given value.
func makePanicStage(value any) StageFunc[Record, RecordUpdate] {
	return func(ctx Context, s Record) (RecordUpdate, error) {
		panic(value)
	}
}

// noopRecord returns an empty update.
func noopRecord(ctx Context, s Record) (RecordUpdate, error) {
	return RecordUpdate{}, nil
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
