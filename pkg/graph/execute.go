package graph

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/medgraph/medgraph/pkg/graph/observability"
)

// Run executes the pipeline with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last stage executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Start at the entry point stage
//  2. Check for cancellation
//  3. Execute the current stage and merge its update via the reducer
//  4. Determine the next stage (simple edge or branch table)
//  5. Repeat until END is reached or an error occurs
//
// Example:
//
//	ctx := graph.NewContext(context.Background())
//	final, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // final contains the state at the point of failure
//	}
func (cg *CompiledGraph[S, U]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	startTime := time.Now()
	logger := ctx.Logger()

	observability.LogRunStart(logger, ctx.RunID())

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "pipeline", ctx.RunID())
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var stageCount int
	result, stageCount, runErr = cg.runLoop(execCtx, ctx, state, &cfg)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())

	cfg.metrics.RecordRun(ctx, runErr == nil, duration)

	if runErr != nil {
		lastStage := ""
		switch e := runErr.(type) {
		case *StageError:
			lastStage = e.StageID
		case *MaxStepsError:
			lastStage = e.LastStageID
		case *CancellationError:
			lastStage = e.StageID
		case *PanicError:
			lastStage = e.StageID
		case *RouterError:
			lastStage = e.FromStage
		}
		observability.LogRunError(logger, ctx.RunID(), runErr, durationMs, lastStage)
	} else {
		observability.LogRunComplete(logger, ctx.RunID(), durationMs, stageCount)
	}

	return result, runErr
}

// runLoop drives the sequential execution loop.
// tracingCtx carries span context; gctx is the pipeline Context.
// Returns the final state, stage count, and any error.
func (cg *CompiledGraph[S, U]) runLoop(tracingCtx context.Context, gctx Context, state S, cfg *runConfig) (S, int, error) {
	current := cg.entryPoint
	steps := 0
	stageCount := 0

	for current != END {
		steps++
		if steps > cfg.maxSteps {
			return state, stageCount, &MaxStepsError{
				Max:         cfg.maxSteps,
				LastStageID: current,
				State:       state,
			}
		}

		// Check for cancellation before executing the stage.
		select {
		case <-gctx.Done():
			return state, stageCount, &CancellationError{
				StageID: current,
				State:   state,
				Cause:   gctx.Err(),
			}
		default:
		}

		observability.LogStageStart(gctx.Logger(), current)

		stageTracingCtx := tracingCtx
		var stageSpan trace.Span
		if cfg.tracingEnabled {
			stageTracingCtx, stageSpan = cfg.spans.StartStageSpan(tracingCtx, current)
		}

		stageStart := time.Now()
		var stageErr error
		state, stageErr = cg.executeStage(gctx, current, state)
		stageDuration := time.Since(stageStart)

		cfg.metrics.RecordStageExecution(stageTracingCtx, current, stageDuration, stageErr)

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(stageSpan, stageErr)
		}

		if stageErr != nil {
			observability.LogStageError(gctx.Logger(), current, stageErr)
			return state, stageCount, stageErr
		}
		observability.LogStageComplete(gctx.Logger(), current, float64(stageDuration.Milliseconds()))
		stageCount++

		next, err := cg.nextStage(gctx, state, current)
		if err != nil {
			return state, stageCount, err
		}

		current = next
	}

	return state, stageCount, nil
}

// executeStage runs a single stage with panic recovery and merges its
// update into the state. Returns the new state and any error (including
// wrapped panics).
func (cg *CompiledGraph[S, U]) executeStage(ctx Context, stageID string, state S) (result S, err error) {
	fn, exists := cg.getStage(stageID)
	if !exists {
		// Unreachable if compilation succeeded.
		return state, &StageError{
			StageID: stageID,
			Op:      "lookup",
			Err:     ErrStageNotFound,
		}
	}

	stageCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		stageCtx = ec.withStageID(stageID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				StageID: stageID,
				Value:   r,
				Stack:   string(debug.Stack()),
			}
		}
	}()

	update, err := fn(stageCtx, state)
	if err != nil {
		return state, &StageError{
			StageID: stageID,
			Op:      "execute",
			Err:     err,
		}
	}

	return cg.reduce(state, update), nil
}

// nextStage determines the next stage to execute.
// Branch tables take precedence over simple edges.
func (cg *CompiledGraph[S, U]) nextStage(ctx Context, state S, current string) (string, error) {
	if br, exists := cg.getBranch(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withStageID(current)
		}

		label := br.route(routerCtx, state)

		target, declared := br.targets[label]
		if !declared {
			return "", &RouterError{
				FromStage: current,
				Returned:  label,
				Err:       ErrUnknownBranchLabel,
			}
		}

		return target, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		// Unreachable if compilation succeeded.
		return "", &StageError{
			StageID: current,
			Op:      "routing",
			Err:     ErrNoPathToEnd,
		}
	}

	// Sequential engine: a stage proceeds to exactly one successor.
	return edges[0], nil
}
