package graph

// END is the terminal stage identifier.
// Use this as an edge or branch target to indicate the pipeline should stop.
const END = "__end__"

// StageFunc is the signature for all pipeline stages.
// A stage receives the execution context and the current state, and returns
// a partial update describing what it changed (or the zero update) plus any
// error. Stages must treat the state as read-only; all writes flow through
// the returned update.
type StageFunc[S, U any] func(ctx Context, state S) (U, error)

// RouterFunc selects the outgoing branch at a branch point.
// It inspects the state and returns one of the labels declared in the
// branch table for that stage. Returning a label outside the table is a
// runtime RouterError.
type RouterFunc[S any] func(ctx Context, state S) Label

// Label identifies one branch of a conditional edge. Each branch point
// declares its own closed set of labels via the branch table passed to
// AddBranch.
type Label string

// Reducer merges a stage's partial update into the state, producing the
// next state. The reducer defines the merge semantics for the state type:
// typically append for transcript-like accumulators and overwrite-when-set
// for scalar fields.
type Reducer[S, U any] func(state S, update U) S
