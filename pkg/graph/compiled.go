package graph

// CompiledGraph is an immutable, executable pipeline.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can run multiple independent executions
// concurrently: all run-scoped data lives in the state value threaded
// through Run, never in the graph itself.
type CompiledGraph[S, U any] struct {
	reduce     Reducer[S, U]
	stages     map[string]StageFunc[S, U]
	edges      map[string][]string
	branches   map[string]branch[S]
	entryPoint string
}

// EntryPoint returns the entry stage ID.
func (cg *CompiledGraph[S, U]) EntryPoint() string {
	return cg.entryPoint
}

// StageIDs returns all stage identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph[S, U]) StageIDs() []string {
	ids := make([]string, 0, len(cg.stages))
	for id := range cg.stages {
		ids = append(ids, id)
	}
	return ids
}

// HasStage checks if a stage exists in the graph.
func (cg *CompiledGraph[S, U]) HasStage(id string) bool {
	_, exists := cg.stages[id]
	return exists
}

// Successors returns the stage IDs reachable from the given stage via
// simple (non-branch) edges. Returns nil for END or unknown stages.
func (cg *CompiledGraph[S, U]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// IsBranchPoint returns true if the stage has a branch table.
func (cg *CompiledGraph[S, U]) IsBranchPoint(id string) bool {
	_, exists := cg.branches[id]
	return exists
}

// BranchLabels returns the declared labels for a branch point, or nil if
// the stage is not a branch point. The order is not guaranteed.
func (cg *CompiledGraph[S, U]) BranchLabels(id string) []Label {
	br, exists := cg.branches[id]
	if !exists {
		return nil
	}
	labels := make([]Label, 0, len(br.targets))
	for label := range br.targets {
		labels = append(labels, label)
	}
	return labels
}

// getStage returns the stage function for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph[S, U]) getStage(id string) (StageFunc[S, U], bool) {
	fn, exists := cg.stages[id]
	return fn, exists
}

// getBranch returns the branch for the given stage.
// Used internally by the executor.
func (cg *CompiledGraph[S, U]) getBranch(id string) (branch[S], bool) {
	br, exists := cg.branches[id]
	return br, exists
}
