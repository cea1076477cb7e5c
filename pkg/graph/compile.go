package graph

import (
	"errors"
	"fmt"
	"log/slog"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing stage
//  3. All edge sources and targets must reference existing stages or END
//  4. All branch sources must reference existing stages
//  5. Every declared branch label must map to an existing stage or END
//  6. The entry point must have a path to END
//
// Unreachable stages (not reachable from the entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S, U]) Compile() (*CompiledGraph[S, U], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.stages[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for from, targets := range g.edges {
		if from != END {
			if _, exists := g.stages[from]; !exists {
				if _, hasBranch := g.branches[from]; !hasBranch {
					errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrStageNotFound, from))
				}
			}
		}

		for _, to := range targets {
			if to != END {
				if _, exists := g.stages[to]; !exists {
					errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrStageNotFound, to))
				}
			}
		}
	}

	for from, br := range g.branches {
		if _, exists := g.stages[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: branch source '%s' does not exist", ErrStageNotFound, from))
		}

		// Every declared label must resolve to a real stage. This is the
		// construction-time half of the closed-branch contract; the runtime
		// half rejects labels outside the table.
		for label, to := range br.targets {
			if to == END {
				continue
			}
			if _, exists := g.stages[to]; !exists {
				errs = append(errs, fmt.Errorf("%w: branch '%s' label %q targets unknown stage '%s'",
					ErrStageNotFound, from, label, to))
			}
		}
	}

	if g.entryPoint != "" {
		if _, exists := g.stages[g.entryPoint]; exists {
			if !g.hasPathToEnd() {
				errs = append(errs, ErrNoPathToEnd)
			}
		}
	}

	g.warnUnreachableStages()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// hasPathToEnd checks if there's a path from the entry point to END using
// reverse reachability. Branch points are followed through their declared
// tables, so a cycle whose only exit is a branch label still counts as
// having a path out.
func (g *Graph[S, U]) hasPathToEnd() bool {
	canReachEnd := make(map[string]bool)
	canReachEnd[END] = true

	changed := true
	for changed {
		changed = false

		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}

		for from, br := range g.branches {
			if canReachEnd[from] {
				continue
			}
			for _, to := range br.targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// warnUnreachableStages logs warnings for stages not reachable from entry.
func (g *Graph[S, U]) warnUnreachableStages() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableStages()

	for id := range g.stages {
		if !reachable[id] {
			slog.Warn("stage is unreachable from entry", "stage_id", id)
		}
	}
}

// findReachableStages returns the set of stages reachable from the entry
// point. Branch points contribute exactly their declared targets; unlike an
// open string dispatch, a router cannot reach a stage outside its table.
func (g *Graph[S, U]) findReachableStages() map[string]bool {
	reachable := make(map[string]bool)

	if g.entryPoint == "" {
		return reachable
	}

	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.edges[current] {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}

		if br, hasBranch := g.branches[current]; hasBranch {
			for _, target := range br.targets {
				if target != END && !reachable[target] {
					reachable[target] = true
					queue = append(queue, target)
				}
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S, U]) buildCompiledGraph() *CompiledGraph[S, U] {
	stages := make(map[string]StageFunc[S, U], len(g.stages))
	for id, fn := range g.stages {
		stages[id] = fn
	}

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = make([]string, len(targets))
		copy(edges[from], targets)
	}

	branches := make(map[string]branch[S], len(g.branches))
	for from, br := range g.branches {
		targets := make(map[Label]string, len(br.targets))
		for label, to := range br.targets {
			targets[label] = to
		}
		branches[from] = branch[S]{route: br.route, targets: targets}
	}

	return &CompiledGraph[S, U]{
		reduce:     g.reduce,
		stages:     stages,
		edges:      edges,
		branches:   branches,
		entryPoint: g.entryPoint,
	}
}
