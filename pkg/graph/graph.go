package graph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating pipelines.
// Use New to create a graph, then chain AddStage, AddEdge, AddBranch, and
// SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Construct it from a single
// goroutine, then call Compile() to obtain an immutable CompiledGraph that
// can be shared across concurrent runs.
//
// Example:
//
//	g := graph.New[State, Update](apply).
//	    AddStage("classify", classify).
//	    AddStage("answer", answer).
//	    AddBranch("classify", route, map[graph.Label]string{
//	        "simple":  "answer",
//	        "nothing": graph.END,
//	    }).
//	    AddEdge("answer", graph.END).
//	    SetEntry("classify")
//
//	compiled, err := g.Compile()
type Graph[S, U any] struct {
	mu         sync.RWMutex
	reduce     Reducer[S, U]
	stages     map[string]StageFunc[S, U]
	edges      map[string][]string
	branches   map[string]branch[S]
	entryPoint string
}

// branch pairs a router with its closed label table.
type branch[S any] struct {
	route   RouterFunc[S]
	targets map[Label]string
}

// New creates a graph builder for state type S and update type U.
// The reducer defines how a stage's partial update is merged into the
// state; it is applied by the executor after every stage.
//
// Panics if reduce is nil.
func New[S, U any](reduce Reducer[S, U]) *Graph[S, U] {
	if reduce == nil {
		panic("graph: reducer cannot be nil")
	}
	return &Graph[S, U]{
		reduce:   reduce,
		stages:   make(map[string]StageFunc[S, U]),
		edges:    make(map[string][]string),
		branches: make(map[string]branch[S]),
	}
}

// AddStage adds a named stage to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S, U]) AddStage(id string, fn StageFunc[S, U]) *Graph[S, U] {
	if id == "" {
		panic("graph: stage ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("graph: stage ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("graph: stage ID cannot contain whitespace")
	}

	if fn == nil {
		panic("graph: stage function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.stages[id]; exists {
		panic(fmt.Sprintf("graph: duplicate stage ID: %s", id))
	}

	g.stages[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one stage to another.
// The target can be a stage ID or graph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here, so edges can be
// added in any order.
func (g *Graph[S, U]) AddEdge(from, to string) *Graph[S, U] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddBranch adds a branch point: after the given stage completes, the
// router inspects the state and returns a Label, which the executor
// resolves through the targets table. The table is the closed set of
// branches for this stage; every declared label must map to a registered
// stage or graph.END (checked at Compile), and a router returning a label
// not in the table is a runtime RouterError.
//
// A stage can have either simple edges or a branch, not both. If both are
// present, the branch takes precedence.
//
// Panics if route is nil or targets is empty.
func (g *Graph[S, U]) AddBranch(from string, route RouterFunc[S], targets map[Label]string) *Graph[S, U] {
	if route == nil {
		panic("graph: router function cannot be nil")
	}
	if len(targets) == 0 {
		panic("graph: branch table cannot be empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Copy the table so later caller mutation cannot bypass Compile checks.
	copied := make(map[Label]string, len(targets))
	for label, to := range targets {
		copied[label] = to
	}

	g.branches[from] = branch[S]{route: route, targets: copied}
	return g
}

// SetEntry designates the entry point stage.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S, U]) SetEntry(id string) *Graph[S, U] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
