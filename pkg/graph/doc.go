/*
Package graph provides a sequential, graph-based orchestration engine for
multi-stage LLM pipelines.

A pipeline is a directed graph of named stages. Each stage receives the
current state and returns a partial update; the engine merges updates into
the state with a caller-supplied reducer, so stages never mutate shared
state directly and can be tested as plain input/output functions.

Branch points use a closed label set: a router function inspects the state
and returns a Label, and the engine resolves it through a branch table
declared at build time. Every declared label must map to a registered stage
(or END), which is checked at Compile time; a router returning a label
outside its table is a runtime RouterError rather than a silent fallthrough.

# Basic Usage

	type State struct{ N int }
	type Update struct{ N *int }

	apply := func(s State, u Update) State {
	    if u.N != nil {
	        s.N = *u.N
	    }
	    return s
	}

	inc := func(ctx graph.Context, s State) (Update, error) {
	    n := s.N + 1
	    return Update{N: &n}, nil
	}

	g := graph.New[State, Update](apply).
	    AddStage("inc", inc).
	    AddEdge("inc", graph.END).
	    SetEntry("inc")

	compiled, err := g.Compile()
	if err != nil {
	    log.Fatal(err)
	}
	final, err := compiled.Run(graph.NewContext(context.Background()), State{})

Execution is strictly sequential: one stage completes, its update is merged,
and only then is the next stage selected. Cycles are permitted (a branch
table may route back to an earlier stage) but must be guarded by state the
router can observe; the engine additionally enforces a structural step
ceiling (WithMaxSteps) so a misbehaving router cannot loop forever.
*/
package graph
