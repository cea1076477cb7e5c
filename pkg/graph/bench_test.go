package graph

import (
	"fmt"
	"testing"
)

// buildLinearGraph creates an n-stage linear pipeline.
func buildLinearGraph(n int) *CompiledGraph[Counter, Delta] {
	g := New[Counter, Delta](applyDelta)
	for i := 0; i < n; i++ {
		g.AddStage(fmt.Sprintf("s%d", i), addOne)
	}
	for i := 0; i < n-1; i++ {
		g.AddEdge(fmt.Sprintf("s%d", i), fmt.Sprintf("s%d", i+1))
	}
	g.AddEdge(fmt.Sprintf("s%d", n-1), END)
	g.SetEntry("s0")

	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

// BenchmarkRun_Linear_5 runs a 5-stage linear pipeline.
func BenchmarkRun_Linear_5(b *testing.B) {
	compiled := buildLinearGraph(5)
	ctx := testCtx()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, Counter{})
	}
}

// BenchmarkRun_Linear_50 runs a 50-stage linear pipeline.
func BenchmarkRun_Linear_50(b *testing.B) {
	compiled := buildLinearGraph(50)
	ctx := testCtx()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, Counter{})
	}
}

// BenchmarkRun_Branching runs a pipeline with a branch table.
func BenchmarkRun_Branching(b *testing.B) {
	route := func(ctx Context, s Counter) Label {
		if s.Value%2 == 0 {
			return "even"
		}
		return "odd"
	}

	compiled, err := New[Counter, Delta](applyDelta).
		AddStage("classify", addOne).
		AddStage("even", addOne).
		AddStage("odd", addOne).
		AddBranch("classify", route, map[Label]string{
			"even": "even",
			"odd":  "odd",
		}).
		AddEdge("even", END).
		AddEdge("odd", END).
		SetEntry("classify").
		Compile()
	if err != nil {
		b.Fatal(err)
	}

	ctx := testCtx()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, Counter{Value: i})
	}
}

// BenchmarkRun_Loop runs a bounded cycle (3 iterations per run).
func BenchmarkRun_Loop(b *testing.B) {
	route := func(ctx Context, s Counter) Label {
		if s.Value >= 3 {
			return "finish"
		}
		return "again"
	}

	compiled, err := New[Counter, Delta](applyDelta).
		AddStage("work", addOne).
		AddBranch("work", route, map[Label]string{
			"again":  "work",
			"finish": END,
		}).
		SetEntry("work").
		Compile()
	if err != nil {
		b.Fatal(err)
	}

	ctx := testCtx()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, Counter{})
	}
}

// BenchmarkCompile measures graph compilation cost.
func BenchmarkCompile(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = buildLinearGraph(10)
	}
}
