package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medgraph/medgraph/internal/fairness"
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/pkg/graph"
)

// Stage identifiers.
const (
	stageSupervisor    = "supervisor"
	stageGeneralChat   = "general_chat"
	stageSimpleMedical = "simple_medical"
	stageMedicalExpert = "medical_expert"
	stageProfiler      = "profiler"
	stageTranslator    = "translator"
	stageGuardian      = "guardian"
	stageFinalize      = "finalize"
)

// Searcher is the retrieval collaborator contract consumed by the expert
// stage: top-k similar snippets, or the no-results sentinel.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Auditor is the fairness collaborator contract consumed by finalize.
type Auditor interface {
	Audit(ctx context.Context, text string) fairness.Metrics
}

// Options tune the pipeline.
type Options struct {
	// MaxRetries is the draft-audit retry ceiling. Defaults to
	// DefaultMaxRetries when zero or negative.
	MaxRetries int

	// RetrievalK is how many documents the expert stage requests.
	// Defaults to 3 when zero or negative.
	RetrievalK int

	// Logger is used by all stages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Pipeline is the compiled orchestration graph plus its collaborators.
// Safe for concurrent runs: all run-scoped data lives in the State.
type Pipeline struct {
	client   llm.Client
	search   Searcher
	auditor  Auditor
	opts     Options
	logger   *slog.Logger
	compiled *graph.CompiledGraph[State, Update]
}

// New builds and compiles the pipeline graph.
//
// Topology:
//
//	supervisor ─┬─ GENERAL_CHAT ──→ general_chat ──────────────┐
//	            ├─ SIMPLE_MEDICAL → simple_medical ────────────┤
//	            └─ COMPLEX_MEDICAL → medical_expert → profiler │
//	                                   → translator → guardian ┤
//	                 ┌── RETRY (rejected, under ceiling) ──────┘
//	                 translator ←┘      └ FINALIZE → finalize → END
//
// The guardian→translator cycle is the only cycle; it is guarded by the
// iteration ceiling in routeVerdict and backstopped by the engine's step
// limit.
func New(client llm.Client, search Searcher, auditor Auditor, opts Options) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("agent: llm client is required")
	}
	if search == nil {
		return nil, fmt.Errorf("agent: retrieval searcher is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("agent: fairness auditor is required")
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Pipeline{
		client:  client,
		search:  search,
		auditor: auditor,
		opts:    opts,
		logger:  opts.Logger,
	}

	g := graph.New[State, Update](Apply).
		AddStage(stageSupervisor, p.supervise).
		AddStage(stageGeneralChat, p.generalChat).
		AddStage(stageSimpleMedical, p.simpleMedical).
		AddStage(stageMedicalExpert, p.extractFacts).
		AddStage(stageProfiler, p.profile).
		AddStage(stageTranslator, p.translate).
		AddStage(stageGuardian, p.audit).
		AddStage(stageFinalize, p.finalize).
		SetEntry(stageSupervisor).
		AddBranch(stageSupervisor, p.routeNext, map[graph.Label]string{
			RouteGeneralChat:    stageGeneralChat,
			RouteSimpleMedical:  stageSimpleMedical,
			RouteComplexMedical: stageMedicalExpert,
		}).
		AddEdge(stageGeneralChat, stageFinalize).
		AddEdge(stageSimpleMedical, stageFinalize).
		AddEdge(stageMedicalExpert, stageProfiler).
		AddEdge(stageProfiler, stageTranslator).
		AddEdge(stageTranslator, stageGuardian).
		AddBranch(stageGuardian, p.routeVerdict, map[graph.Label]string{
			branchRetry:    stageTranslator,
			branchFinalize: stageFinalize,
		}).
		AddEdge(stageFinalize, graph.END)

	compiled, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("agent: compile pipeline: %w", err)
	}

	p.compiled = compiled
	return p, nil
}

// MaxRetries returns the configured retry ceiling.
func (p *Pipeline) MaxRetries() int {
	return p.opts.MaxRetries
}

// Run executes one query through the graph and returns the final state.
// The state at the point of failure is returned alongside any error.
func (p *Pipeline) Run(ctx context.Context, s State, opts ...graph.RunOption) (State, error) {
	gctx := graph.NewContext(ctx, graph.WithLogger(p.logger))
	return p.compiled.Run(gctx, s, opts...)
}
