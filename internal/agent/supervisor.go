package agent

import (
	"strings"

	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/prompt"
	"github.com/medgraph/medgraph/pkg/graph"
)

// routeDecision is the supervisor's structured output schema.
type routeDecision struct {
	NextStep string `json:"next_step"`
}

// medicalKeywords drive the deterministic routing fallback when the model
// does not emit parseable JSON. Presence of any keyword routes to the full
// pipeline; absence routes to general chat.
var medicalKeywords = []string{
	"medicine", "medication", "drug", "prescription", "pill", "tablet",
	"dose", "dosage", "symptom", "disease", "diagnosis", "treatment",
	"therapy", "trial", "side effect", "pain", "fever", "doctor",
	"cancer", "diabetes", "infection", "vaccine", "blood", "surgery",
	"paracetamol", "ibuprofen", "antibiotic", "metformin",
}

// supervise classifies the query and selects the pipeline branch.
// It also resets the retry budget: every new top-level query starts with a
// fresh iteration count, and the user turn is appended to the transcript
// here, at the single entry point of every run.
func (p *Pipeline) supervise(ctx graph.Context, s State) (Update, error) {
	rendered := prompt.Expand(supervisorTemplate, map[string]any{"query": s.Query})

	update := Update{
		Messages:   []llm.Message{{Role: llm.RoleUser, Content: s.Query}},
		Iterations: ref(0),
	}

	resp, err := p.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: rendered}},
		Temperature: llm.TemperatureStrict,
	})
	if err != nil {
		return Update{}, err
	}

	decision, ok := llm.DecodeJSON(resp.Content, routeDecision{})
	route := normalizeRoute(decision.NextStep)
	if !ok || route == "" {
		route = classifyByKeywords(s.Query)
		ctx.Logger().Warn("supervisor output unparseable, using keyword fallback",
			"route", string(route))
	}

	update.NextStep = ref(route)
	return update, nil
}

// routeNext resolves the supervisor's decision to a branch label.
func (p *Pipeline) routeNext(_ graph.Context, s State) graph.Label {
	return s.NextStep
}

// normalizeRoute maps a model-emitted label onto the closed route set.
// Returns "" for anything unrecognized.
func normalizeRoute(raw string) graph.Label {
	switch graph.Label(strings.ToUpper(strings.TrimSpace(raw))) {
	case RouteGeneralChat:
		return RouteGeneralChat
	case RouteSimpleMedical:
		return RouteSimpleMedical
	case RouteComplexMedical:
		return RouteComplexMedical
	}
	return ""
}

// classifyByKeywords is the deterministic fallback router: same query in,
// same label out, guaranteeing the supervisor always terminates with a
// valid branch.
func classifyByKeywords(query string) graph.Label {
	lowered := strings.ToLower(query)
	for _, kw := range medicalKeywords {
		if strings.Contains(lowered, kw) {
			return RouteComplexMedical
		}
	}
	return RouteGeneralChat
}
