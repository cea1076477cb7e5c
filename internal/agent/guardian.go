package agent

import (
	"strings"

	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/prompt"
	"github.com/medgraph/medgraph/pkg/graph"
)

// safetyVerdict is the guardian's structured output schema.
type safetyVerdict struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// audit reviews the draft against the source facts.
// The iteration count increments by exactly 1 per invocation regardless of
// the outcome. An unparseable verdict fails open to APPROVED: forward
// progress is worth more than a blocked conversation.
func (p *Pipeline) audit(ctx graph.Context, s State) (Update, error) {
	rendered := prompt.Expand(guardianTemplate, map[string]any{
		"facts": s.Facts,
		"draft": s.Draft,
	})

	update := Update{Iterations: ref(s.Iterations + 1)}

	resp, err := p.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: rendered}},
		Temperature: llm.TemperatureStrict,
	})
	if err != nil {
		return Update{}, err
	}

	verdict, ok := llm.DecodeJSON(resp.Content, safetyVerdict{})
	status := strings.ToUpper(strings.TrimSpace(verdict.Status))
	if !ok || (status != string(SafetyApproved) && status != string(SafetyRejected)) {
		ctx.Logger().Warn("guardian verdict unparseable, failing open to APPROVED")
		update.Safety = ref(SafetyApproved)
		return update, nil
	}

	update.Safety = ref(SafetyStatus(status))
	if status == string(SafetyRejected) {
		feedback := strings.TrimSpace(verdict.Feedback)
		if feedback == "" {
			feedback = "The draft was rejected; improve clarity and keep all safety-critical details."
		}
		update.Feedback = ref(feedback)
	}

	return update, nil
}

// routeVerdict decides between retrying the draft and finalizing.
// A rejection under the retry ceiling re-enters the translator with the
// critique carried forward; everything else finalizes, including a still
// rejected draft once the ceiling is reached.
func (p *Pipeline) routeVerdict(_ graph.Context, s State) graph.Label {
	if s.Safety == SafetyRejected && s.Iterations < p.opts.MaxRetries {
		return branchRetry
	}
	return branchFinalize
}
