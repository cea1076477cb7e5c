package agent

import (
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/pkg/graph"
)

// finalize publishes the draft: the answer joins the transcript as the
// assistant turn and the fairness audit result is attached to the state.
// This is the terminal stage of every branch; it runs even when the
// guardian still rejects the draft after the last retry.
func (p *Pipeline) finalize(ctx graph.Context, s State) (Update, error) {
	metrics := p.auditor.Audit(ctx, s.Draft)

	return Update{
		Messages: []llm.Message{{Role: llm.RoleAssistant, Content: s.Draft}},
		Fairness: &metrics,
	}, nil
}
