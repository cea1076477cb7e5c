package agent

import (
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/prompt"
	"github.com/medgraph/medgraph/pkg/graph"
)

// generalChat answers non-medical conversation over the transcript.
// Single model call, no retrieval, no safety loop.
func (p *Pipeline) generalChat(ctx graph.Context, s State) (Update, error) {
	messages := make([]llm.Message, 0, len(s.Transcript)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: generalChatSystem})
	messages = append(messages, s.Transcript...)

	resp, err := p.client.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: llm.TemperatureCreative,
	})
	if err != nil {
		return Update{}, err
	}

	return Update{Draft: ref(resp.Content)}, nil
}

// simpleMedical is the fast path for short factual questions: one direct
// call, bypassing fact-extraction, profiling, and audit entirely.
func (p *Pipeline) simpleMedical(ctx graph.Context, s State) (Update, error) {
	rendered := prompt.Expand(simpleMedicalTemplate, map[string]any{
		"query":    s.Query,
		"language": s.Profile.Language(),
	})

	resp, err := p.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: rendered}},
		Temperature: llm.TemperatureStrict,
	})
	if err != nil {
		return Update{}, err
	}

	return Update{Draft: ref(scrubOpener(resp.Content))}, nil
}
