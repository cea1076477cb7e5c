package agent

import (
	"strings"

	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/prompt"
	"github.com/medgraph/medgraph/pkg/graph"
)

// disallowedOpeners are prefixes a finished draft must never start with.
// The check is a case-insensitive prefix match on the first sentence.
var disallowedOpeners = []string{
	"hello",
	"as an ai",
	"here is",
}

// translate synthesizes the patient-facing draft from the facts, the
// communication strategy, and any critique feedback from a prior audit.
// On retries the feedback is rendered verbatim into the prompt so the
// model can self-correct against the same facts and strategy.
func (p *Pipeline) translate(ctx graph.Context, s State) (Update, error) {
	rendered := prompt.Expand(translatorTemplate, map[string]any{
		"strategy": s.Strategy,
		"feedback": s.Feedback,
		"facts":    s.Facts,
		"language": s.Profile.Language(),
	})

	resp, err := p.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: rendered}},
		Temperature: llm.TemperatureCreative,
	})
	if err != nil {
		return Update{}, err
	}

	return Update{Draft: ref(scrubOpener(resp.Content))}, nil
}

// scrubOpener enforces the no-preamble post-condition: if the text starts
// with a disallowed opener, the offending first sentence is dropped. A few
// passes handle stacked preambles ("Hello! Here is ...").
func scrubOpener(text string) string {
	const maxPasses = 3

	result := strings.TrimSpace(text)
	for pass := 0; pass < maxPasses; pass++ {
		if !startsWithDisallowed(result) {
			return result
		}

		cut := strings.IndexAny(result, ".!?:\n")
		if cut < 0 {
			// The whole text is one offending sentence; nothing salvageable.
			return result
		}
		result = strings.TrimSpace(result[cut+1:])
	}
	return result
}

// startsWithDisallowed reports whether text begins with a disallowed
// opener, ignoring case and leading punctuation.
func startsWithDisallowed(text string) bool {
	lowered := strings.ToLower(strings.TrimLeft(text, "\"'*#- \t\n"))
	for _, opener := range disallowedOpeners {
		if strings.HasPrefix(lowered, opener) {
			return true
		}
	}
	return false
}
