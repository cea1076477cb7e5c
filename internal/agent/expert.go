package agent

import (
	"strings"

	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/prompt"
	"github.com/medgraph/medgraph/internal/retrieval"
	"github.com/medgraph/medgraph/pkg/graph"
)

// refusalMarkers identify a model answer that declined instead of
// answering. The expert stage must never surface one of these.
var refusalMarkers = []string{
	"i cannot answer",
	"i can't answer",
	"cannot provide an answer",
	"unable to answer",
	"without the documents",
	"without documents",
	"no documents were provided",
	"i do not have enough information",
	"i don't have enough information",
}

// extractFacts produces the technical medical findings, consulting the
// retrieval store first. Empty retrieval is a normal input state, not an
// error: the stage answers from general knowledge. If the model refuses
// anyway, the refusal attempt is discarded and the call is repeated once
// with an explicit general-knowledge instruction. Never returning a
// refusal is a hard requirement of this stage.
func (p *Pipeline) extractFacts(ctx graph.Context, s State) (Update, error) {
	docs, err := p.search.Search(ctx, s.Query, p.opts.RetrievalK)
	if err != nil {
		return Update{}, err
	}

	docContext := ""
	if s.DocumentContext != "" {
		docContext = "Prescription context extracted from the user's document:\n" + s.DocumentContext + "\n"
	}

	noResults := len(docs) == 1 && docs[0] == retrieval.NoResultsSentinel

	var rendered string
	if noResults {
		rendered = prompt.Expand(expertGeneralKnowledgeTemplate, map[string]any{
			"query":            s.Query,
			"document_context": docContext,
		})
	} else {
		rendered = prompt.Expand(expertTemplate, map[string]any{
			"query":            s.Query,
			"document_context": docContext,
			"documents":        strings.Join(docs, "\n"),
		})
	}

	resp, err := p.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: rendered}},
		Temperature: llm.TemperatureStrict,
	})
	if err != nil {
		return Update{}, err
	}

	facts := resp.Content
	if isRefusal(facts) {
		ctx.Logger().Warn("expert stage refused, retrying with general-knowledge instruction")

		retryPrompt := prompt.Expand(expertGeneralKnowledgeTemplate, map[string]any{
			"query":            s.Query,
			"document_context": docContext,
		})
		retryResp, err := p.client.Complete(ctx, llm.Request{
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: retryPrompt}},
			Temperature: llm.TemperatureStrict,
		})
		if err != nil {
			return Update{}, err
		}
		facts = retryResp.Content
	}

	return Update{Facts: ref(facts)}, nil
}

// isRefusal reports whether the text matches a known refusal pattern.
func isRefusal(text string) bool {
	lowered := strings.ToLower(text)
	for _, marker := range refusalMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
