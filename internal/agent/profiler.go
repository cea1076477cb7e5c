package agent

import (
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/prompt"
	"github.com/medgraph/medgraph/pkg/graph"
)

// profile derives the communication strategy from the user's demographic
// attributes. The strategy is enrichment, not a mandatory input: on any
// call error the stage logs and continues with an empty strategy rather
// than halting the pipeline.
func (p *Pipeline) profile(ctx graph.Context, s State) (Update, error) {
	rendered := prompt.Expand(profilerTemplate, map[string]any{
		"age":       s.Profile.Age(),
		"language":  s.Profile.Language(),
		"education": s.Profile.Education(),
	})

	resp, err := p.client.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: rendered}},
		Temperature: llm.TemperatureStrict,
	})
	if err != nil {
		ctx.Logger().Warn("profiler call failed, continuing without strategy", "error", err)
		return Update{Strategy: ref("")}, nil
	}

	return Update{Strategy: ref(resp.Content)}, nil
}
