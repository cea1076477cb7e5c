package assistant

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgraph/medgraph/internal/agent"
	"github.com/medgraph/medgraph/internal/fairness"
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/retrieval"
	"github.com/medgraph/medgraph/internal/session"
)

// scriptedLLM answers each stage's prompt by a distinctive phrase of its
// template.
func scriptedLLM() llm.Client {
	replies := map[string]string{
		"Classify the intent":             `{"next_step": "COMPLEX_MEDICAL"}`,
		"senior medical expert":           "Metformin is contraindicated in severe renal impairment.",
		"health communication specialist": "Calm tone, plain words.",
		"health literacy expert":          "Metformin may not suit weakened kidneys.",
		"medical safety reviewer":         `{"status": "APPROVED", "feedback": ""}`,
		"Answer this medical question":    "500mg every 4-6 hours.",
		"friendly health assistant":       "Happy to chat!",
	}
	return llm.Func(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		var all strings.Builder
		for _, m := range req.Messages {
			all.WriteString(m.Content)
			all.WriteString("\n")
		}
		for phrase, reply := range replies {
			if strings.Contains(all.String(), phrase) {
				return &llm.Response{Content: reply}, nil
			}
		}
		return nil, fmt.Errorf("unscripted prompt: %.60s", all.String())
	})
}

type fixedAuditor struct{ metrics fairness.Metrics }

func (a fixedAuditor) Audit(_ context.Context, _ string) fairness.Metrics { return a.metrics }

func flatEmbedder() retrieval.Embedder {
	return retrieval.EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, 8)
		for i, c := range []byte(text) {
			vec[i%8] += float32(c)
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
		return vec, nil
	})
}

func newTestAssistant(t *testing.T, opts ...Option) (*Assistant, *retrieval.Store) {
	store, err := retrieval.NewStore(retrieval.Config{}, flatEmbedder(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Seed(context.Background()))

	pipeline, err := agent.New(scriptedLLM(), store,
		fixedAuditor{metrics: fairness.Metrics{ToxicityScore: 0.5, ComplexityScore: 4.0}},
		agent.Options{})
	require.NoError(t, err)

	a, err := New(pipeline, store, opts...)
	require.NoError(t, err)
	return a, store
}

func TestAnswer_EndToEnd(t *testing.T) {
	a, store := newTestAssistant(t)

	resp, err := a.Answer(context.Background(), Request{
		Query:   "Can I take metformin with kidney disease?",
		Profile: agent.Profile{"language": "English"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Metformin may not suit weakened kidneys.", resp.Answer)
	assert.Equal(t, agent.SafetyApproved, resp.Safety)
	assert.Equal(t, 1, resp.Iterations)
	assert.Equal(t, 0.5, resp.Toxicity)
	assert.Equal(t, 4.0, resp.Complexity)

	// The interaction is logged for later similarity lookup.
	history, err := store.History(context.Background(), "metformin kidney", 3)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Content, resp.Answer)
}

func TestAnswer_EmptyQuery(t *testing.T) {
	a, _ := newTestAssistant(t)

	_, err := a.Answer(context.Background(), Request{Query: "   "})
	assert.Error(t, err)
}

func TestAnswer_SessionRoundTrip(t *testing.T) {
	sessions := session.NewMemoryStore()
	a, _ := newTestAssistant(t, WithSessions(sessions))

	_, err := a.Answer(context.Background(), Request{
		SessionID: "visit-1",
		Query:     "Can I take metformin with kidney disease?",
	})
	require.NoError(t, err)

	entries, err := sessions.Read("visit-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(llm.RoleUser), entries[0].Role)
	assert.Equal(t, "Can I take metformin with kidney disease?", entries[0].Content)
	assert.Equal(t, string(llm.RoleAssistant), entries[1].Role)

	// A second turn sees the stored history.
	resp, err := a.Answer(context.Background(), Request{
		SessionID: "visit-1",
		Query:     "What about the dosage of that medication?",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Answer)

	entries, err = sessions.Read("visit-1")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestAnswer_NoSessionID_SkipsPersistence(t *testing.T) {
	sessions := session.NewMemoryStore()
	a, _ := newTestAssistant(t, WithSessions(sessions))

	_, err := a.Answer(context.Background(), Request{Query: "Is this medication safe?"})
	require.NoError(t, err)

	entries, err := sessions.Read("")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnswer_ImageWithoutVision(t *testing.T) {
	a, _ := newTestAssistant(t)

	_, err := a.Answer(context.Background(), Request{
		Query: "What is this prescription?",
		Image: []byte{0x89, 'P', 'N', 'G'},
	})
	assert.Error(t, err)
}

func TestAnswerPrescription_RequiresImage(t *testing.T) {
	a, _ := newTestAssistant(t)

	_, err := a.AnswerPrescription(context.Background(), Request{Query: "analyze this"})
	assert.Error(t, err)
}

func TestNew_RequiresPipelineAndStore(t *testing.T) {
	store, err := retrieval.NewStore(retrieval.Config{}, flatEmbedder(), nil)
	require.NoError(t, err)

	_, err = New(nil, store)
	assert.Error(t, err)

	pipeline, err := agent.New(scriptedLLM(), store, fixedAuditor{}, agent.Options{})
	require.NoError(t, err)

	_, err = New(pipeline, nil)
	assert.Error(t, err)
}
