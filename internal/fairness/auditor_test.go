package fairness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medgraph/medgraph/internal/llm"
)

func scripted(content string, err error) llm.Client {
	return llm.Func(func(_ context.Context, _ llm.Request) (*llm.Response, error) {
		if err != nil {
			return nil, err
		}
		return &llm.Response{Content: content}, nil
	})
}

func TestAudit_ParsesMetrics(t *testing.T) {
	a := NewAuditor(scripted(`{"toxicity_score": 1.5, "complexity_score": 7.0, "bias_detected": true, "reasoning": "dense jargon"}`, nil), nil)

	m := a.Audit(context.Background(), "The pharmacokinetics of biguanides...")

	assert.Equal(t, 1.5, m.ToxicityScore)
	assert.Equal(t, 7.0, m.ComplexityScore)
	assert.True(t, m.BiasDetected)
	assert.Equal(t, "dense jargon", m.Reasoning)
}

func TestAudit_WrappedJSON(t *testing.T) {
	a := NewAuditor(scripted("Here is my assessment:\n```json\n{\"toxicity_score\": 0.0, \"complexity_score\": 3.0, \"bias_detected\": false, \"reasoning\": \"clear\"}\n```", nil), nil)

	m := a.Audit(context.Background(), "Take one tablet daily.")
	assert.Equal(t, 3.0, m.ComplexityScore)
	assert.False(t, m.BiasDetected)
}

func TestAudit_BackendError_Fallback(t *testing.T) {
	a := NewAuditor(scripted("", errors.New("backend down")), nil)

	m := a.Audit(context.Background(), "anything")
	assert.Equal(t, fallbackMetrics, m)
}

func TestAudit_UnparseableOutput_Fallback(t *testing.T) {
	a := NewAuditor(scripted("I would rate this as fairly safe overall.", nil), nil)

	m := a.Audit(context.Background(), "anything")
	assert.Equal(t, fallbackMetrics, m)
}

func TestFallbackMetrics_AreNeutral(t *testing.T) {
	assert.Equal(t, 0.0, fallbackMetrics.ToxicityScore)
	assert.Less(t, fallbackMetrics.ToxicityScore, ToxicityThreshold)
	assert.False(t, fallbackMetrics.BiasDetected)
}
