// Package fairness scores generated text for toxicity, reading complexity,
// and detected bias.
package fairness

import (
	"context"
	"log/slog"

	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/prompt"
)

// ToxicityThreshold is the score (out of 10) above which an answer is
// considered problematic by callers that gate on toxicity.
const ToxicityThreshold = 3.0

// Metrics is the fairness verdict attached to a finalized answer.
// Scores range 0-10; the patient-facing complexity target is below 5.
type Metrics struct {
	ToxicityScore   float64 `json:"toxicity_score"`
	ComplexityScore float64 `json:"complexity_score"`
	BiasDetected    bool    `json:"bias_detected"`
	Reasoning       string  `json:"reasoning"`
}

// fallbackMetrics is returned when the audit model fails entirely.
// Neutral midpoint complexity, nothing flagged.
var fallbackMetrics = Metrics{
	ToxicityScore:   0.0,
	ComplexityScore: 5.0,
	BiasDetected:    false,
	Reasoning:       "Audit failed.",
}

const auditTemplate = `You are an AI Ethics Auditor. Analyze the following medical text written for a patient.

Text: "${text}"

Evaluate strictly:
1. Toxicity: Is it rude, harmful, or judgmental? Score 0 (safe) to 10 (hate speech).
2. Complexity: Is it full of jargon (10) or simple plain language (0)?
3. Bias: any assumptions based on gender, race, or culture?

Reply with JSON ONLY in this exact shape:
{"toxicity_score": 0.0, "complexity_score": 0.0, "bias_detected": false, "reasoning": "one or two sentences"}`

// Auditor scores text with a strict-temperature LLM call.
type Auditor struct {
	client llm.Client
	logger *slog.Logger
}

// NewAuditor creates a fairness auditor.
func NewAuditor(client llm.Client, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{client: client, logger: logger}
}

// Audit scores the given text. It never fails: on backend error or
// unparseable output it returns the neutral fallback metrics, since the
// audit enriches a finalized answer rather than gating it.
func (a *Auditor) Audit(ctx context.Context, text string) Metrics {
	rendered := prompt.Expand(auditTemplate, map[string]any{"text": text})

	resp, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: rendered},
		},
		Temperature: llm.TemperatureStrict,
	})
	if err != nil {
		a.logger.Warn("fairness audit call failed", "error", err)
		return fallbackMetrics
	}

	metrics, ok := llm.DecodeJSON(resp.Content, fallbackMetrics)
	if !ok {
		a.logger.Warn("fairness audit returned unparseable output")
	}
	return metrics
}
