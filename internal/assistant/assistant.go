// Package assistant is the application boundary: it joins the agent
// pipeline with session persistence, the knowledge store, and the vision
// analyzer, and exposes one-call operations for callers.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medgraph/medgraph/internal/agent"
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/retrieval"
	"github.com/medgraph/medgraph/internal/session"
	"github.com/medgraph/medgraph/internal/vision"
	"github.com/medgraph/medgraph/pkg/graph"
)

// Request is one user turn.
type Request struct {
	// SessionID selects the conversation. Empty means a one-shot query
	// with no history and no persistence.
	SessionID string

	// Query is the user's message.
	Query string

	// Profile carries optional demographic attributes (age, language,
	// education) used to adapt the answer.
	Profile agent.Profile

	// Image is an optional prescription or medication-box photo. When
	// set, its extracted text is injected into the run as document
	// context.
	Image []byte
}

// Response is the finished answer plus run telemetry.
type Response struct {
	Answer     string
	Route      graph.Label
	Safety     agent.SafetyStatus
	Iterations int
	Toxicity   float64
	Complexity float64
}

// Assistant orchestrates one conversation turn end to end.
type Assistant struct {
	pipeline *agent.Pipeline
	sessions session.Store
	store    *retrieval.Store
	vision   *vision.Analyzer
	logger   *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Assistant)

// WithSessions enables transcript persistence.
func WithSessions(store session.Store) Option {
	return func(a *Assistant) { a.sessions = store }
}

// WithVision enables prescription image analysis.
func WithVision(analyzer *vision.Analyzer) Option {
	return func(a *Assistant) { a.vision = analyzer }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) { a.logger = logger }
}

// New builds an Assistant. The pipeline and knowledge store are required;
// sessions and vision are optional.
func New(pipeline *agent.Pipeline, store *retrieval.Store, opts ...Option) (*Assistant, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("assistant: pipeline is required")
	}
	if store == nil {
		return nil, fmt.Errorf("assistant: knowledge store is required")
	}
	a := &Assistant{
		pipeline: pipeline,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Answer runs one turn through the pipeline and returns the finished
// answer. History is loaded from the session store before the run and the
// user/assistant pair is appended after it; both are skipped when no
// session store is configured or SessionID is empty.
func (a *Assistant) Answer(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("assistant: empty query")
	}

	history, err := a.loadHistory(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("assistant: load history: %w", err)
	}

	state := agent.NewState(req.Query, req.Profile, history)

	if len(req.Image) > 0 {
		docText, err := a.extractDocument(ctx, req.Image)
		if err != nil {
			return nil, fmt.Errorf("assistant: analyze image: %w", err)
		}
		state.DocumentContext = docText
	}

	final, err := a.pipeline.Run(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("assistant: run pipeline: %w", err)
	}

	resp := &Response{
		Answer:     final.Draft,
		Route:      final.NextStep,
		Safety:     final.Safety,
		Iterations: final.Iterations,
	}
	if final.Fairness != nil {
		resp.Toxicity = final.Fairness.ToxicityScore
		resp.Complexity = final.Fairness.ComplexityScore
	}

	a.persistTurn(req, resp)
	a.logInteraction(ctx, req, final)

	return resp, nil
}

// AnswerPrescription extracts text from a prescription image and answers
// the query with that text as document context. The extraction runs under
// its own timeout so a stalled vision backend cannot hold the turn open.
func (a *Assistant) AnswerPrescription(ctx context.Context, req Request) (*Response, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("assistant: no image provided")
	}
	return a.Answer(ctx, req)
}

func (a *Assistant) extractDocument(ctx context.Context, image []byte) (string, error) {
	if a.vision == nil {
		return "", fmt.Errorf("vision analysis not configured")
	}
	vctx, cancel := context.WithTimeout(ctx, vision.DefaultExtractionTimeout)
	defer cancel()

	chunks, err := a.vision.ExtractText(vctx, image)
	if err != nil {
		return "", err
	}
	return vision.Collect(chunks)
}

func (a *Assistant) loadHistory(sessionID string) ([]llm.Message, error) {
	if a.sessions == nil || sessionID == "" {
		return nil, nil
	}
	entries, err := a.sessions.Read(sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]llm.Message, 0, len(entries))
	for _, e := range entries {
		history = append(history, llm.Message{
			Role:    llm.Role(e.Role),
			Content: e.Content,
		})
	}
	return history, nil
}

// persistTurn and logInteraction are best-effort: a storage hiccup must
// not lose an answer that was already produced.
func (a *Assistant) persistTurn(req Request, resp *Response) {
	if a.sessions == nil || req.SessionID == "" {
		return
	}
	if err := a.sessions.Append(req.SessionID, string(llm.RoleUser), req.Query); err != nil {
		a.logger.Warn("failed to persist user turn", "session_id", req.SessionID, "error", err)
		return
	}
	if err := a.sessions.Append(req.SessionID, string(llm.RoleAssistant), resp.Answer); err != nil {
		a.logger.Warn("failed to persist assistant turn", "session_id", req.SessionID, "error", err)
	}
}

func (a *Assistant) logInteraction(ctx context.Context, req Request, final agent.State) {
	toxicity, complexity := 0.0, 0.0
	if final.Fairness != nil {
		toxicity = final.Fairness.ToxicityScore
		complexity = final.Fairness.ComplexityScore
	}
	err := a.store.LogInteraction(ctx, req.Query, final.Draft, string(final.NextStep), toxicity, complexity)
	if err != nil {
		a.logger.Warn("failed to log interaction", "error", err)
	}
}
