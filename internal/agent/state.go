// Package agent implements the reasoning stages and the orchestration
// pipeline of the medical question-answering assistant.
package agent

import (
	"github.com/medgraph/medgraph/internal/fairness"
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/pkg/graph"
)

// SafetyStatus is the guardian's verdict on the current draft.
type SafetyStatus string

// Safety verdicts. The zero value means the guardian has not run yet.
const (
	SafetyPending  SafetyStatus = ""
	SafetyApproved SafetyStatus = "APPROVED"
	SafetyRejected SafetyStatus = "REJECTED"
)

// Routing labels emitted by the supervisor.
const (
	RouteGeneralChat    graph.Label = "GENERAL_CHAT"
	RouteSimpleMedical  graph.Label = "SIMPLE_MEDICAL"
	RouteComplexMedical graph.Label = "COMPLEX_MEDICAL"
)

// Guardian branch labels.
const (
	branchRetry    graph.Label = "RETRY"
	branchFinalize graph.Label = "FINALIZE"
)

// NoFeedback is the critique sentinel before any audit has rejected a
// draft. The translator prompt renders it verbatim on the first pass.
const NoFeedback = "no prior feedback"

// DefaultMaxRetries is the draft-audit retry ceiling. After this many
// rejections the pipeline force-finalizes the last draft: availability
// over perfection. The value is overridable via Options.MaxRetries.
const DefaultMaxRetries = 3

// Profile carries the demographic and preference attributes used to adapt
// tone and language. Set once per run from caller input; stages only read it.
type Profile map[string]string

// Age returns the profile's age attribute, defaulting to "adult".
func (p Profile) Age() string {
	if v := p["age"]; v != "" {
		return v
	}
	return "adult"
}

// Language returns the answer language, defaulting to English.
func (p Profile) Language() string {
	if v := p["language"]; v != "" {
		return v
	}
	return "English"
}

// Education returns the literacy/education level, defaulting to a general
// audience.
func (p Profile) Education() string {
	if v := p["education"]; v != "" {
		return v
	}
	return "general audience"
}

// State is the shared record threaded through every stage of one run.
// It is created fresh per inbound query; only the transcript history the
// caller re-submits survives between runs.
type State struct {
	// Transcript is the ordered conversation, append-only: the reducer
	// concatenates new messages, never replaces prior ones.
	Transcript []llm.Message

	// Query is the latest user message being answered.
	Query string

	// Profile is the caller-supplied user context, read-only in the graph.
	Profile Profile

	// DocumentContext is OCR-extracted prescription text, when the query
	// came with an image. Empty otherwise.
	DocumentContext string

	// Facts is the technical medical findings from the expert stage.
	Facts string

	// Strategy is the tone/analogy guidance from the profiler stage.
	Strategy string

	// Draft is the current candidate answer; rewritten on each retry.
	Draft string

	// Feedback is what must be fixed in the next draft. Defaults to
	// NoFeedback; overwritten by each guardian pass.
	Feedback string

	// Safety is set by the guardian stage only.
	Safety SafetyStatus

	// Iterations counts guardian evaluations. Starts at 0; incremented by
	// exactly 1 per audit. Retry is only permitted while it is below the
	// ceiling.
	Iterations int

	// NextStep is the branch label chosen by the most recent routing
	// decision; consumed immediately by the executor.
	NextStep graph.Label

	// Fairness is attached to a finalized answer and never mutated after.
	Fairness *fairness.Metrics
}

// NewState builds the initial state for one run.
func NewState(query string, profile Profile, history []llm.Message) State {
	return State{
		Transcript: history,
		Query:      query,
		Profile:    profile,
		Feedback:   NoFeedback,
	}
}

// Update is a stage's partial state update. Nil fields are untouched;
// Messages are appended to the transcript.
type Update struct {
	Messages   []llm.Message
	Facts      *string
	Strategy   *string
	Draft      *string
	Feedback   *string
	Safety     *SafetyStatus
	Iterations *int
	NextStep   *graph.Label
	Fairness   *fairness.Metrics
}

// Apply merges an update into the state: transcript appends, everything
// else overwrites when set. This is the reducer given to the graph engine.
func Apply(s State, u Update) State {
	if len(u.Messages) > 0 {
		// Copy-on-append so concurrent runs sharing a history slice never
		// alias the same backing array.
		transcript := make([]llm.Message, 0, len(s.Transcript)+len(u.Messages))
		transcript = append(transcript, s.Transcript...)
		transcript = append(transcript, u.Messages...)
		s.Transcript = transcript
	}
	if u.Facts != nil {
		s.Facts = *u.Facts
	}
	if u.Strategy != nil {
		s.Strategy = *u.Strategy
	}
	if u.Draft != nil {
		s.Draft = *u.Draft
	}
	if u.Feedback != nil {
		s.Feedback = *u.Feedback
	}
	if u.Safety != nil {
		s.Safety = *u.Safety
	}
	if u.Iterations != nil {
		s.Iterations = *u.Iterations
	}
	if u.NextStep != nil {
		s.NextStep = *u.NextStep
	}
	if u.Fairness != nil {
		s.Fairness = u.Fairness
	}
	return s
}

// ref returns a pointer to v, for building Update literals.
func ref[T any](v T) *T {
	return &v
}
