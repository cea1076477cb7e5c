package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/medgraph/medgraph/internal/fairness"
	"github.com/medgraph/medgraph/internal/llm"
	"github.com/medgraph/medgraph/internal/retrieval"
)

// stubClient dispatches completion calls to per-stage scripts, keyed by a
// distinctive phrase in each stage's prompt. It counts calls per stage so
// tests can assert on the loop structure.
type stubClient struct {
	mu      sync.Mutex
	scripts map[string]func(call int) (string, error)
	calls   map[string]int
}

// Prompt fingerprints, one per stage template.
const (
	stubSupervisor = "Classify the intent"
	stubExpert     = "senior medical expert"
	stubProfiler   = "health communication specialist"
	stubTranslator = "health literacy expert"
	stubGuardian   = "medical safety reviewer"
	stubSimple     = "Answer this medical question directly"
	stubChat       = "friendly health assistant"
	stubFairness   = "AI Ethics Auditor"
)

func newStubClient() *stubClient {
	return &stubClient{
		scripts: make(map[string]func(call int) (string, error)),
		calls:   make(map[string]int),
	}
}

// on registers a fixed reply for a stage.
func (c *stubClient) on(fingerprint, reply string) *stubClient {
	return c.onFunc(fingerprint, func(int) (string, error) { return reply, nil })
}

// onFunc registers a scripted reply; call is 1-based.
func (c *stubClient) onFunc(fingerprint string, fn func(call int) (string, error)) *stubClient {
	c.scripts[fingerprint] = fn
	return c
}

func (c *stubClient) count(fingerprint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[fingerprint]
}

func (c *stubClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	var text strings.Builder
	for _, m := range req.Messages {
		text.WriteString(m.Content)
		text.WriteString("\n")
	}
	all := text.String()

	c.mu.Lock()
	defer c.mu.Unlock()
	for fingerprint, fn := range c.scripts {
		if strings.Contains(all, fingerprint) {
			c.calls[fingerprint]++
			content, err := fn(c.calls[fingerprint])
			if err != nil {
				return nil, err
			}
			return &llm.Response{Content: content}, nil
		}
	}
	return nil, fmt.Errorf("no script for prompt: %.80s", all)
}

// stubSearcher returns a fixed document list or error.
type stubSearcher struct {
	docs  []string
	err   error
	calls int
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func noResultsSearcher() *stubSearcher {
	return &stubSearcher{docs: []string{retrieval.NoResultsSentinel}}
}

// stubAuditor returns fixed metrics.
type stubAuditor struct {
	metrics fairness.Metrics
	calls   int
}

func (a *stubAuditor) Audit(_ context.Context, _ string) fairness.Metrics {
	a.calls++
	return a.metrics
}

// newTestPipeline wires a pipeline with stub collaborators. The returned
// stubs can be inspected after a run.
func newTestPipeline(t interface{ Fatalf(string, ...any) }, client *stubClient, search Searcher, opts Options) *Pipeline {
	if search == nil {
		search = &stubSearcher{docs: []string{"NCT001: a relevant trial."}}
	}
	p, err := New(client, search, &stubAuditor{}, opts)
	if err != nil {
		t.Fatalf("pipeline construction failed: %v", err)
	}
	return p
}

// approvingGuardian and friendlyScripts wire the usual happy-path replies.
func happyPathClient() *stubClient {
	return newStubClient().
		on(stubSupervisor, `{"next_step": "COMPLEX_MEDICAL"}`).
		on(stubExpert, "Metformin is contraindicated in severe renal impairment.").
		on(stubProfiler, "Use a calm tone and cooking analogies.").
		on(stubTranslator, "Metformin is not suitable if your kidneys are struggling.").
		on(stubGuardian, `{"status": "APPROVED", "feedback": ""}`)
}
