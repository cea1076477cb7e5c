// Package retrieval provides the similarity-search collaborator supplying
// candidate reference documents to the fact-extraction stage.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// NoResultsSentinel is returned as the single search result when nothing
// matches. Returning an explicit sentinel rather than an empty slice keeps
// downstream prompt assembly uniform: the fact-extraction stage detects it
// and falls back to general knowledge.
const NoResultsSentinel = "System Info: No matching documents found in the knowledge base."

// Collection names inside the embedded database.
const (
	knowledgeCollection = "medical_knowledge"
	historyCollection   = "interaction_history"
)

// Embedder produces embedding vectors for text.
// The production embedder is the LLM client's embeddings endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Document is one indexed knowledge snippet.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Interaction is one logged question/answer pair.
type Interaction struct {
	Content  string
	Metadata map[string]string
}

// Config holds configuration for the embedded vector database.
type Config struct {
	// Path is the directory for persistent storage.
	// Empty means in-memory only (useful for tests).
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// Store is an embedded vector store over chromem-go.
// It holds two collections: the medical knowledge base queried by the
// fact-extraction stage, and an interaction history log.
type Store struct {
	db       *chromem.DB
	embedder Embedder
	logger   *slog.Logger
}

// NewStore creates a vector store. With a non-empty cfg.Path the database
// persists to disk; otherwise it lives in memory.
func NewStore(cfg Config, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open vector database: %w", err)
		}
	}

	return &Store{db: db, embedder: embedder, logger: logger}, nil
}

// embeddingFunc bridges the Embedder interface to chromem.
func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	c, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return c, nil
}

// Add indexes documents into the knowledge base.
// Documents without an ID get a generated one.
func (s *Store) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	c, err := s.collection(knowledgeCollection)
	if err != nil {
		return err
	}

	converted := make([]chromem.Document, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.New().String()
		}
		converted[i] = chromem.Document{
			ID:       id,
			Content:  d.Content,
			Metadata: d.Metadata,
		}
	}

	if err := c.AddDocuments(ctx, converted, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	s.logger.Debug("indexed documents", "count", len(docs))
	return nil
}

// Search returns the contents of the k most similar knowledge documents.
// When the knowledge base is empty or nothing matches, it returns a single
// element containing NoResultsSentinel.
func (s *Store) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	c, err := s.collection(knowledgeCollection)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= document count.
	count := c.Count()
	if count == 0 {
		return []string{NoResultsSentinel}, nil
	}
	if k > count {
		k = count
	}

	results, err := c.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}

	if len(results) == 0 {
		return []string{NoResultsSentinel}, nil
	}

	snippets := make([]string, len(results))
	for i, r := range results {
		snippets[i] = r.Content
	}

	s.logger.Debug("retrieved documents", "query_len", len(query), "results", len(snippets))
	return snippets, nil
}

// Count returns the number of indexed knowledge documents.
func (s *Store) Count() (int, error) {
	c, err := s.collection(knowledgeCollection)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// LogInteraction records a question/answer pair in the history collection
// so past conversations are retrievable by similarity. Fairness scores are
// attached as metadata when present.
func (s *Store) LogInteraction(ctx context.Context, userInput, answer, source string, toxicity, complexity float64) error {
	c, err := s.collection(historyCollection)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:      uuid.New().String(),
		Content: fmt.Sprintf("User: %s | Assistant: %s", userInput, answer),
		Metadata: map[string]string{
			"type":                "history",
			"source":              source,
			"fairness_toxicity":   fmt.Sprintf("%.1f", toxicity),
			"fairness_complexity": fmt.Sprintf("%.1f", complexity),
		},
	}

	if err := c.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}

// History returns up to k past interactions most similar to the query.
func (s *Store) History(ctx context.Context, query string, k int) ([]Interaction, error) {
	c, err := s.collection(historyCollection)
	if err != nil {
		return nil, err
	}

	count := c.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := c.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	interactions := make([]Interaction, len(results))
	for i, r := range results {
		interactions[i] = Interaction{Content: r.Content, Metadata: r.Metadata}
	}
	return interactions, nil
}
