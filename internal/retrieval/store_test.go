package retrieval

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder is a deterministic fake: character trigram counts, so
// similar texts land near each other without a model server.
func hashEmbedder() Embedder {
	return EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
		const dims = 64
		vec := make([]float32, dims)
		for i := 0; i+3 <= len(text); i++ {
			h := 0
			for _, c := range []byte(text[i : i+3]) {
				h = h*31 + int(c)
			}
			vec[((h%dims)+dims)%dims]++
		}
		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		scale := float32(1 / math.Sqrt(float64(norm)))
		for i := range vec {
			vec[i] *= scale
		}
		return vec, nil
	})
}

func newTestStore(t *testing.T) *Store {
	s, err := NewStore(Config{}, hashEmbedder(), nil)
	require.NoError(t, err)
	return s
}

func TestNewStore_RequiresEmbedder(t *testing.T) {
	_, err := NewStore(Config{}, nil, nil)
	assert.Error(t, err)
}

func TestSearch_EmptyStore_ReturnsSentinel(t *testing.T) {
	s := newTestStore(t)

	docs, err := s.Search(context.Background(), "anything at all", 3)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, NoResultsSentinel, docs[0])
}

func TestSearch_InvalidArguments(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Search(context.Background(), "query", 0)
	assert.Error(t, err)

	_, err = s.Search(context.Background(), "", 3)
	assert.Error(t, err)
}

func TestSearch_ReturnsIndexedContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []Document{
		{ID: "MED001", Content: "Paracetamol is an analgesic and antipyretic."},
		{ID: "MED002", Content: "Metformin is a first-line treatment for type 2 diabetes."},
	}))

	docs, err := s.Search(ctx, "Metformin is a first-line treatment for type 2 diabetes.", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Metformin is a first-line treatment for type 2 diabetes.", docs[0])
}

// TestSearch_KCappedAtCount verifies requesting more results than documents
// does not error.
func TestSearch_KCappedAtCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []Document{
		{Content: "only one document in the base"},
	}))

	docs, err := s.Search(ctx, "document", 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestAdd_GeneratesMissingIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []Document{
		{Content: "no id supplied"},
		{Content: "also no id"},
	}))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Seed(ctx))
	first, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, len(starterDocs), first)

	// A second seed must not duplicate.
	require.NoError(t, s.Seed(ctx))
	second, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSeed_SkipsNonEmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []Document{{Content: "pre-existing"}}))
	require.NoError(t, s.Seed(ctx))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLogInteraction_And_History(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Interaction history must not leak into knowledge search.
	require.NoError(t, s.LogInteraction(ctx,
		"What is the dose of paracetamol?",
		"500mg to 1000mg every 4-6 hours.",
		"simple_medical", 0.5, 4.0))

	docs, err := s.Search(ctx, "paracetamol dose", 3)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, NoResultsSentinel, docs[0])

	history, err := s.History(ctx, "What is the dose of paracetamol?", 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Content, "paracetamol")
	assert.Equal(t, "simple_medical", history[0].Metadata["source"])
	assert.Equal(t, "0.5", history[0].Metadata["fairness_toxicity"])
	assert.Equal(t, "4.0", history[0].Metadata["fairness_complexity"])
}

func TestHistory_Empty(t *testing.T) {
	s := newTestStore(t)

	history, err := s.History(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, history)
}
