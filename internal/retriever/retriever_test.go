package retriever

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/chatrecall/internal/model"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Name() string    { return "fake" }
func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func storedChunk(id string, sender, content string, embedding []float32) *model.StoredChunk {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.StoredChunk{
		Chunk: model.Chunk{
			ID: id,
			Messages: []model.Message{
				{ID: id + "-m1", Timestamp: ts, Sender: sender, Content: content, Type: model.MessageTypeText},
			},
			Participants: []string{sender},
			StartTime:    ts,
			EndTime:      ts,
			Metadata:     model.ChunkMetadata{MessageCount: 1, ConversationID: "conv"},
		},
		Embedding: embedding,
	}
}

func newTestStore(t *testing.T, chunks ...*model.StoredChunk) vectorstore.Store {
	store, err := vectorstore.New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background(), 3))
	require.NoError(t, store.UpsertBatch(context.Background(), chunks))
	return store
}

func TestRetrieveKeywordBoost(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t,
		storedChunk("c1", "Alice", "we talked about the birthday cake", []float32{0.9, 0.1, 0}),
		storedChunk("c2", "Bob", "nothing relevant here", []float32{0.89, 0.11, 0}),
	)
	r := New(&fakeEmbedder{vector: []float32{1, 0, 0}}, store)

	res, err := r.Retrieve(ctx, "birthday cake", Options{TopK: 5, MinScore: 0.4})
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	require.Equal(t, "c1", res.Chunks[0].Chunk.ID)

	// the boosted score must be at least the raw vector score
	raw, err := store.Search(ctx, []float32{1, 0, 0}, vectorstore.SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.GreaterOrEqual(t, res.Chunks[0].Score, raw[0].Score)
	require.LessOrEqual(t, res.Chunks[0].Score, 1.0)
}

func TestRetrieveKeywordOnlyScoreRange(t *testing.T) {
	ctx := context.Background()
	// orthogonal embedding keeps c2 below the vector floor
	store := newTestStore(t,
		storedChunk("c1", "Alice", "general chit chat", []float32{1, 0, 0}),
		storedChunk("c2", "Bob", "the concert tickets arrived, concert is saturday", []float32{0, 1, 0}),
	)
	r := New(&fakeEmbedder{vector: []float32{1, 0, 0}}, store)

	res, err := r.Retrieve(ctx, "concert tickets", Options{TopK: 5, MinScore: 0.4})
	require.NoError(t, err)

	var keywordOnly *model.ScoredChunk
	for i := range res.Chunks {
		if res.Chunks[i].Chunk.ID == "c2" {
			keywordOnly = &res.Chunks[i]
		}
	}
	require.NotNil(t, keywordOnly)
	require.GreaterOrEqual(t, keywordOnly.Score, 0.6)
	require.LessOrEqual(t, keywordOnly.Score, 0.9)
}

func TestRetrieveNoDuplicatesAndMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t,
		storedChunk("c1", "Alice", "holiday planning for the summer", []float32{0.95, 0.05, 0}),
		storedChunk("c2", "Bob", "holiday photos from last year", []float32{0.9, 0.1, 0}),
		storedChunk("c3", "Carol", "holiday holiday holiday", []float32{0.85, 0.15, 0}),
	)
	r := New(&fakeEmbedder{vector: []float32{1, 0, 0}}, store)

	res, err := r.Retrieve(ctx, "holiday plans", Options{TopK: 10, MinScore: 0.4})
	require.NoError(t, err)

	seen := map[string]bool{}
	for i, item := range res.Chunks {
		require.False(t, seen[item.Chunk.ID], "duplicate chunk id %s", item.Chunk.ID)
		seen[item.Chunk.ID] = true
		if i > 0 {
			require.LessOrEqual(t, item.Score, res.Chunks[i-1].Score)
		}
	}
}

func TestRetrieveShortKeywordNoVectorHits(t *testing.T) {
	ctx := context.Background()
	// all stored vectors orthogonal to the query, keyword "cat" is too short
	// to trigger the lexical stage
	store := newTestStore(t,
		storedChunk("c1", "Alice", "the cat sat on the mat", []float32{0, 1, 0}),
	)
	r := New(&fakeEmbedder{vector: []float32{1, 0, 0}}, store)

	res, err := r.Retrieve(ctx, "cat", Options{TopK: 5, MinScore: 0.4})
	require.NoError(t, err)
	require.Empty(t, res.Chunks)
}

func TestRetrieveTopKTruncation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t,
		storedChunk("c1", "Alice", "a", []float32{0.99, 0.01, 0}),
		storedChunk("c2", "Bob", "b", []float32{0.98, 0.02, 0}),
		storedChunk("c3", "Carol", "c", []float32{0.97, 0.03, 0}),
	)
	r := New(&fakeEmbedder{vector: []float32{1, 0, 0}}, store)

	res, err := r.Retrieve(ctx, "anything interesting", Options{TopK: 2, MinScore: 0.4})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "basic english", query: "What did John say about the party?", want: []string{"john", "party"}},
		{name: "stopwords dropped", query: "when did they say that", want: nil},
		{name: "french elision", query: "Qu'est-ce que l'anniversaire", want: []string{"est-ce", "anniversaire"}},
		{name: "curly apostrophe", query: "John’s birthday", want: []string{"john", "birthday"}},
		{name: "short tokens dropped", query: "go to NY", want: nil},
		{name: "accents preserved", query: "le café préféré", want: []string{"café", "préféré"}},
		{name: "hyphen kept", query: "rendez-vous demain", want: []string{"rendez-vous", "demain"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractKeywords(tt.query))
		})
	}
}

func TestBuildContextBudget(t *testing.T) {
	long := storedChunk("c1", "Alice", "hello world this is a reasonably long message", []float32{1, 0, 0})
	chunks := []model.ScoredChunk{{Chunk: long, Score: 0.9}}

	full := BuildContext(chunks, 8000)
	require.Contains(t, full, "2024-03-01")
	require.Contains(t, full, "Alice")
	require.Contains(t, full, "hello world")

	// tiny budget drops the chunk instead of emitting a useless fragment
	tiny := BuildContext(chunks, 50)
	require.Empty(t, tiny)

	// mid-size budget still fits the whole section
	mid := BuildContext(chunks, 250)
	require.NotEmpty(t, mid)
	require.LessOrEqual(t, len(mid), 250)
}

func TestBuildCitations(t *testing.T) {
	chunk := storedChunk("c1", "Alice", "this is a very long message that should definitely be cut off at fifty characters", []float32{1, 0, 0})
	citations := BuildCitations([]model.ScoredChunk{{Chunk: chunk, Score: 0.8}})
	require.Len(t, citations, 1)
	require.Equal(t, "c1", citations[0].ChunkID)
	require.InDelta(t, 0.8, citations[0].Score, 1e-9)
	require.Equal(t, []string{"Alice"}, citations[0].Participants)
	require.Contains(t, citations[0].Preview, "Alice: ")
	require.Contains(t, citations[0].Preview, "...")
}

func TestBuildContextTruncateRuneBoundary(t *testing.T) {
	chunk := storedChunk("c1", "Alice", strings.Repeat("游", 200), []float32{1, 0, 0})
	chunks := []model.ScoredChunk{{Chunk: chunk, Score: 0.9}}

	for budget := 248; budget <= 252; budget++ {
		out := BuildContext(chunks, budget)
		require.True(t, utf8.ValidString(out), "budget %d", budget)
		require.True(t, strings.HasSuffix(out, "..."), "budget %d", budget)
		require.LessOrEqual(t, len(out), budget)
	}
}
