package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/chatrecall/internal/model"
)

func buildTestChunk(id, conversationID string, participants []string, start time.Time, embedding []float32) *model.StoredChunk {
	return &model.StoredChunk{
		Chunk: model.Chunk{
			ID:           id,
			Participants: participants,
			StartTime:    start,
			EndTime:      start.Add(10 * time.Minute),
			Metadata: model.ChunkMetadata{
				ConversationID: conversationID,
				MessageCount:   3,
			},
		},
		Embedding: embedding,
	}
}

func TestMemoryStoreSearch(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	chunks := []*model.StoredChunk{
		buildTestChunk("c1", "conv-a", []string{"Alice", "Bob"}, base, []float32{1, 0, 0}),
		buildTestChunk("c2", "conv-a", []string{"Alice", "Bob"}, base.Add(time.Hour), []float32{0.9, 0.1, 0}),
		buildTestChunk("c3", "conv-b", []string{"Carol"}, base.Add(2*time.Hour), []float32{0, 1, 0}),
	}
	require.NoError(t, store.UpsertBatch(ctx, chunks))

	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "c1", results[0].Chunk.ID)
	require.Equal(t, "c2", results[1].Chunk.ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStoreSearchMinScore(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertBatch(ctx, []*model.StoredChunk{
		buildTestChunk("c1", "conv-a", []string{"Alice"}, base, []float32{1, 0, 0}),
		buildTestChunk("c2", "conv-a", []string{"Alice"}, base, []float32{0, 1, 0}),
	}))

	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 10, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].Chunk.ID)
}

func TestMemoryStoreSearchFilter(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertBatch(ctx, []*model.StoredChunk{
		buildTestChunk("c1", "conv-a", []string{"Alice", "Bob"}, base, []float32{1, 0, 0}),
		buildTestChunk("c2", "conv-b", []string{"Carol"}, base.Add(48*time.Hour), []float32{1, 0, 0}),
	}))

	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:   10,
		Filter: &SearchFilter{ConversationID: "conv-b"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c2", results[0].Chunk.ID)

	endBefore := base.Add(time.Hour)
	results, err = store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:   10,
		Filter: &SearchFilter{EndTime: &endBefore},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].Chunk.ID)

	results, err = store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:   10,
		Filter: &SearchFilter{Participants: []string{"alice", "bob"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].Chunk.ID)
}

func TestMemoryStoreSearchFilterParticipantsAnyOf(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertBatch(ctx, []*model.StoredChunk{
		buildTestChunk("c1", "conv-a", []string{"Alice"}, base, []float32{1, 0, 0}),
		buildTestChunk("c2", "conv-a", []string{"Bob"}, base, []float32{0.9, 0.1, 0}),
		buildTestChunk("c3", "conv-a", []string{"Carol"}, base, []float32{0.8, 0.2, 0}),
	}))

	// listing a participant the chunk does not have must not exclude it
	results, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:   10,
		Filter: &SearchFilter{Participants: []string{"Alice", "Zed"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].Chunk.ID)

	results, err = store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:   10,
		Filter: &SearchFilter{Participants: []string{"alice", "bob"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "c1", results[0].Chunk.ID)
	require.Equal(t, "c2", results[1].Chunk.ID)

	results, err = store.Search(ctx, []float32{1, 0, 0}, SearchOptions{
		TopK:   10,
		Filter: &SearchFilter{Participants: []string{"Zed"}},
	})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMemoryStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	first := buildTestChunk("c1", "conv-a", []string{"Alice"}, base, []float32{1, 0, 0})
	require.NoError(t, store.UpsertBatch(ctx, []*model.StoredChunk{first}))

	updated := buildTestChunk("c1", "conv-a", []string{"Alice"}, base, []float32{0, 1, 0})
	updated.Summary = "updated"
	require.NoError(t, store.UpsertBatch(ctx, []*model.StoredChunk{updated}))

	count, err := store.Count(ctx, "conv-a")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	results, err := store.Search(ctx, []float32{0, 1, 0}, SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "updated", results[0].Chunk.Summary)
}

func TestMemoryStoreUpsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	bad := buildTestChunk("c1", "conv-a", []string{"Alice"}, base, []float32{1, 0})
	require.Error(t, store.UpsertBatch(ctx, []*model.StoredChunk{bad}))
}

func TestMemoryStoreScrollAll(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertBatch(ctx, []*model.StoredChunk{
		buildTestChunk("c1", "conv-a", []string{"Alice"}, base, []float32{1, 0, 0}),
		buildTestChunk("c2", "conv-a", []string{"Alice"}, base, []float32{0, 1, 0}),
		buildTestChunk("c3", "conv-b", []string{"Bob"}, base, []float32{0, 0, 1}),
	}))

	var seen []string
	err = store.ScrollAll(ctx, &SearchFilter{ConversationID: "conv-a"}, func(chunk *model.StoredChunk) error {
		seen = append(seen, chunk.ID)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, seen)
}

func TestMemoryStoreDeleteByConversation(t *testing.T) {
	ctx := context.Background()
	store, err := New("memory", nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx, 3))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertBatch(ctx, []*model.StoredChunk{
		buildTestChunk("c1", "conv-a", []string{"Alice"}, base, []float32{1, 0, 0}),
		buildTestChunk("c2", "conv-b", []string{"Bob"}, base, []float32{0, 1, 0}),
	}))

	require.NoError(t, store.DeleteByConversation(ctx, "conv-a"))
	count, err := store.Count(ctx, "")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	count, err = store.Count(ctx, "conv-a")
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	require.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
	require.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
