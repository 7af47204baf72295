package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	batch int
}

func (c *countingEmbedder) Name() string    { return "counting" }
func (c *countingEmbedder) Dimensions() int { return 2 }

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batch++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestWrapLRUCacheEmbed(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRUCache(inner, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)

	// cached copies must not alias each other
	first[0] = 999
	third, err := cached.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.NotEqual(t, float32(999), third[0])
}

func TestWrapLRUCacheBatchPartialHit(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WrapLRUCache(inner, 16, time.Minute)

	_, err := cached.Embed(context.Background(), "aa")
	require.NoError(t, err)

	vectors, err := cached.EmbedBatch(context.Background(), []string{"aa", "bbb"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Equal(t, []float32{2, 1}, vectors[0])
	require.Equal(t, []float32{3, 1}, vectors[1])
	require.Equal(t, 1, inner.batch)

	// everything cached now, no further provider calls
	_, err = cached.EmbedBatch(context.Background(), []string{"aa", "bbb"})
	require.NoError(t, err)
	require.Equal(t, 1, inner.batch)
}

func TestWrapLRUCacheDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Equal(t, Embedder(inner), WrapLRUCache(inner, 0, time.Minute))
	require.Equal(t, Embedder(inner), WrapLRUCache(inner, 16, 0))
}
