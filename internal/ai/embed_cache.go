package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// WrapLRUCache memoizes embeddings keyed by provider and text. Query
// embedding repeats a lot (polling UIs, the agent re-searching a topic), so
// a small cache saves real provider calls.
func WrapLRUCache(e Embedder, size int, ttl time.Duration) Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Name() string {
	return l.next.Name()
}

func (l *lruEmbedder) Dimensions() int {
	return l.next.Dimensions()
}

func embedCacheKey(name, text string) string {
	hash := sha256.Sum256([]byte(text))
	return name + ":" + hex.EncodeToString(hash[:])
}

func (l *lruEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := embedCacheKey(l.next.Name(), text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.Int("len", len(text)))
		return cloneEmbedding(cached), nil
	}
	res, err := l.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneEmbedding(res))
	return res, nil
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := l.cache.Get(embedCacheKey(l.next.Name(), text)); ok {
			out[i] = cloneEmbedding(cached)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vectors, err := l.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		idx := missingIdx[i]
		out[idx] = vec
		l.cache.Add(embedCacheKey(l.next.Name(), texts[idx]), cloneEmbedding(vec))
	}
	return out, nil
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
