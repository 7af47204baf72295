package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xxxsen/chatrecall/internal/model"
)

// memoryStore keeps every chunk in process memory with brute-force cosine
// search. Good enough for single-archive setups and for tests.
type memoryStore struct {
	mu         sync.RWMutex
	chunks     map[string]*model.StoredChunk
	dimensions int
}

func newMemoryStore(args interface{}) (Store, error) {
	return &memoryStore{chunks: map[string]*model.StoredChunk{}}, nil
}

func (s *memoryStore) Initialize(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}
	s.mu.Lock()
	s.dimensions = dimensions
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) UpsertBatch(ctx context.Context, chunks []*model.StoredChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk id is required")
		}
		if s.dimensions > 0 && len(chunk.Embedding) != s.dimensions {
			return fmt.Errorf("chunk %s: expected %d dimensions, got %d", chunk.ID, s.dimensions, len(chunk.Embedding))
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (s *memoryStore) Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]model.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scored := make([]model.ScoredChunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if !matchFilter(chunk, opts.Filter) {
			continue
		}
		score := cosineSimilarity(embedding, chunk.Embedding)
		if score < opts.MinScore {
			continue
		}
		scored = append(scored, model.ScoredChunk{Chunk: chunk, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
	if opts.TopK > 0 && len(scored) > opts.TopK {
		scored = scored[:opts.TopK]
	}
	return scored, nil
}

func (s *memoryStore) ScrollAll(ctx context.Context, filter *SearchFilter, fn func(chunk *model.StoredChunk) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	chunks := make([]*model.StoredChunk, 0, len(ids))
	for _, id := range ids {
		chunks = append(chunks, s.chunks[id])
	}
	s.mu.RUnlock()
	for _, chunk := range chunks {
		if !matchFilter(chunk, filter) {
			continue
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryStore) Count(ctx context.Context, conversationID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conversationID == "" {
		return int64(len(s.chunks)), nil
	}
	var count int64
	for _, chunk := range s.chunks {
		if chunk.Metadata.ConversationID == conversationID {
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) DeleteByConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, chunk := range s.chunks {
		if chunk.Metadata.ConversationID == conversationID {
			delete(s.chunks, id)
		}
	}
	return nil
}

func init() {
	Register("memory", newMemoryStore)
}
