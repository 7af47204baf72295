package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/chatrecall/internal/model"
)

// SearchFilter narrows a search to chunks matching all set fields.
// A chunk matches Participants when it contains at least one listed
// participant.
type SearchFilter struct {
	Participants   []string
	StartTime      *time.Time
	EndTime        *time.Time
	ConversationID string
}

type SearchOptions struct {
	TopK     int
	MinScore float64
	Filter   *SearchFilter
}

type Store interface {
	Initialize(ctx context.Context, dimensions int) error
	UpsertBatch(ctx context.Context, chunks []*model.StoredChunk) error
	Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]model.ScoredChunk, error)
	// ScrollAll streams every stored chunk matching the filter; fn returning
	// an error stops the scroll.
	ScrollAll(ctx context.Context, filter *SearchFilter, fn func(chunk *model.StoredChunk) error) error
	Count(ctx context.Context, conversationID string) (int64, error)
	DeleteByConversation(ctx context.Context, conversationID string) error
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("vector_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", typ)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}

func matchFilter(chunk *model.StoredChunk, filter *SearchFilter) bool {
	if filter == nil {
		return true
	}
	if filter.ConversationID != "" && chunk.Metadata.ConversationID != filter.ConversationID {
		return false
	}
	if filter.StartTime != nil && chunk.EndTime.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && chunk.StartTime.After(*filter.EndTime) {
		return false
	}
	if len(filter.Participants) > 0 {
		found := false
		for _, want := range filter.Participants {
			for _, have := range chunk.Participants {
				if strings.EqualFold(have, want) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
