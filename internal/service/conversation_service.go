package service

import (
	"context"
	"sort"
	"sync"

	"github.com/xxxsen/chatrecall/internal/model"
	appErr "github.com/xxxsen/chatrecall/internal/pkg/errors"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

// ConversationService keeps the registry of ingested archives and owns
// their lifecycle in the vector store.
type ConversationService struct {
	store vectorstore.Store

	mu            sync.RWMutex
	conversations map[string]*model.Conversation
}

func NewConversationService(store vectorstore.Store) *ConversationService {
	return &ConversationService{
		store:         store,
		conversations: map[string]*model.Conversation{},
	}
}

func (s *ConversationService) Put(conversation *model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversation.ID] = conversation
}

func (s *ConversationService) Get(id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conversation, ok := s.conversations[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	snapshot := *conversation
	return &snapshot, nil
}

func (s *ConversationService) List() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]*model.Conversation, 0, len(s.conversations))
	for _, conversation := range s.conversations {
		snapshot := *conversation
		items = append(items, &snapshot)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].IngestedAt.After(items[j].IngestedAt)
	})
	return items
}

func (s *ConversationService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		return appErr.ErrNotFound
	}
	delete(s.conversations, id)
	s.mu.Unlock()
	return s.store.DeleteByConversation(ctx, id)
}
