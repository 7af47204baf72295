package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chatrecall/internal/ai"
	"github.com/xxxsen/chatrecall/internal/model"
	"github.com/xxxsen/chatrecall/internal/vectorstore"
)

const defaultSummaryBatchLimit = 20

// SummaryService backfills summaries for chunks that were stored without one,
// typically because summarization was disabled or failed during ingestion.
type SummaryService struct {
	llm   ai.LLM
	store vectorstore.Store
}

func NewSummaryService(llm ai.LLM, store vectorstore.Store) *SummaryService {
	return &SummaryService{llm: llm, store: store}
}

// ProcessPending summarizes up to limit chunks with an empty summary and
// writes them back. Returns the number of chunks updated.
func (s *SummaryService) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultSummaryBatchLimit
	}
	var pending []*model.StoredChunk
	err := s.store.ScrollAll(ctx, nil, func(chunk *model.StoredChunk) error {
		if chunk.Summary != "" {
			return nil
		}
		pending = append(pending, chunk)
		if len(pending) >= limit {
			return errScrollDone
		}
		return nil
	})
	if err != nil && err != errScrollDone {
		return 0, err
	}
	updated := 0
	for _, chunk := range pending {
		summary, err := SummarizeChunk(ctx, s.llm, chunk)
		if err != nil {
			logutil.GetLogger(ctx).Warn("summary backfill failed",
				zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		if summary == "" {
			continue
		}
		chunk.Summary = summary
		if err := s.store.UpsertBatch(ctx, []*model.StoredChunk{chunk}); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
