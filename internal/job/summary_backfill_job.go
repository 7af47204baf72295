package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/chatrecall/internal/service"
)

// SummaryBackfillJob periodically summarizes chunks that were stored
// without a summary.
type SummaryBackfillJob struct {
	summaries *service.SummaryService
	limit     int
}

func NewSummaryBackfillJob(summaries *service.SummaryService, limit int) *SummaryBackfillJob {
	return &SummaryBackfillJob{summaries: summaries, limit: limit}
}

func (j *SummaryBackfillJob) Name() string {
	return "summary_backfill"
}

func (j *SummaryBackfillJob) Run(ctx context.Context) error {
	updated, err := j.summaries.ProcessPending(ctx, j.limit)
	if err != nil {
		return err
	}
	if updated > 0 {
		logutil.GetLogger(ctx).Info("summaries backfilled", zap.Int("count", updated))
	}
	return nil
}
