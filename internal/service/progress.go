package service

import (
	"sync"
	"time"

	"github.com/xxxsen/chatrecall/internal/model"
	appErr "github.com/xxxsen/chatrecall/internal/pkg/errors"
)

// ProgressTracker holds per-job ingestion progress in memory. A job id is
// only ever written by its own pipeline run, so field merges under the lock
// are last-write-wins safe. Records live until process exit.
type ProgressTracker struct {
	mu   sync.RWMutex
	jobs map[string]*model.IngestionProgress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{jobs: map[string]*model.IngestionProgress{}}
}

func (t *ProgressTracker) Create(jobID string) *model.IngestionProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	progress := &model.IngestionProgress{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		StartedAt: time.Now(),
	}
	t.jobs[jobID] = progress
	return progress
}

// ProgressUpdate carries the fields to merge; nil fields are left untouched.
type ProgressUpdate struct {
	Status           *model.JobStatus
	ConversationID   *string
	ConversationName *string
	MessagesParsed   *int
	ChunksCreated    *int
	ChunksEmbedded   *int
	ChunksStored     *int
	Error            *string
	CompletedAt      *time.Time
}

func (t *ProgressTracker) Update(jobID string, update ProgressUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	progress, ok := t.jobs[jobID]
	if !ok {
		return
	}
	if update.Status != nil {
		progress.Status = *update.Status
	}
	if update.ConversationID != nil {
		progress.ConversationID = *update.ConversationID
	}
	if update.ConversationName != nil {
		progress.ConversationName = *update.ConversationName
	}
	if update.MessagesParsed != nil {
		progress.MessagesParsed = *update.MessagesParsed
	}
	if update.ChunksCreated != nil {
		progress.ChunksCreated = *update.ChunksCreated
	}
	if update.ChunksEmbedded != nil {
		progress.ChunksEmbedded = *update.ChunksEmbedded
	}
	if update.ChunksStored != nil {
		progress.ChunksStored = *update.ChunksStored
	}
	if update.Error != nil {
		progress.Error = *update.Error
	}
	if update.CompletedAt != nil {
		completed := *update.CompletedAt
		progress.CompletedAt = &completed
	}
}

func (t *ProgressTracker) Get(jobID string) (*model.IngestionProgress, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	progress, ok := t.jobs[jobID]
	if !ok {
		return nil, appErr.ErrJobNotFound
	}
	snapshot := *progress
	if progress.CompletedAt != nil {
		completed := *progress.CompletedAt
		snapshot.CompletedAt = &completed
	}
	return &snapshot, nil
}

func statusPtr(status model.JobStatus) *model.JobStatus { return &status }
func stringPtr(s string) *string                        { return &s }
func intPtr(n int) *int                                 { return &n }
func timePtr(t time.Time) *time.Time                    { return &t }
