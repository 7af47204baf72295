package model

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusParsing   JobStatus = "parsing"
	JobStatusChunking  JobStatus = "chunking"
	JobStatusEmbedding JobStatus = "embedding"
	JobStatusStoring   JobStatus = "storing"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IngestionProgress tracks one ingestion job. Updated in place by the
// pipeline run that owns the job id, read by progress polling.
type IngestionProgress struct {
	JobID            string     `json:"job_id"`
	Status           JobStatus  `json:"status"`
	ConversationID   string     `json:"conversation_id,omitempty"`
	ConversationName string     `json:"conversation_name,omitempty"`
	MessagesParsed   int        `json:"messages_parsed"`
	ChunksCreated    int        `json:"chunks_created"`
	ChunksEmbedded   int        `json:"chunks_embedded"`
	ChunksStored     int        `json:"chunks_stored"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// IngestionResult is the final outcome of a completed ingestion.
type IngestionResult struct {
	JobID            string     `json:"job_id"`
	ConversationID   string     `json:"conversation_id"`
	ConversationName string     `json:"conversation_name,omitempty"`
	MessageCount     int        `json:"message_count"`
	ChunkCount       int        `json:"chunk_count"`
	Participants     []string   `json:"participants"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
}
