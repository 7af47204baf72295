package model

import "time"

// Conversation describes one ingested chat archive.
type Conversation struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	MessageCount int        `json:"message_count"`
	ChunkCount   int        `json:"chunk_count"`
	Participants []string   `json:"participants"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IngestedAt   time.Time  `json:"ingested_at"`
}
