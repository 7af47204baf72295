package model

import "time"

type ChunkMetadata struct {
	MessageCount        int    `json:"message_count"`
	ConversationID      string `json:"conversation_id,omitempty"`
	TimeSpanMinutes     int    `json:"time_span_minutes"`
	DominantParticipant string `json:"dominant_participant,omitempty"`
	HasMedia            bool   `json:"has_media"`
	MediaCount          int    `json:"media_count"`
}

// Chunk is a contiguous, time and size bounded group of messages treated
// as one retrieval and embedding unit. Messages are ordered by timestamp.
type Chunk struct {
	ID           string        `json:"id"`
	Messages     []Message     `json:"messages"`
	Participants []string      `json:"participants"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Metadata     ChunkMetadata `json:"metadata"`
}

// StoredChunk is a chunk plus its embedding vector as persisted in the
// vector store. Read-only after creation.
type StoredChunk struct {
	Chunk
	Embedding        []float32 `json:"embedding,omitempty"`
	Summary          string    `json:"summary,omitempty"`
	ConversationName string    `json:"conversation_name,omitempty"`
}
