package model

import "time"

// ScoredChunk pairs a stored chunk with its fused relevance score in [0,1].
type ScoredChunk struct {
	Chunk *StoredChunk `json:"chunk"`
	Score float64      `json:"score"`
}

// RetrievalResult is a ranked, deduplicated result set, descending by score.
type RetrievalResult struct {
	Chunks []ScoredChunk `json:"chunks"`
}

// Citation is a lightweight reference to a retrieved chunk for display.
type Citation struct {
	ChunkID      string    `json:"chunk_id"`
	Score        float64   `json:"score"`
	Participants []string  `json:"participants"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Preview      string    `json:"preview"`
}
