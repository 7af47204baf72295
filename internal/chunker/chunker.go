package chunker

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/chatrecall/internal/model"
)

const (
	DefaultGapMinutes    = 30
	DefaultMaxMessages   = 50
	DefaultMinMessages   = 3
	DefaultMaxChunkChars = 4000

	// Per-message rendering overhead: timestamp brackets, separator, newline.
	messageOverheadChars = 25
)

type Options struct {
	GapMinutes    int `json:"gap_minutes"`
	MaxMessages   int `json:"max_messages"`
	MinMessages   int `json:"min_messages"`
	MaxChunkChars int `json:"max_chunk_chars"`
}

func (o Options) withDefaults() Options {
	if o.GapMinutes <= 0 {
		o.GapMinutes = DefaultGapMinutes
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = DefaultMaxMessages
	}
	if o.MinMessages <= 0 {
		o.MinMessages = DefaultMinMessages
	}
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = DefaultMaxChunkChars
	}
	return o
}

type Summary struct {
	TotalChunks      int        `json:"total_chunks"`
	TotalMessages    int        `json:"total_messages"`
	AverageChunkSize float64    `json:"average_chunk_size"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
}

type Result struct {
	Chunks  []model.Chunk `json:"chunks"`
	Summary Summary       `json:"summary"`
}

// Chunker partitions messages into temporally and size bounded retrieval
// units. Boundaries are decided greedily in priority order: character
// budget, then message count, then conversation gap.
type Chunker struct{}

func New() *Chunker {
	return &Chunker{}
}

func (c *Chunker) Chunk(messages []model.Message, opts Options) *Result {
	opts = opts.withDefaults()
	result := &Result{Chunks: []model.Chunk{}}
	if len(messages) == 0 {
		return result
	}

	sorted := make([]model.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	groups := c.partition(sorted, opts)
	groups = c.mergeUndersized(groups, opts)

	for _, group := range groups {
		result.Chunks = append(result.Chunks, buildChunk(group))
	}

	result.Summary.TotalChunks = len(result.Chunks)
	result.Summary.TotalMessages = len(sorted)
	if len(result.Chunks) > 0 {
		result.Summary.AverageChunkSize = float64(len(sorted)) / float64(len(result.Chunks))
		start := result.Chunks[0].StartTime
		end := result.Chunks[len(result.Chunks)-1].EndTime
		result.Summary.StartTime = &start
		result.Summary.EndTime = &end
	}
	return result
}

// partition scans forward and opens a new group whenever the character
// budget, the message cap or the time gap rule demands it.
func (c *Chunker) partition(messages []model.Message, opts Options) [][]model.Message {
	var groups [][]model.Message
	var current []model.Message
	currentChars := 0
	gap := time.Duration(opts.GapMinutes) * time.Minute

	for _, msg := range messages {
		cost := messageCost(msg)
		boundary := false
		switch {
		case len(current) > 0 && currentChars+cost > opts.MaxChunkChars:
			boundary = true
		case len(current) >= opts.MaxMessages:
			boundary = true
		case len(current) > 0 && msg.Timestamp.Sub(current[len(current)-1].Timestamp) >= gap:
			boundary = true
		}
		if boundary {
			groups = append(groups, current)
			current = nil
			currentChars = 0
		}
		current = append(current, msg)
		currentChars += cost
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// mergeUndersized folds runs of undersized groups together. The minimum
// size is best-effort: the character budget always wins, so a merged group
// may still come up short.
func (c *Chunker) mergeUndersized(groups [][]model.Message, opts Options) [][]model.Message {
	var out [][]model.Message
	var pending []model.Message
	pendingChars := 0

	flushPending := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, pending)
		pending = nil
		pendingChars = 0
	}

	for _, group := range groups {
		if len(group) >= opts.MinMessages {
			flushPending()
			out = append(out, group)
			continue
		}
		groupChars := groupCost(group)
		if len(pending) > 0 && pendingChars+groupChars > opts.MaxChunkChars {
			flushPending()
		}
		pending = append(pending, group...)
		pendingChars += groupChars
		if len(pending) >= opts.MinMessages {
			flushPending()
		}
	}

	// A final undersized remainder folds into the previous group when the
	// combined size still fits the budget.
	if len(pending) > 0 {
		if len(out) > 0 && groupCost(out[len(out)-1])+pendingChars <= opts.MaxChunkChars {
			merged := append(append([]model.Message{}, out[len(out)-1]...), pending...)
			out[len(out)-1] = merged
		} else {
			out = append(out, pending)
		}
	}
	return out
}

func buildChunk(messages []model.Message) model.Chunk {
	chunk := model.Chunk{
		ID:        uuid.NewString(),
		Messages:  messages,
		StartTime: messages[0].Timestamp,
		EndTime:   messages[len(messages)-1].Timestamp,
	}

	senderCounts := make(map[string]int)
	var senderOrder []string
	mediaCount := 0
	for _, msg := range messages {
		if msg.Type != model.MessageTypeSystem && msg.Sender != "" {
			if senderCounts[msg.Sender] == 0 {
				senderOrder = append(senderOrder, msg.Sender)
			}
			senderCounts[msg.Sender]++
		}
		if msg.Type == model.MessageTypeMedia {
			mediaCount++
		}
	}

	chunk.Participants = make([]string, len(senderOrder))
	copy(chunk.Participants, senderOrder)
	sort.Strings(chunk.Participants)

	// Dominant participant: highest message count, first-encountered wins
	// ties under a stable descending sort.
	ranked := make([]string, len(senderOrder))
	copy(ranked, senderOrder)
	sort.SliceStable(ranked, func(i, j int) bool {
		return senderCounts[ranked[i]] > senderCounts[ranked[j]]
	})
	dominant := ""
	if len(ranked) > 0 {
		dominant = ranked[0]
	}

	chunk.Metadata = model.ChunkMetadata{
		MessageCount:        len(messages),
		TimeSpanMinutes:     int(chunk.EndTime.Sub(chunk.StartTime).Round(time.Minute) / time.Minute),
		DominantParticipant: dominant,
		HasMedia:            mediaCount > 0,
		MediaCount:          mediaCount,
	}
	return chunk
}

func messageCost(msg model.Message) int {
	return len(msg.Content) + len(msg.Sender) + messageOverheadChars
}

func groupCost(messages []model.Message) int {
	total := 0
	for _, msg := range messages {
		total += messageCost(msg)
	}
	return total
}
