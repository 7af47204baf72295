package retriever

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/chatrecall/internal/chunker"
	"github.com/xxxsen/chatrecall/internal/model"
)

const (
	defaultContextBudget = 8000
	// minimum budget left for a chunk to be worth truncating instead of dropping
	truncateThreshold = 200

	previewMessageLimit = 3
	previewCharLimit    = 50
)

func chunkHeader(chunk *model.StoredChunk) string {
	participants := chunk.Participants
	overflow := 0
	if len(participants) > 3 {
		overflow = len(participants) - 3
		participants = participants[:3]
	}
	names := strings.Join(participants, ", ")
	if overflow > 0 {
		names = fmt.Sprintf("%s +%d more", names, overflow)
	}
	return fmt.Sprintf("--- %s %s-%s | %s | %d messages ---",
		chunk.StartTime.Format("2006-01-02"),
		chunk.StartTime.Format("15:04"),
		chunk.EndTime.Format("15:04"),
		names,
		chunk.Metadata.MessageCount)
}

// BuildContext concatenates ranked chunks into prompt context, each behind a
// one-line header, stopping at the character budget. A chunk that would
// overflow is truncated only when enough budget remains to be useful.
func BuildContext(chunks []model.ScoredChunk, maxLength int) string {
	if maxLength <= 0 {
		maxLength = defaultContextBudget
	}
	var b strings.Builder
	for _, scored := range chunks {
		section := chunkHeader(scored.Chunk) + "\n" + chunker.RenderChunk(scored.Chunk.Chunk) + "\n\n"
		remaining := maxLength - b.Len()
		if len(section) <= remaining {
			b.WriteString(section)
			continue
		}
		if remaining >= truncateThreshold {
			cut := remaining - 3
			for cut > 0 && !utf8.RuneStart(section[cut]) {
				cut--
			}
			b.WriteString(section[:cut])
			b.WriteString("...")
		}
		break
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// BuildCitations produces the lightweight source records attached to answers.
func BuildCitations(chunks []model.ScoredChunk) []model.Citation {
	citations := make([]model.Citation, 0, len(chunks))
	for _, scored := range chunks {
		var previews []string
		for i, msg := range scored.Chunk.Messages {
			if i >= previewMessageLimit {
				break
			}
			line := msg.Content
			if msg.Sender != "" {
				line = msg.Sender + ": " + msg.Content
			}
			previews = append(previews, truncateText(line, previewCharLimit))
		}
		citations = append(citations, model.Citation{
			ChunkID:      scored.Chunk.ID,
			Score:        scored.Score,
			Participants: scored.Chunk.Participants,
			StartTime:    scored.Chunk.StartTime,
			EndTime:      scored.Chunk.EndTime,
			Preview:      strings.Join(previews, " | "),
		})
	}
	return citations
}
