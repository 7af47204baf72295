package chunker

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/chatrecall/internal/model"
)

func makeMessages(n int, step time.Duration) []model.Message {
	base := time.Date(2023, 5, 10, 9, 0, 0, 0, time.UTC)
	msgs := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, model.Message{
			ID:        fmt.Sprintf("m%d", i),
			Timestamp: base.Add(time.Duration(i) * step),
			Sender:    "Alice",
			Content:   fmt.Sprintf("message %d", i),
			Type:      model.MessageTypeText,
		})
	}
	return msgs
}

func totalMessages(chunks []model.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += c.Metadata.MessageCount
	}
	return total
}

func TestChunk_SingleChunkUnderLimits(t *testing.T) {
	msgs := makeMessages(5, time.Minute)
	result := New().Chunk(msgs, Options{})

	require.Len(t, result.Chunks, 1)
	require.Equal(t, 5, result.Chunks[0].Metadata.MessageCount)
	require.Equal(t, 5, result.Summary.TotalMessages)
	require.Equal(t, float64(5), result.Summary.AverageChunkSize)
}

func TestChunk_SplitsOnGap(t *testing.T) {
	base := time.Date(2023, 5, 10, 9, 0, 0, 0, time.UTC)
	var msgs []model.Message
	for i := 0; i < 3; i++ {
		msgs = append(msgs, model.Message{
			ID: fmt.Sprintf("a%d", i), Timestamp: base.Add(time.Duration(i) * time.Minute),
			Sender: "Alice", Content: "hi", Type: model.MessageTypeText,
		})
	}
	for i := 0; i < 3; i++ {
		msgs = append(msgs, model.Message{
			ID: fmt.Sprintf("b%d", i), Timestamp: base.Add(2*time.Hour + time.Duration(i)*time.Minute),
			Sender: "Bob", Content: "yo", Type: model.MessageTypeText,
		})
	}

	result := New().Chunk(msgs, Options{})
	require.Len(t, result.Chunks, 2)
	require.Equal(t, 3, result.Chunks[0].Metadata.MessageCount)
	require.Equal(t, 3, result.Chunks[1].Metadata.MessageCount)
	require.Equal(t, 6, totalMessages(result.Chunks))
}

func TestChunk_NoSplitWithinGap(t *testing.T) {
	msgs := makeMessages(10, 29*time.Minute)
	result := New().Chunk(msgs, Options{GapMinutes: 30})
	require.Len(t, result.Chunks, 1)
}

func TestChunk_SplitsOnMaxMessages(t *testing.T) {
	msgs := makeMessages(120, time.Second)
	result := New().Chunk(msgs, Options{MinMessages: 1})
	require.Len(t, result.Chunks, 3)
	require.Equal(t, 50, result.Chunks[0].Metadata.MessageCount)
	require.Equal(t, 50, result.Chunks[1].Metadata.MessageCount)
	require.Equal(t, 20, result.Chunks[2].Metadata.MessageCount)
	require.Equal(t, 120, totalMessages(result.Chunks))
}

func TestChunk_SplitsOnCharBudget(t *testing.T) {
	big := strings.Repeat("x", 1500)
	base := time.Date(2023, 5, 10, 9, 0, 0, 0, time.UTC)
	var msgs []model.Message
	for i := 0; i < 6; i++ {
		msgs = append(msgs, model.Message{
			ID: fmt.Sprintf("m%d", i), Timestamp: base.Add(time.Duration(i) * time.Minute),
			Sender: "Alice", Content: big, Type: model.MessageTypeText,
		})
	}

	result := New().Chunk(msgs, Options{MaxChunkChars: 4000, MinMessages: 1})
	require.True(t, len(result.Chunks) >= 3)
	require.Equal(t, 6, totalMessages(result.Chunks))
	for _, c := range result.Chunks {
		require.LessOrEqual(t, groupCost(c.Messages), 4000)
	}
}

func TestChunk_MergesUndersized(t *testing.T) {
	base := time.Date(2023, 5, 10, 9, 0, 0, 0, time.UTC)
	var msgs []model.Message
	// Three singletons separated by large gaps merge into one chunk.
	for i := 0; i < 3; i++ {
		msgs = append(msgs, model.Message{
			ID: fmt.Sprintf("m%d", i), Timestamp: base.Add(time.Duration(i) * 2 * time.Hour),
			Sender: "Alice", Content: "lonely", Type: model.MessageTypeText,
		})
	}
	result := New().Chunk(msgs, Options{MinMessages: 3})
	require.Len(t, result.Chunks, 1)
	require.Equal(t, 3, result.Chunks[0].Metadata.MessageCount)
}

func TestChunk_FinalRemainderFoldsIntoPrevious(t *testing.T) {
	base := time.Date(2023, 5, 10, 9, 0, 0, 0, time.UTC)
	var msgs []model.Message
	for i := 0; i < 4; i++ {
		msgs = append(msgs, model.Message{
			ID: fmt.Sprintf("m%d", i), Timestamp: base.Add(time.Duration(i) * time.Minute),
			Sender: "Alice", Content: "hello", Type: model.MessageTypeText,
		})
	}
	// One trailing message after a long gap: undersized remainder.
	msgs = append(msgs, model.Message{
		ID: "tail", Timestamp: base.Add(5 * time.Hour),
		Sender: "Bob", Content: "late one", Type: model.MessageTypeText,
	})

	result := New().Chunk(msgs, Options{})
	require.Len(t, result.Chunks, 1)
	require.Equal(t, 5, totalMessages(result.Chunks))
}

func TestChunk_Determinism(t *testing.T) {
	msgs := makeMessages(40, 7*time.Minute)
	first := New().Chunk(msgs, Options{})
	second := New().Chunk(msgs, Options{})

	require.Equal(t, len(first.Chunks), len(second.Chunks))
	for i := range first.Chunks {
		require.Equal(t, first.Chunks[i].Metadata.MessageCount, second.Chunks[i].Metadata.MessageCount)
		require.Equal(t, first.Chunks[i].StartTime, second.Chunks[i].StartTime)
		require.Equal(t, first.Chunks[i].EndTime, second.Chunks[i].EndTime)
	}
}

func TestChunk_Metadata(t *testing.T) {
	base := time.Date(2023, 5, 10, 9, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		{ID: "1", Timestamp: base, Sender: "Alice", Content: "a", Type: model.MessageTypeText},
		{ID: "2", Timestamp: base.Add(time.Minute), Sender: "Bob", Content: "b", Type: model.MessageTypeText},
		{ID: "3", Timestamp: base.Add(2 * time.Minute), Sender: "Bob", Content: "pic", Type: model.MessageTypeMedia, MediaType: model.MediaTypeImage},
		{ID: "4", Timestamp: base.Add(10 * time.Minute), Sender: "Alice", Content: "c", Type: model.MessageTypeText},
		{ID: "5", Timestamp: base.Add(12 * time.Minute), Sender: "Bob", Content: "d", Type: model.MessageTypeText},
	}

	result := New().Chunk(msgs, Options{})
	require.Len(t, result.Chunks, 1)
	meta := result.Chunks[0].Metadata
	require.Equal(t, "Bob", meta.DominantParticipant)
	require.True(t, meta.HasMedia)
	require.Equal(t, 1, meta.MediaCount)
	require.Equal(t, 12, meta.TimeSpanMinutes)
	require.Equal(t, []string{"Alice", "Bob"}, result.Chunks[0].Participants)
}

func TestChunk_EmptyInput(t *testing.T) {
	result := New().Chunk(nil, Options{})
	require.Empty(t, result.Chunks)
	require.Equal(t, 0, result.Summary.TotalMessages)
	require.Nil(t, result.Summary.StartTime)
}

func TestRenderChunk_CanonicalFormat(t *testing.T) {
	chunk := model.Chunk{Messages: []model.Message{
		{Timestamp: time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC), Sender: "John", Content: "Hello there!"},
		{Timestamp: time.Date(2023, 1, 15, 10, 31, 0, 0, time.UTC), Sender: "Jane", Content: "Hi John!"},
	}}
	want := "[2023-01-15 10:30] John: Hello there!\n[2023-01-15 10:31] Jane: Hi John!"
	require.Equal(t, want, RenderChunk(chunk))
}
