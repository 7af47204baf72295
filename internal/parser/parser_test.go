package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/chatrecall/internal/model"
)

func TestParse_USFormat(t *testing.T) {
	text := "1/15/23, 10:30 AM - John: Hello there!\n1/15/23, 10:31 AM - Jane: Hi John!"
	result := New().Parse(text, Options{})

	require.Len(t, result.Messages, 2)
	require.Equal(t, []string{"Jane", "John"}, result.Participants)
	require.Equal(t, 2, result.Counts[model.MessageTypeText])

	first := result.Messages[0]
	require.Equal(t, "John", first.Sender)
	require.Equal(t, "Hello there!", first.Content)
	require.Equal(t, model.MessageTypeText, first.Type)
	require.Equal(t, time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC), first.Timestamp)
	require.Equal(t, "Jane", result.Messages[1].Sender)
}

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		name string
		line string
		want time.Time
	}{
		{"us 12h pm", "1/15/23, 2:05 PM - John: hey", time.Date(2023, 1, 15, 14, 5, 0, 0, time.UTC)},
		{"us 12h noon", "1/15/23, 12:00 PM - John: hey", time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC)},
		{"us 12h midnight", "1/15/23, 12:00 AM - John: hey", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"eu 24h", "15/1/23, 14:05 - John: hey", time.Date(2023, 1, 15, 14, 5, 0, 0, time.UTC)},
		{"iso", "2023-01-15, 14:05 - John: hey", time.Date(2023, 1, 15, 14, 5, 0, 0, time.UTC)},
		{"german dotted", "15.01.23, 14:05 - John: hey", time.Date(2023, 1, 15, 14, 5, 0, 0, time.UTC)},
		{"brazilian no comma", "15/01/2023 14:05 - John: hey", time.Date(2023, 1, 15, 14, 5, 0, 0, time.UTC)},
		{"ios bracket", "[15/1/23, 14:05:30] John: hey", time.Date(2023, 1, 15, 14, 5, 30, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().Parse(tt.line, Options{})
			require.Len(t, result.Messages, 1)
			require.Equal(t, tt.want, result.Messages[0].Timestamp)
			require.Equal(t, "John", result.Messages[0].Sender)
			require.Equal(t, "hey", result.Messages[0].Content)
		})
	}
}

func TestParse_FormatStickiness(t *testing.T) {
	// 3/4 is ambiguous between US (March 4) and EU (April 3). The first
	// line only parses as EU (day 15 cannot be a month), so the second
	// must resolve as EU too.
	text := "15/1/23, 10:00 - John: first\n3/4/23, 11:00 - John: second"
	result := New().Parse(text, Options{})
	require.Len(t, result.Messages, 2)
	require.Equal(t, time.Date(2023, 4, 3, 11, 0, 0, 0, time.UTC), result.Messages[1].Timestamp)
}

func TestParse_ContinuationLines(t *testing.T) {
	text := "1/15/23, 10:30 AM - John: line one\nline two\nline three\n1/15/23, 10:31 AM - Jane: hi"
	result := New().Parse(text, Options{})
	require.Len(t, result.Messages, 2)
	require.Equal(t, "line one\nline two\nline three", result.Messages[0].Content)
}

func TestParse_StrayLineWithoutOpenMessage(t *testing.T) {
	text := "orphan line with no timestamp\n1/15/23, 10:30 AM - John: hello"
	result := New().Parse(text, Options{})
	require.Len(t, result.Messages, 1)
	require.Equal(t, "hello", result.Messages[0].Content)
}

func TestParse_SystemAndDeletedFiltering(t *testing.T) {
	text := strings.Join([]string{
		"1/15/23, 10:30 AM - Messages and calls are end-to-end encrypted.",
		"1/15/23, 10:31 AM - John: This message was deleted",
		"1/15/23, 10:32 AM - John: real text",
	}, "\n")

	result := New().Parse(text, Options{})
	require.Len(t, result.Messages, 1)
	require.Equal(t, model.MessageTypeText, result.Messages[0].Type)
	require.Equal(t, 1, result.Counts[model.MessageTypeSystem])
	require.Equal(t, 1, result.Counts[model.MessageTypeDeleted])
	require.Equal(t, 1, result.Counts[model.MessageTypeText])

	kept := New().Parse(text, Options{IncludeSystemMessages: true, IncludeDeletedMessages: true})
	require.Len(t, kept.Messages, 3)
}

func TestParse_MediaClassification(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		mediaType model.MediaType
	}{
		{"generic placeholder", "1/15/23, 10:30 AM - John: <Media omitted>", ""},
		{"image", "1/15/23, 10:30 AM - John: image omitted", model.MediaTypeImage},
		{"sticker", "1/15/23, 10:30 AM - John: sticker omitted", model.MediaTypeSticker},
		{"file attached", "1/15/23, 10:30 AM - John: IMG-2023.jpg (file attached)", model.MediaTypeImage},
		{"audio attached", "1/15/23, 10:30 AM - John: PTT-2023.opus (file attached)", model.MediaTypeAudio},
		{"unknown extension", "1/15/23, 10:30 AM - John: notes.xyz (file attached)", model.MediaTypeDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().Parse(tt.line, Options{})
			require.Len(t, result.Messages, 1)
			require.Equal(t, model.MessageTypeMedia, result.Messages[0].Type)
			require.Equal(t, tt.mediaType, result.Messages[0].MediaType)
		})
	}
}

func TestParse_SenderlessLineIsSystem(t *testing.T) {
	result := New().Parse("1/15/23, 10:30 AM - group renamed", Options{IncludeSystemMessages: true})
	require.Len(t, result.Messages, 1)
	require.Equal(t, model.MessageTypeSystem, result.Messages[0].Type)
	require.Empty(t, result.Messages[0].Sender)
	require.Empty(t, result.Participants)
}

func TestExpandTwoDigitYear(t *testing.T) {
	require.Equal(t, 2023, expandTwoDigitYear(23))
	require.Equal(t, 1968, expandTwoDigitYear(68))
	require.Equal(t, 2049, expandTwoDigitYear(49))
	require.Equal(t, 1950, expandTwoDigitYear(50))
}

func TestParse_RejectsOutOfRangeDates(t *testing.T) {
	// 1968 falls outside the accepted range, so the line is not a message
	// boundary and gets dropped (no accumulator is open).
	result := New().Parse("1/15/68, 10:30 AM - John: hello", Options{})
	require.Empty(t, result.Messages)

	result = New().Parse("1/15/2108, 10:30 AM - John: hello", Options{})
	require.Empty(t, result.Messages)
}

func TestParse_DateAggregates(t *testing.T) {
	text := "1/15/23, 10:30 AM - John: a\n1/16/23, 11:00 AM - Jane: b"
	result := New().Parse(text, Options{})
	require.NotNil(t, result.StartDate)
	require.NotNil(t, result.EndDate)
	require.Equal(t, time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC), *result.StartDate)
	require.Equal(t, time.Date(2023, 1, 16, 11, 0, 0, 0, time.UTC), *result.EndDate)
}

func TestParse_EmptyInput(t *testing.T) {
	result := New().Parse("", Options{})
	require.Empty(t, result.Messages)
	require.Empty(t, result.Participants)
	require.Nil(t, result.StartDate)
}
