package chunker

import (
	"strings"

	"github.com/xxxsen/chatrecall/internal/model"
)

const renderTimeLayout = "2006-01-02 15:04"

// RenderMessage produces the canonical one-line form used for embedding
// and citation previews. The exact format matters: embeddings are only
// reproducible if the rendered text is byte-identical across runs.
func RenderMessage(msg model.Message) string {
	ts := msg.Timestamp.Format(renderTimeLayout)
	if msg.Sender == "" {
		return "[" + ts + "] " + msg.Content
	}
	return "[" + ts + "] " + msg.Sender + ": " + msg.Content
}

// RenderChunk joins the canonical message lines with newlines.
func RenderChunk(chunk model.Chunk) string {
	lines := make([]string, 0, len(chunk.Messages))
	for _, msg := range chunk.Messages {
		lines = append(lines, RenderMessage(msg))
	}
	return strings.Join(lines, "\n")
}
