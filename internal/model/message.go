package model

import "time"

type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeMedia   MessageType = "media"
	MessageTypeSystem  MessageType = "system"
	MessageTypeDeleted MessageType = "deleted"
)

type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
	MediaTypeSticker  MediaType = "sticker"
	MediaTypeLocation MediaType = "location"
	MediaTypeContact  MediaType = "contact"
)

// Message is a single reconstructed chat message. Sender is empty for
// system lines. Content may span multiple physical lines of the export.
type Message struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Sender    string      `json:"sender"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	MediaType MediaType   `json:"media_type,omitempty"`
	Raw       string      `json:"-"`
}
