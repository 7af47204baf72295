package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xxxsen/chatrecall/internal/model"
)

// Locale variants of the deleted-message placeholder.
var deletedPatterns = []string{
	"this message was deleted",
	"you deleted this message",
	"message deleted",
	"diese nachricht wurde gelöscht",
	"du hast diese nachricht gelöscht",
	"mensagem apagada",
	"essa mensagem foi apagada",
	"ce message a été supprimé",
	"vous avez supprimé ce message",
	"se eliminó este mensaje",
	"eliminaste este mensaje",
}

var systemPatterns = []string{
	"messages and calls are end-to-end encrypted",
	"messages to this group are now secured",
	"created group",
	"created this group",
	"added you",
	"you were added",
	"joined using this group's invite link",
	"left the group",
	"removed you",
	"changed the subject",
	"changed this group's icon",
	"changed the group description",
	"changed their phone number",
	"security code changed",
	"your security code with",
	"missed voice call",
	"missed video call",
}

// Generic media placeholders carry no subtype.
var genericMediaPatterns = []string{
	"<media omitted>",
	"<medien ausgeschlossen>",
	"<arquivo de mídia oculto>",
}

var typedMediaPatterns = map[string]model.MediaType{
	"image omitted":         model.MediaTypeImage,
	"photo omitted":         model.MediaTypeImage,
	"video omitted":         model.MediaTypeVideo,
	"gif omitted":           model.MediaTypeVideo,
	"audio omitted":         model.MediaTypeAudio,
	"voice message omitted": model.MediaTypeAudio,
	"document omitted":      model.MediaTypeDocument,
	"sticker omitted":       model.MediaTypeSticker,
	"contact card omitted":  model.MediaTypeContact,
	"location:":             model.MediaTypeLocation,
	"live location shared":  model.MediaTypeLocation,
	"bild weggelassen":      model.MediaTypeImage,
	"video weggelassen":     model.MediaTypeVideo,
	"imagem ocultada":       model.MediaTypeImage,
	"vídeo omitido":         model.MediaTypeVideo,
	"áudio ocultado":        model.MediaTypeAudio,
	"figurinha omitida":     model.MediaTypeSticker,
}

var fileAttachedRe = regexp.MustCompile(`(?i)([^\s]+\.([a-z0-9]{1,5}))\s*\((?:file attached|datei angehängt|arquivo anexado)\)`)

var extensionMediaTypes = map[string]model.MediaType{
	"jpg": model.MediaTypeImage, "jpeg": model.MediaTypeImage, "png": model.MediaTypeImage,
	"gif": model.MediaTypeImage, "webp": model.MediaTypeImage, "heic": model.MediaTypeImage,
	"mp4": model.MediaTypeVideo, "mov": model.MediaTypeVideo, "avi": model.MediaTypeVideo,
	"3gp": model.MediaTypeVideo, "mkv": model.MediaTypeVideo,
	"mp3": model.MediaTypeAudio, "opus": model.MediaTypeAudio, "ogg": model.MediaTypeAudio,
	"m4a": model.MediaTypeAudio, "aac": model.MediaTypeAudio, "wav": model.MediaTypeAudio,
	"vcf": model.MediaTypeContact,
}

// classify resolves the message type by priority: deleted placeholders win
// over system lines, system lines over media placeholders, anything else
// is plain text. Senderless lines always classify as system.
func classify(sender, content string) (model.MessageType, model.MediaType) {
	lower := strings.ToLower(content)
	for _, pattern := range deletedPatterns {
		if strings.Contains(lower, pattern) {
			return model.MessageTypeDeleted, ""
		}
	}
	if sender == "" {
		return model.MessageTypeSystem, ""
	}
	for _, pattern := range systemPatterns {
		if strings.Contains(lower, pattern) {
			return model.MessageTypeSystem, ""
		}
	}
	for _, pattern := range genericMediaPatterns {
		if strings.Contains(lower, pattern) {
			return model.MessageTypeMedia, ""
		}
	}
	for pattern, mediaType := range typedMediaPatterns {
		if strings.Contains(lower, pattern) {
			return model.MessageTypeMedia, mediaType
		}
	}
	if m := fileAttachedRe.FindStringSubmatch(content); m != nil {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(m[1]), "."))
		mediaType, ok := extensionMediaTypes[ext]
		if !ok {
			mediaType = model.MediaTypeDocument
		}
		return model.MessageTypeMedia, mediaType
	}
	return model.MessageTypeText, ""
}
