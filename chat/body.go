package chat

import (
	"strings"

	"chat-service/model"
)

// NotificationBody is the push text for msg, chosen by content type.
func NotificationBody(msg *model.Message) string {
	switch msg.ContentType {
	case model.ContentImage:
		return "Image shared"
	case model.ContentVideo:
		return "Video shared"
	case model.ContentAudio:
		return "Audio shared"
	case model.ContentFile:
		return "File shared"
	case model.ContentContact:
		name := strings.TrimSpace(msg.ContentTitle)
		if name == "" {
			name = strings.TrimSpace(msg.Content)
		}
		return "Contact shared: " + name
	case model.ContentLink:
		return "Link shared"
	}
	if content := strings.TrimSpace(msg.Content); content != "" {
		return content
	}
	return "New message"
}
