package domain

import (
	"fmt"
	"strings"
)

// MessageKind enumerates the outbound payload types the platform accepts.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
	MessageVoice MessageKind = "voice"
	MessageVideo MessageKind = "video"
	MessageLink  MessageKind = "link"
)

// OutboundMessage is one message to deliver before the wait phase starts.
// Content holds the text body or the media URL; Link is set for link cards.
type OutboundMessage struct {
	Kind    MessageKind
	Content string
	Link    *LinkPayload
}

// LinkPayload carries the four fields of a link card.
type LinkPayload struct {
	Title    string
	Desc     string
	URL      string
	ThumbURL string
}

// ParseOutboundMessage parses the CLI TYPE:CONTENT form. Link content uses
// four pipe-separated parts: title|desc|url|thumb.
func ParseOutboundMessage(s string) (OutboundMessage, error) {
	kind, content, found := strings.Cut(s, ":")
	if !found {
		return OutboundMessage{}, fmt.Errorf("message %q is not in TYPE:CONTENT form", s)
	}

	switch MessageKind(strings.ToLower(kind)) {
	case MessageText:
		return OutboundMessage{Kind: MessageText, Content: content}, nil
	case MessageImage:
		return OutboundMessage{Kind: MessageImage, Content: content}, nil
	case MessageVoice:
		return OutboundMessage{Kind: MessageVoice, Content: content}, nil
	case MessageVideo:
		return OutboundMessage{Kind: MessageVideo, Content: content}, nil
	case MessageLink:
		parts := strings.Split(content, "|")
		if len(parts) != 4 {
			return OutboundMessage{}, fmt.Errorf("link message needs title|desc|url|thumb, got %q", content)
		}
		return OutboundMessage{
			Kind:    MessageLink,
			Content: parts[2],
			Link: &LinkPayload{
				Title:    parts[0],
				Desc:     parts[1],
				URL:      parts[2],
				ThumbURL: parts[3],
			},
		}, nil
	default:
		return OutboundMessage{}, fmt.Errorf("unknown message type %q, expected text/image/voice/video/link", kind)
	}
}

// ParseOutboundMessages parses every repeated --message flag, in order.
func ParseOutboundMessages(raw []string) ([]OutboundMessage, error) {
	messages := make([]OutboundMessage, 0, len(raw))
	for _, s := range raw {
		msg, err := ParseOutboundMessage(s)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
