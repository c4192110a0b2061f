package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Client event types.
const (
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
	TypeSessionUpdate          = "session.update"
)

// ImagePromptPrefix introduces an injected image description.
const ImagePromptPrefix = "Please assist the user by describing this image: "

// EventHeader carries the fields every event has on the wire.
type EventHeader struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}

func (h *EventHeader) header() *EventHeader { return h }

// ClientEvent is any event the client sends. Implementations embed
// EventHeader.
type ClientEvent interface {
	header() *EventHeader
}

type ConversationItemCreateEvent struct {
	EventHeader
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ConversationItem `json:"item"`
}

type ConversationItem struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type ResponseCreateEvent struct {
	EventHeader
	Response ResponseConfig `json:"response"`
}

type ResponseConfig struct {
	Instructions string `json:"instructions,omitempty"`
}

type SessionUpdateEvent struct {
	EventHeader
	Session SessionConfig `json:"session"`
}

type SessionConfig struct {
	Instructions string `json:"instructions,omitempty"`
	Voice        string `json:"voice,omitempty"`
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// NewTextMessage builds a user text turn.
func NewTextMessage(text string) *ConversationItemCreateEvent {
	return &ConversationItemCreateEvent{
		EventHeader: EventHeader{Type: TypeConversationItemCreate},
		Item: ConversationItem{
			ID:      newID("msg_"),
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

func NewResponseCreate(instructions string) *ResponseCreateEvent {
	return &ResponseCreateEvent{
		EventHeader: EventHeader{Type: TypeResponseCreate},
		Response:    ResponseConfig{Instructions: instructions},
	}
}

func NewSessionUpdate(instructions string) *SessionUpdateEvent {
	return &SessionUpdateEvent{
		EventHeader: EventHeader{Type: TypeSessionUpdate},
		Session:     SessionConfig{Instructions: instructions},
	}
}

// encodeEvent fills a missing event id and marshals the event.
func encodeEvent(ev ClientEvent) ([]byte, error) {
	h := ev.header()
	if h.Type == "" {
		return nil, fmt.Errorf("client event has no type")
	}
	if h.EventID == "" {
		h.EventID = newID("evt_")
	}
	return json.Marshal(ev)
}

// ServerEvent is an inbound event. Only the header is decoded; Raw keeps the
// whole frame.
type ServerEvent struct {
	EventID string
	Type    string
	Raw     json.RawMessage
}

func ParseServerEvent(frame []byte) (ServerEvent, error) {
	var h EventHeader
	if err := json.Unmarshal(frame, &h); err != nil {
		return ServerEvent{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if h.Type == "" {
		return ServerEvent{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	raw := make(json.RawMessage, len(frame))
	copy(raw, frame)
	return ServerEvent{EventID: h.EventID, Type: h.Type, Raw: raw}, nil
}

// IsTranscriptDelta reports whether t is a streaming transcript fragment.
func IsTranscriptDelta(t string) bool {
	switch t {
	case "response.audio_transcript.delta",
		"response.output_audio_transcript.delta",
		"conversation.item.input_audio_transcription.delta":
		return true
	}
	return false
}
