package types

import (
	"encoding/json"
	"strings"
)

// NoDescription is used when the vision endpoint returns no choices.
const NoDescription = "No description available."

type SessionReq struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions"`
}

// SessionResp is the subset of the vendor's session object the client needs.
// The server passes the full body through untouched.
type SessionResp struct {
	ID           string       `json:"id,omitempty"`
	Model        string       `json:"model,omitempty"`
	ClientSecret ClientSecret `json:"client_secret"`
}

type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

type UploadImageReq struct {
	Image string `json:"image" binding:"required"`
}

// ChatCompletion is the response shape the upload endpoint returns.
type ChatCompletion struct {
	ID      string       `json:"id,omitempty"`
	Object  string       `json:"object,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Description returns the first choice's content, or NoDescription.
func (c ChatCompletion) Description() string {
	if len(c.Choices) == 0 {
		return NoDescription
	}
	return strings.TrimSpace(c.Choices[0].Message.Content)
}

// LogEntry is one display-log row as published to event viewers.
type LogEntry struct {
	Seq        uint64          `json:"seq"`
	EventID    string          `json:"event_id,omitempty"`
	Type       string          `json:"type"`
	ReceivedAt int64           `json:"received_at"`
	Event      json.RawMessage `json:"event"`
}
