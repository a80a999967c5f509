package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source tags the knowledge source a reference document came from.
type Source string

const (
	SourceConfluence Source = "confluence"
	SourceJira       Source = "jira"
	SourceSharePoint Source = "sharepoint"
	SourceGitHub     Source = "github"
	SourceOther      Source = "other"
)

// ReferenceDocument is a citation attached to an assistant reply.
type ReferenceDocument struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	LastUpdated string `json:"last_updated"`
	Source      Source `json:"source"`
	Description string `json:"description,omitempty"`
}

// Message represents a chat message.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Only set on synthesized assistant replies.
	ReferenceDocuments []ReferenceDocument `json:"reference_documents,omitempty"`
}

// Clone returns a copy of the message with its own reference slice.
func (m Message) Clone() Message {
	if m.ReferenceDocuments != nil {
		docs := make([]ReferenceDocument, len(m.ReferenceDocuments))
		copy(docs, m.ReferenceDocuments)
		m.ReferenceDocuments = docs
	}
	return m
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the response after submitting a message.
type SendMessageResponse struct {
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason,omitempty"`
	Session  string   `json:"session_id,omitempty"`
	Message  *Message `json:"message,omitempty"`
}

// ErrorEvent represents an error event on the stream.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
