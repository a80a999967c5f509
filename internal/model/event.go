package model

import (
	"time"
)

// EventType represents the type of workspace event.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventMessageAppended  EventType = "message_appended"
	EventReplyPending     EventType = "reply_pending"
	EventActiveChanged    EventType = "active_changed"
	EventDirectoryChanged EventType = "directory_changed"
	EventSyncRequested    EventType = "sync_requested"
)

// ChatEvent represents a change in a workspace or the admin directory.
type ChatEvent struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id,omitempty"`
	Type      EventType      `json:"type"`
	Message   *Message       `json:"message,omitempty"`
	Pending   bool           `json:"pending,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Sequence  uint64         `json:"sequence,omitempty"`
}
