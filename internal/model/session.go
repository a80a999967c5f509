// Package model defines data structures for the knowledge assistant.
package model

import (
	"time"
)

// Session represents a chat conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Clone returns a copy of the session that shares no slices with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i := range s.Messages {
		out.Messages[i] = s.Messages[i].Clone()
	}
	return &out
}

// SessionSummary is the sidebar entry for a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	Active       bool      `json:"active"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	ActiveID string           `json:"active_id,omitempty"`
}

// SetActiveRequest selects a session for display.
type SetActiveRequest struct {
	ID string `json:"id"`
}

// WorkspaceState is a snapshot of the chat workspace.
type WorkspaceState struct {
	ActiveID     string    `json:"active_id,omitempty"`
	ReplyPending bool      `json:"reply_pending"`
	SessionCount int       `json:"session_count"`
	View         ViewState `json:"view"`
}
