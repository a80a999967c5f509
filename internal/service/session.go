package service

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

const (
	// TitleMaxLen is the number of characters kept from the first message.
	TitleMaxLen = 50

	titleEllipsis = "..."
)

// DeriveTitle returns the session title for a first message: the text
// itself, or its first TitleMaxLen characters followed by "...".
func DeriveTitle(text string) string {
	if utf8.RuneCountInString(text) <= TitleMaxLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:TitleMaxLen]) + titleEllipsis
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithIDGenerator overrides how session ids are generated.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *SessionStore) {
		s.newID = fn
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) StoreOption {
	return func(s *SessionStore) {
		s.now = fn
	}
}

// SessionStore holds the chat sessions of one workspace and which one is
// active. Returned sessions are copies.
type SessionStore struct {
	mu       sync.RWMutex
	sessions []*model.Session // most recently created first
	byID     map[string]*model.Session
	activeID string

	newID func() string
	now   func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		byID:  make(map[string]*model.Session),
		newID: newUUID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all sessions, most recently created first.
func (s *SessionStore) List() []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Summaries returns the sidebar view of all sessions.
func (s *SessionStore) Summaries() []model.SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SessionSummary, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = model.SessionSummary{
			ID:           sess.ID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			MessageCount: len(sess.Messages),
			Active:       sess.ID == s.activeID,
		}
	}
	return out
}

// Len returns the number of sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Get returns the session with id.
func (s *SessionStore) Get(id string) (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// Active returns the active session, if any.
func (s *SessionStore) Active() (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil, false
	}
	return s.byID[s.activeID].Clone(), true
}

// ActiveID returns the id of the active session or "".
func (s *SessionStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// SetActive makes id the active session. Unknown ids are ignored. It
// reports whether the active session changed.
func (s *SessionStore) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	changed := s.activeID != id
	s.activeID = id
	return changed
}

// ClearActive leaves no session active. It reports whether one was.
func (s *SessionStore) ClearActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.activeID != ""
	s.activeID = ""
	return changed
}

// Create starts a session titled after firstMessage, puts it at the front
// of the list and makes it active.
func (s *SessionStore) Create(firstMessage string) *model.Session {
	sess := &model.Session{
		ID:        s.newID(),
		Title:     DeriveTitle(firstMessage),
		CreatedAt: s.now(),
		Messages:  []model.Message{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append([]*model.Session{sess}, s.sessions...)
	s.byID[sess.ID] = sess
	s.activeID = sess.ID

	return sess.Clone()
}

// Append adds msg to the end of the session's messages.
func (s *SessionStore) Append(sessionID string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	msg.SessionID = sessionID
	sess.Messages = append(sess.Messages, msg.Clone())
	return nil
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}
