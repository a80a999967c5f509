package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

func TestDeriveTitle(t *testing.T) {
	sixty := strings.Repeat("abcdefghij", 6)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "What is MCQ PLUS?", "What is MCQ PLUS?"},
		{"exactly fifty", strings.Repeat("x", 50), strings.Repeat("x", 50)},
		{"sixty", sixty, sixty[:50] + "..."},
		{"multibyte", strings.Repeat("é", 51), strings.Repeat("é", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.text))
		})
	}

	assert.Equal(t, 53, utf8.RuneCountInString(DeriveTitle(sixty)))
}

func TestSessionStoreCreate(t *testing.T) {
	s := NewSessionStore(WithIDGenerator(sequentialIDs("s")))

	first := s.Create("first question")
	second := s.Create("second question")

	assert.Equal(t, "s-1", first.ID)
	assert.Equal(t, "first question", first.Title)
	assert.Empty(t, first.Messages)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest session first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, second.ID, s.ActiveID())
}

func TestSessionStoreSetActive(t *testing.T) {
	s := NewSessionStore(WithIDGenerator(sequentialIDs("s")))
	a := s.Create("a")
	b := s.Create("b")
	require.Equal(t, b.ID, s.ActiveID())

	assert.True(t, s.SetActive(a.ID))
	assert.Equal(t, a.ID, s.ActiveID())

	assert.False(t, s.SetActive(a.ID), "already active")
	assert.False(t, s.SetActive("missing"))
	assert.Equal(t, a.ID, s.ActiveID(), "unknown id leaves active session unchanged")

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, a.ID, active.ID)
}

func TestSessionStoreClearActive(t *testing.T) {
	s := NewSessionStore()
	assert.False(t, s.ClearActive())

	s.Create("hello")
	assert.True(t, s.ClearActive())
	assert.Empty(t, s.ActiveID())

	_, ok := s.Active()
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len(), "sessions are kept")
}

func TestSessionStoreAppend(t *testing.T) {
	s := NewSessionStore(WithIDGenerator(sequentialIDs("s")))
	sess := s.Create("hello")

	err := s.Append(sess.ID, model.Message{ID: "m-1", Role: model.RoleUser, Content: "hello"})
	require.NoError(t, err)

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, sess.ID, got.Messages[0].SessionID)

	err = s.Append("missing", model.Message{Content: "lost"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	s := NewSessionStore()
	sess := s.Create("hello")
	require.NoError(t, s.Append(sess.ID, model.Message{Role: model.RoleUser, Content: "hello"}))

	got, _ := s.Get(sess.ID)
	got.Title = "changed"
	got.Messages[0].Content = "changed"

	again, _ := s.Get(sess.ID)
	assert.Equal(t, "hello", again.Title)
	assert.Equal(t, "hello", again.Messages[0].Content)
}

func TestSessionStoreSummaries(t *testing.T) {
	s := NewSessionStore(WithIDGenerator(sequentialIDs("s")))
	a := s.Create("a")
	require.NoError(t, s.Append(a.ID, model.Message{Content: "a"}))
	s.Create("b")

	sums := s.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "b", sums[0].Title)
	assert.True(t, sums[0].Active)
	assert.Equal(t, 0, sums[0].MessageCount)
	assert.False(t, sums[1].Active)
	assert.Equal(t, 1, sums[1].MessageCount)
}
