package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telivi-ai/knowledge-assistant/internal/llm"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

type pipelineFixture struct {
	store     *SessionStore
	pipeline  *Pipeline
	scheduler *manualScheduler
	sink      *recordingSink
}

func newPipelineFixture(t *testing.T, responder llm.Responder) *pipelineFixture {
	t.Helper()

	if responder == nil {
		responder = llm.NewKnowledgeBaseResponder()
	}
	f := &pipelineFixture{
		store:     NewSessionStore(WithIDGenerator(sequentialIDs("s"))),
		scheduler: &manualScheduler{},
		sink:      &recordingSink{},
	}
	f.pipeline = NewPipeline(f.store, responder,
		WithScheduler(f.scheduler),
		WithEventSink(f.sink),
		WithMessageIDs(sequentialIDs("m")),
		WithUserID("u-1"),
	)
	t.Cleanup(f.pipeline.Close)
	return f
}

func TestSubmitFirstQuestion(t *testing.T) {
	f := newPipelineFixture(t, nil)

	sub, err := f.pipeline.Submit(context.Background(), "What is MCQ PLUS?")
	require.NoError(t, err)
	assert.True(t, sub.SessionCreated)
	assert.Equal(t, "What is MCQ PLUS?", sub.Session.Title)

	sess, ok := f.store.Active()
	require.True(t, ok)
	assert.Equal(t, sub.Session.ID, sess.ID)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, model.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "What is MCQ PLUS?", sess.Messages[0].Content)
	assert.True(t, f.pipeline.Pending())
	assert.Equal(t, 1, f.scheduler.Waiting())

	require.Equal(t, 1, f.scheduler.Fire())

	sess, _ = f.store.Get(sub.Session.ID)
	require.Len(t, sess.Messages, 2)
	reply := sess.Messages[1]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, llm.KnowledgeBaseReply, reply.Content)
	assert.Equal(t, sub.Session.ID, reply.SessionID)
	if diff := cmp.Diff(llm.DefaultReferences(), reply.ReferenceDocuments); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, f.pipeline.Pending())

	assert.Equal(t, []model.EventType{
		model.EventSessionCreated,
		model.EventMessageAppended,
		model.EventReplyPending,
		model.EventMessageAppended,
		model.EventReplyPending,
	}, f.sink.Types())
}

func TestSubmitIgnoresEmptyInput(t *testing.T) {
	f := newPipelineFixture(t, nil)

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := f.pipeline.Submit(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	assert.Equal(t, 0, f.store.Len())
	assert.Empty(t, f.store.ActiveID())
	assert.False(t, f.pipeline.Pending())
	assert.Equal(t, 0, f.scheduler.Waiting())
	assert.Empty(t, f.sink.Types())
}

func TestSubmitTrimsInput(t *testing.T) {
	f := newPipelineFixture(t, nil)

	sub, err := f.pipeline.Submit(context.Background(), "  hello there \n")
	require.NoError(t, err)
	assert.Equal(t, "hello there", sub.Session.Title)
	assert.Equal(t, "hello there", sub.Message.Content)
}

func TestSubmitWhileReplyPending(t *testing.T) {
	f := newPipelineFixture(t, nil)

	_, err := f.pipeline.Submit(context.Background(), "first")
	require.NoError(t, err)

	_, err = f.pipeline.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrReplyPending)

	sess, _ := f.store.Active()
	assert.Len(t, sess.Messages, 1)
	assert.Equal(t, 1, f.scheduler.Waiting())
}

func TestRepliesAlternateWithQuestions(t *testing.T) {
	f := newPipelineFixture(t, nil)
	const n = 4

	for i := 0; i < n; i++ {
		_, err := f.pipeline.Submit(context.Background(), "question")
		require.NoError(t, err)
		require.Equal(t, 1, f.scheduler.Fire())
	}

	require.Equal(t, 1, f.store.Len())
	sess, _ := f.store.Active()
	require.Len(t, sess.Messages, 2*n)
	for i, msg := range sess.Messages {
		want := model.RoleUser
		if i%2 == 1 {
			want = model.RoleAssistant
		}
		assert.Equal(t, want, msg.Role, "message %d", i)
	}
}

func TestStartNewChatThenSubmit(t *testing.T) {
	f := newPipelineFixture(t, nil)

	first, err := f.pipeline.Submit(context.Background(), "What is MCQ PLUS?")
	require.NoError(t, err)
	f.scheduler.Fire()

	f.store.ClearActive()

	second, err := f.pipeline.Submit(context.Background(), "Who owns the backend service?")
	require.NoError(t, err)
	assert.True(t, second.SessionCreated)

	list := f.store.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.Session.ID, list[0].ID)
	assert.Equal(t, first.Session.ID, list[1].ID)
	assert.Len(t, list[1].Messages, 2, "earlier session untouched")
	assert.Equal(t, second.Session.ID, f.store.ActiveID())
}

func TestReplyLandsInOriginalSession(t *testing.T) {
	f := newPipelineFixture(t, nil)

	a, err := f.pipeline.Submit(context.Background(), "in session A")
	require.NoError(t, err)
	f.scheduler.Fire()
	f.store.ClearActive()

	b, err := f.pipeline.Submit(context.Background(), "in session B")
	require.NoError(t, err)

	// Switch back to A before B's reply arrives.
	require.True(t, f.store.SetActive(a.Session.ID))
	f.scheduler.Fire()

	gotA, _ := f.store.Get(a.Session.ID)
	gotB, _ := f.store.Get(b.Session.ID)
	assert.Len(t, gotA.Messages, 2)
	require.Len(t, gotB.Messages, 2)
	assert.Equal(t, model.RoleAssistant, gotB.Messages[1].Role)
	assert.Equal(t, a.Session.ID, f.store.ActiveID())
}

func TestResponderErrorFallsBack(t *testing.T) {
	failing := llm.ResponderFunc(func(ctx context.Context, sc *llm.SessionContext) (*model.Message, error) {
		return nil, errors.New("upstream unavailable")
	})
	f := newPipelineFixture(t, failing)

	sub, err := f.pipeline.Submit(context.Background(), "hello")
	require.NoError(t, err)
	f.scheduler.Fire()

	sess, _ := f.store.Get(sub.Session.ID)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, model.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, FallbackReply, sess.Messages[1].Content)
	assert.False(t, f.pipeline.Pending())
}

func TestResponderSeesHistoryAndPrompt(t *testing.T) {
	var got *llm.SessionContext
	capture := llm.ResponderFunc(func(ctx context.Context, sc *llm.SessionContext) (*model.Message, error) {
		got = sc
		return &model.Message{Content: "ok"}, nil
	})

	store := NewSessionStore()
	sched := &manualScheduler{}
	p := NewPipeline(store, capture,
		WithScheduler(sched),
		WithPrompt(func() string { return "be brief" }),
		WithUserID("u-7"),
	)
	defer p.Close()

	_, err := p.Submit(context.Background(), "first")
	require.NoError(t, err)
	sched.Fire()
	_, err = p.Submit(context.Background(), "second")
	require.NoError(t, err)
	sched.Fire()

	require.NotNil(t, got)
	assert.Equal(t, "u-7", got.UserID)
	assert.Equal(t, "be brief", got.Prompt)
	assert.Equal(t, "second", got.Question())
	assert.Len(t, got.History, 3)
}

func TestCloseCancelsScheduledReply(t *testing.T) {
	f := newPipelineFixture(t, nil)

	sub, err := f.pipeline.Submit(context.Background(), "hello")
	require.NoError(t, err)

	f.pipeline.Close()
	assert.False(t, f.pipeline.Pending())
	assert.Equal(t, 0, f.scheduler.Waiting())

	_, err = f.pipeline.Submit(context.Background(), "again")
	assert.ErrorIs(t, err, ErrPipelineClosed)

	sess, _ := f.store.Get(sub.Session.ID)
	assert.Len(t, sess.Messages, 1)

	// Second Close is a no-op.
	f.pipeline.Close()
}

func TestPipelineWithTimer(t *testing.T) {
	store := NewSessionStore()
	p := NewPipeline(store, llm.NewKnowledgeBaseResponder(), WithReplyDelay(5*time.Millisecond))
	defer p.Close()

	sub, err := p.Submit(context.Background(), "hello")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !p.Pending() }, time.Second, time.Millisecond)

	sess, _ := store.Get(sub.Session.ID)
	assert.Len(t, sess.Messages, 2)
}
