package nats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []published
	err   error
	block chan struct{}
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func (f *fakePublisher) Subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.subject
	}
	return out
}

func TestEventSubject(t *testing.T) {
	tests := []struct {
		name string
		ev   model.ChatEvent
		want string
	}{
		{
			name: "session event",
			ev:   model.ChatEvent{UserID: "u-1", SessionID: "s-1", Type: model.EventMessageAppended},
			want: "telivi.u-1.s-1.event.message_appended",
		},
		{
			name: "anonymous",
			ev:   model.ChatEvent{SessionID: "s-1", Type: model.EventSessionCreated},
			want: "telivi.anonymous.s-1.event.session_created",
		},
		{
			name: "directory event",
			ev:   model.ChatEvent{UserID: "admin", Type: model.EventDirectoryChanged},
			want: "telivi.admin.admin.event.directory_changed",
		},
		{
			name: "workspace event",
			ev:   model.ChatEvent{UserID: "u-1", Type: model.EventActiveChanged},
			want: "telivi.u-1.workspace.event.active_changed",
		},
		{
			name: "unsafe tokens",
			ev:   model.ChatEvent{UserID: "jane.doe@telivi.ai", SessionID: "a*b >c", Type: model.EventReplyPending},
			want: "telivi.jane_doe@telivi_ai.a_b__c.event.reply_pending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EventSubject(&tt.ev))
		})
	}
}

func TestUserFilter(t *testing.T) {
	assert.Equal(t, "telivi.jane_doe.>", UserFilter("jane.doe"))
}

func TestEventLogPublishes(t *testing.T) {
	pub := &fakePublisher{}
	l := newEventLog(nil, pub, nil)

	ev := &model.ChatEvent{ID: "e-1", UserID: "u-1", SessionID: "s-1", Type: model.EventSessionCreated}
	require.NoError(t, l.Publish(context.Background(), ev))
	require.NoError(t, l.Publish(context.Background(), &model.ChatEvent{ID: "e-2", UserID: "u-1", Type: model.EventActiveChanged}))

	// The log keeps its own copy.
	ev.SessionID = "changed"

	l.Close()

	assert.Equal(t, []string{
		"telivi.u-1.s-1.event.session_created",
		"telivi.u-1.workspace.event.active_changed",
	}, pub.Subjects())

	var got model.ChatEvent
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &got))
	assert.Equal(t, "s-1", got.SessionID)

	assert.ErrorIs(t, l.Publish(context.Background(), ev), ErrClosed)
	l.Close()
}

func TestEventLogDropsWhenFull(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	l := newEventLog(nil, pub, nil, WithQueueSize(1))

	for i := 0; i < 5; i++ {
		assert.NoError(t, l.Publish(context.Background(), &model.ChatEvent{UserID: "u-1", Type: model.EventReplyPending}))
	}

	close(pub.block)
	l.Close()

	// One event in flight plus one queued at most.
	assert.LessOrEqual(t, len(pub.Subjects()), 2)
	assert.GreaterOrEqual(t, len(pub.Subjects()), 1)
}

func TestEventLogSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	l := newEventLog(nil, pub, nil)

	assert.NoError(t, l.Publish(context.Background(), &model.ChatEvent{UserID: "u-1", Type: model.EventSessionCreated}))
	l.Close()

	assert.Len(t, pub.Subjects(), 1)
}

func TestRecentEventsWithoutStream(t *testing.T) {
	l := newEventLog(nil, &fakePublisher{}, nil)
	defer l.Close()

	_, err := l.RecentEvents(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrNoStream)

	events, err := l.RecentEvents(context.Background(), "u-1", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecentConsumerConfig(t *testing.T) {
	state := jetstream.StreamState{FirstSeq: 1, LastSeq: 120, Msgs: 120}

	cfg := recentConsumerConfig(state, "", 50)
	assert.Equal(t, jetstream.DeliverByStartSequencePolicy, cfg.DeliverPolicy)
	assert.Equal(t, uint64(71), cfg.OptStartSeq)
	assert.Empty(t, cfg.FilterSubject)

	cfg = recentConsumerConfig(jetstream.StreamState{FirstSeq: 90, LastSeq: 120, Msgs: 31}, "", 50)
	assert.Equal(t, uint64(90), cfg.OptStartSeq, "never before the first message")

	cfg = recentConsumerConfig(state, "jane.doe", 50)
	assert.Equal(t, jetstream.DeliverAllPolicy, cfg.DeliverPolicy)
	assert.Equal(t, "telivi.jane_doe.>", cfg.FilterSubject)
	assert.Zero(t, cfg.OptStartSeq)
	assert.Equal(t, jetstream.AckNonePolicy, cfg.AckPolicy)
}

func TestEventTail(t *testing.T) {
	tail := newEventTail(3)
	assert.Empty(t, tail.events())

	for _, id := range []string{"e-1", "e-2", "e-3", "e-4", "e-5"} {
		tail.add(model.ChatEvent{ID: id})
	}

	var ids []string
	for _, ev := range tail.events() {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"e-3", "e-4", "e-5"}, ids)
}
