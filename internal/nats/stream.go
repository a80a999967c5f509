package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
	"github.com/telivi-ai/knowledge-assistant/pkg/metrics"
)

const (
	// StreamName is the name of the events stream.
	StreamName = "TELIVI_EVENTS"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "telivi"

	// AdminScope replaces the session token for directory events.
	AdminScope = "admin"

	// WorkspaceScope replaces the session token for workspace events that
	// are not about one session.
	WorkspaceScope = "workspace"

	defaultQueueSize = 256
	publishTimeout   = 5 * time.Second
	fetchBatchSize   = 100
)

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("event log closed")

	// ErrNoStream is returned by RecentEvents when the log cannot read
	// the stream back.
	ErrNoStream = errors.New("event stream not available")
)

// EnsureStream creates the events stream if it does not exist.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Knowledge assistant workspace and admin events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject an event is published on:
// telivi.<user>.<session|admin|workspace>.event.<type>.
func EventSubject(ev *model.ChatEvent) string {
	user := token(ev.UserID)
	if user == "" {
		user = "anonymous"
	}

	scope := token(ev.SessionID)
	if scope == "" {
		switch ev.Type {
		case model.EventDirectoryChanged, model.EventSyncRequested:
			scope = AdminScope
		default:
			scope = WorkspaceScope
		}
	}

	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, user, scope, token(string(ev.Type)))
}

// UserFilter returns the filter subject for all events of a user.
func UserFilter(userID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, token(userID))
}

// token makes s safe to use as one subject token.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// publisher is the part of jetstream.JetStream the event log writes with.
type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventLogOption configures an EventLog.
type EventLogOption func(*EventLog)

// WithQueueSize sets how many events may wait for publication.
func WithQueueSize(n int) EventLogOption {
	return func(l *EventLog) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// EventLog publishes events to JetStream from a background worker so
// callers never wait on the network. Events are dropped when the queue
// is full; failures are logged and counted, never returned.
type EventLog struct {
	js        jetstream.JetStream
	pub       publisher
	logger    *logger.Logger
	queueSize int

	mu     sync.RWMutex
	queue  chan *model.ChatEvent
	closed bool
	done   chan struct{}
}

// NewEventLog starts an event log writing through client.
func NewEventLog(client *Client, log *logger.Logger, opts ...EventLogOption) *EventLog {
	return newEventLog(client.JetStream(), client.JetStream(), log, opts...)
}

func newEventLog(js jetstream.JetStream, pub publisher, log *logger.Logger, opts ...EventLogOption) *EventLog {
	if log == nil {
		log = logger.Nop()
	}
	l := &EventLog{
		js:        js,
		pub:       pub,
		logger:    log.Named("eventlog"),
		queueSize: defaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.queue = make(chan *model.ChatEvent, l.queueSize)

	go l.run()
	return l
}

// Publish queues ev for publication. It never blocks.
func (l *EventLog) Publish(_ context.Context, ev *model.ChatEvent) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return ErrClosed
	}

	cp := *ev
	select {
	case l.queue <- &cp:
	default:
		metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "dropped").Inc()
		l.logger.Warn("event queue full, dropping event",
			zap.String("type", string(ev.Type)),
			zap.String("user_id", ev.UserID),
		)
	}
	return nil
}

// Close publishes what is already queued and stops the worker.
func (l *EventLog) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
}

func (l *EventLog) run() {
	defer close(l.done)

	for ev := range l.queue {
		l.write(ev)
	}
}

func (l *EventLog) write(ev *model.ChatEvent) {
	status := "success"
	defer func() {
		metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), status).Inc()
	}()

	data, err := json.Marshal(ev)
	if err != nil {
		status = "error"
		l.logger.Error("failed to marshal event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	subject := EventSubject(ev)
	if _, err := l.pub.Publish(ctx, subject, data, jetstream.WithMsgID(ev.ID)); err != nil {
		status = "error"
		l.logger.Warn("failed to publish event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

// RecentEvents returns up to limit of the latest events in the stream,
// oldest first. A non-empty userID narrows the feed to that user's events.
func (l *EventLog) RecentEvents(ctx context.Context, userID string, limit int) ([]model.ChatEvent, error) {
	if limit <= 0 {
		return []model.ChatEvent{}, nil
	}
	if l.js == nil {
		return nil, ErrNoStream
	}

	stream, err := l.js.Stream(ctx, StreamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}
	if info.State.Msgs == 0 {
		return []model.ChatEvent{}, nil
	}

	consumer, err := l.js.CreateConsumer(ctx, StreamName, recentConsumerConfig(info.State, userID, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	tail := newEventTail(limit)
	remaining := consumer.CachedInfo().NumPending
	for remaining > 0 {
		size := fetchBatchSize
		if remaining < uint64(size) {
			size = int(remaining)
		}

		batch, err := consumer.Fetch(size, jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events: %w", err)
		}

		got := 0
		for msg := range batch.Messages() {
			got++
			var ev model.ChatEvent
			if err := json.Unmarshal(msg.Data(), &ev); err != nil {
				l.logger.Debug("skipping malformed event", zap.String("subject", msg.Subject()), zap.Error(err))
				continue
			}
			if meta, err := msg.Metadata(); err == nil {
				ev.Sequence = meta.Sequence.Stream
			}
			tail.add(ev)
		}

		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("batch error: %w", err)
		}
		if got == 0 {
			break
		}
		remaining -= uint64(got)
	}

	return tail.events(), nil
}

// recentConsumerConfig builds the ephemeral consumer RecentEvents reads
// with. The unfiltered feed starts limit messages before the end of the
// stream; a user feed has to scan that user's subjects from the start.
func recentConsumerConfig(state jetstream.StreamState, userID string, limit int) jetstream.ConsumerConfig {
	cfg := jetstream.ConsumerConfig{
		AckPolicy:         jetstream.AckNonePolicy,
		InactiveThreshold: 30 * time.Second,
	}

	if userID != "" {
		cfg.DeliverPolicy = jetstream.DeliverAllPolicy
		cfg.FilterSubject = UserFilter(userID)
		return cfg
	}

	start := state.FirstSeq
	if state.LastSeq >= uint64(limit) && state.LastSeq-uint64(limit)+1 > start {
		start = state.LastSeq - uint64(limit) + 1
	}
	cfg.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
	cfg.OptStartSeq = start
	return cfg
}

// eventTail keeps the last n events added to it.
type eventTail struct {
	buf []model.ChatEvent
	n   int
}

func newEventTail(n int) *eventTail {
	return &eventTail{buf: make([]model.ChatEvent, 0, n), n: n}
}

func (t *eventTail) add(ev model.ChatEvent) {
	if len(t.buf) == t.n {
		copy(t.buf, t.buf[1:])
		t.buf = t.buf[:t.n-1]
	}
	t.buf = append(t.buf, ev)
}

func (t *eventTail) events() []model.ChatEvent {
	return t.buf
}
