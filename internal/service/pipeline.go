package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/llm"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
	"github.com/telivi-ai/knowledge-assistant/pkg/metrics"
	"github.com/telivi-ai/knowledge-assistant/pkg/tracing"
)

const (
	// DefaultReplyDelay is how long a reply stays pending.
	DefaultReplyDelay = 2 * time.Second

	// DefaultReplyTimeout bounds a single responder call.
	DefaultReplyTimeout = 60 * time.Second

	// FallbackReply is appended when the responder fails.
	FallbackReply = "I couldn't reach the knowledge base just now. Please try asking again."
)

// EventSink receives workspace events. Publish is called while the
// pipeline holds its lock and must not block.
type EventSink interface {
	Publish(ctx context.Context, event *model.ChatEvent) error
}

// NopSink discards events.
type NopSink struct{}

// Publish does nothing.
func (NopSink) Publish(context.Context, *model.ChatEvent) error { return nil }

// Submission describes an accepted user message.
type Submission struct {
	Session        *model.Session
	Message        model.Message
	SessionCreated bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithReplyDelay sets how long replies stay pending.
func WithReplyDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.delay = d
	}
}

// WithReplyTimeout bounds each responder call.
func WithReplyTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.replyTimeout = d
		}
	}
}

// WithScheduler replaces time.AfterFunc. The scheduler must not run the
// callback synchronously from AfterFunc.
func WithScheduler(s Scheduler) PipelineOption {
	return func(p *Pipeline) {
		p.scheduler = s
	}
}

// WithEventSink sets where events go.
func WithEventSink(sink EventSink) PipelineOption {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log *logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = log
	}
}

// WithPrompt sets the source of the assistant prompt handed to responders.
func WithPrompt(fn func() string) PipelineOption {
	return func(p *Pipeline) {
		p.prompt = fn
	}
}

// WithUserID tags events and responder context with the workspace owner.
func WithUserID(id string) PipelineOption {
	return func(p *Pipeline) {
		p.userID = id
	}
}

// WithMessageIDs overrides message and event id generation.
func WithMessageIDs(fn func() string) PipelineOption {
	return func(p *Pipeline) {
		p.newID = fn
	}
}

// Pipeline runs the send → delayed reply cycle of one workspace:
// Idle → AwaitingReply on an accepted Submit, back to Idle when the reply
// is appended. Only one reply is pending at a time.
type Pipeline struct {
	store     *SessionStore
	responder llm.Responder
	sink      EventSink
	scheduler Scheduler
	logger    *logger.Logger
	tracer    trace.Tracer

	userID       string
	delay        time.Duration
	replyTimeout time.Duration
	prompt       func() string
	newID        func() string
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending bool
	timer   Timer
	closed  bool
}

// NewPipeline creates a pipeline that writes to store and asks responder
// for replies.
func NewPipeline(store *SessionStore, responder llm.Responder, opts ...PipelineOption) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		store:        store,
		responder:    responder,
		sink:         NopSink{},
		scheduler:    TimeScheduler,
		logger:       logger.Nop(),
		tracer:       tracing.Tracer("telivi/pipeline"),
		delay:        DefaultReplyDelay,
		replyTimeout: DefaultReplyTimeout,
		prompt:       func() string { return model.DefaultAssistantPrompt },
		newID:        newUUID,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pending reports whether a reply is scheduled but not yet delivered.
func (p *Pipeline) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Submit appends text as a user message to the active session, creating
// one if none is active, and schedules the assistant reply. Empty input
// returns ErrEmptyInput and a pending reply returns ErrReplyPending; both
// leave every session untouched.
func (p *Pipeline) Submit(ctx context.Context, text string) (*Submission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPipelineClosed
	}
	if p.pending {
		return nil, ErrReplyPending
	}

	ctx = context.WithoutCancel(ctx)

	sess, ok := p.store.Active()
	created := false
	if !ok {
		sess = p.store.Create(text)
		created = true
		metrics.SessionsTotal.Inc()
		p.publish(ctx, p.event(model.EventSessionCreated, sess.ID, nil))
	}

	msg := model.Message{
		ID:        p.newID(),
		SessionID: sess.ID,
		Role:      model.RoleUser,
		Content:   text,
		CreatedAt: p.now(),
	}
	if err := p.store.Append(sess.ID, msg); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}
	sess.Messages = append(sess.Messages, msg)
	metrics.RecordMessage(string(model.RoleUser))

	sc := &llm.SessionContext{
		UserID:    p.userID,
		SessionID: sess.ID,
		Title:     sess.Title,
		Prompt:    p.prompt(),
		History:   cloneMessages(sess.Messages),
	}

	p.pending = true
	metrics.RepliesPending.Inc()

	started := time.Now()
	p.wg.Add(1)
	p.timer = p.scheduler.AfterFunc(p.delay, func() {
		defer p.wg.Done()
		p.deliver(sc, started)
	})

	appended := msg.Clone()
	p.publish(ctx,
		p.event(model.EventMessageAppended, sess.ID, &appended),
		p.pendingEvent(sess.ID, true),
	)

	p.logger.Debug("user message accepted",
		zap.String("session_id", sess.ID),
		zap.Bool("session_created", created),
	)

	return &Submission{
		Session:        sess,
		Message:        msg,
		SessionCreated: created,
	}, nil
}

// deliver produces the reply for sc and appends it to the session it was
// scheduled against, whichever session is active by now.
func (p *Pipeline) deliver(sc *llm.SessionContext, started time.Time) {
	ctx, cancel := context.WithTimeout(p.ctx, p.replyTimeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "pipeline.reply",
		trace.WithAttributes(
			attribute.String("session.id", sc.SessionID),
			attribute.String("responder", p.responder.Name()),
		),
	)
	defer span.End()

	status := "success"
	reply, err := p.responder.Respond(ctx, sc)
	if err != nil || reply == nil {
		status = "error"
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		p.logger.Warn("responder failed, using fallback reply",
			zap.String("session_id", sc.SessionID),
			zap.String("responder", p.responder.Name()),
			zap.Error(err),
		)
		reply = &model.Message{Content: FallbackReply}
	}

	msg := reply.Clone()
	msg.Role = model.RoleAssistant
	msg.SessionID = sc.SessionID
	if msg.ID == "" {
		msg.ID = p.newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = p.now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	appendErr := p.store.Append(sc.SessionID, msg)
	p.pending = false
	p.timer = nil
	metrics.RepliesPending.Dec()
	metrics.RecordReply(p.responder.Name(), status, time.Since(started).Seconds())

	if appendErr != nil {
		metrics.DroppedMessagesTotal.Inc()
		p.logger.Warn("dropping reply for missing session",
			zap.String("session_id", sc.SessionID),
			zap.Error(appendErr),
		)
		p.publish(p.ctx, p.pendingEvent(sc.SessionID, false))
		return
	}

	metrics.RecordMessage(string(model.RoleAssistant))
	appended := msg.Clone()
	p.publish(p.ctx,
		p.event(model.EventMessageAppended, sc.SessionID, &appended),
		p.pendingEvent(sc.SessionID, false),
	)
}

// Close cancels a scheduled reply and waits for one already running.
// Session switches never cancel replies; Close is for shutdown.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	t := p.timer
	p.timer = nil
	if p.pending {
		p.pending = false
		metrics.RepliesPending.Dec()
	}
	p.mu.Unlock()

	p.cancel()
	if t != nil && t.Stop() {
		p.wg.Done()
	}
	p.wg.Wait()
}

func (p *Pipeline) event(typ model.EventType, sessionID string, msg *model.Message) *model.ChatEvent {
	return &model.ChatEvent{
		ID:        p.newID(),
		UserID:    p.userID,
		SessionID: sessionID,
		Type:      typ,
		Message:   msg,
		CreatedAt: p.now(),
	}
}

func (p *Pipeline) pendingEvent(sessionID string, pending bool) *model.ChatEvent {
	ev := p.event(model.EventReplyPending, sessionID, nil)
	ev.Pending = pending
	return ev
}

func (p *Pipeline) publish(ctx context.Context, events ...*model.ChatEvent) {
	for _, ev := range events {
		if err := p.sink.Publish(ctx, ev); err != nil {
			p.logger.Warn("failed to publish event",
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

func cloneMessages(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].Clone()
	}
	return out
}
