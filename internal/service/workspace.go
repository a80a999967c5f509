package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/llm"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

// AnonymousUser owns the workspace when authentication is disabled.
const AnonymousUser = "anonymous"

// subscriberBuffer is the channel size handed to Subscribe callers.
const subscriberBuffer = 32

// WorkspaceConfig holds what every workspace is built from.
type WorkspaceConfig struct {
	Responder    llm.Responder
	Sink         EventSink
	Scheduler    Scheduler
	ReplyTimeout time.Duration

	// ReplyDelay is how long a reply stays pending. Zero selects
	// DefaultReplyDelay unless ReplyDelaySet is true, in which case
	// replies are scheduled at once.
	ReplyDelay    time.Duration
	ReplyDelaySet bool

	Logger       *logger.Logger

	// Optional id generator and clock, for tests.
	NewID func() string
	Now   func() time.Time
}

// Workspace is one user's chat: sessions, the reply pipeline, view
// toggles and profile settings.
type Workspace struct {
	userID   string
	store    *SessionStore
	pipeline *Pipeline
	sink     EventSink
	logger   *logger.Logger
	newID    func() string
	now      func() time.Time

	mu       sync.RWMutex
	view     model.ViewState
	settings model.Settings

	subMu   sync.Mutex
	subs    map[int]chan model.ChatEvent
	nextSub int
}

// NewWorkspace builds an empty workspace for userID.
func NewWorkspace(userID string, cfg WorkspaceConfig) *Workspace {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	responder := cfg.Responder
	if responder == nil {
		responder = llm.NewKnowledgeBaseResponder()
	}
	newID := cfg.NewID
	if newID == nil {
		newID = newUUID
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	w := &Workspace{
		userID:   userID,
		store:    NewSessionStore(WithIDGenerator(newID), WithClock(now)),
		sink:     sink,
		logger:   log.With(zap.String("user_id", userID)),
		newID:    newID,
		now:      now,
		view:     model.ViewState{AdminTab: model.TabUsers},
		settings: model.DefaultSettings(),
		subs:     make(map[int]chan model.ChatEvent),
	}

	opts := []PipelineOption{
		WithEventSink(w),
		WithLogger(w.logger),
		WithUserID(userID),
		WithPrompt(w.prompt),
		WithMessageIDs(newID),
		WithReplyTimeout(cfg.ReplyTimeout),
	}
	if cfg.ReplyDelaySet || cfg.ReplyDelay > 0 {
		opts = append(opts, WithReplyDelay(max(cfg.ReplyDelay, 0)))
	}
	if cfg.Scheduler != nil {
		opts = append(opts, WithScheduler(cfg.Scheduler))
	}
	w.pipeline = NewPipeline(w.store, responder, opts...)
	w.pipeline.now = now

	return w
}

// UserID returns the owner of the workspace.
func (w *Workspace) UserID() string {
	return w.userID
}

// Send submits a user message. See Pipeline.Submit.
func (w *Workspace) Send(ctx context.Context, text string) (*Submission, error) {
	return w.pipeline.Submit(ctx, text)
}

// Sessions returns the sidebar entries, most recent first.
func (w *Workspace) Sessions() []model.SessionSummary {
	return w.store.Summaries()
}

// Session returns one session by id.
func (w *Workspace) Session(id string) (*model.Session, bool) {
	return w.store.Get(id)
}

// Active returns the active session, if any.
func (w *Workspace) Active() (*model.Session, bool) {
	return w.store.Active()
}

// SelectSession makes id active and closes the sidebar. Unknown ids leave
// the active session unchanged; the return value reports whether id exists.
func (w *Workspace) SelectSession(ctx context.Context, id string) bool {
	if _, ok := w.store.Get(id); !ok {
		return false
	}
	if w.store.SetActive(id) {
		w.Publish(ctx, w.event(model.EventActiveChanged, id))
	}
	w.mu.Lock()
	w.view.SidebarOpen = false
	w.mu.Unlock()
	return true
}

// StartNewChat leaves no session active so the next message opens a new
// one. Existing sessions are kept as they are.
func (w *Workspace) StartNewChat(ctx context.Context) {
	if w.store.ClearActive() {
		w.Publish(ctx, w.event(model.EventActiveChanged, ""))
	}
	w.mu.Lock()
	w.view.SidebarOpen = false
	w.mu.Unlock()
}

// ReplyPending reports whether a reply is on its way.
func (w *Workspace) ReplyPending() bool {
	return w.pipeline.Pending()
}

// State returns a snapshot of the workspace.
func (w *Workspace) State() model.WorkspaceState {
	w.mu.RLock()
	view := w.view
	w.mu.RUnlock()

	return model.WorkspaceState{
		ActiveID:     w.store.ActiveID(),
		ReplyPending: w.pipeline.Pending(),
		SessionCount: w.store.Len(),
		View:         view,
	}
}

// View returns the current view toggles.
func (w *Workspace) View() model.ViewState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.view
}

// UpdateView applies the non-nil fields of req.
func (w *Workspace) UpdateView(req *model.UpdateViewRequest) (model.ViewState, error) {
	if req.AdminTab != nil && !req.AdminTab.Valid() {
		return model.ViewState{}, fmt.Errorf("%w: unknown admin tab %q", ErrInvalidInput, *req.AdminTab)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if req.SidebarOpen != nil {
		w.view.SidebarOpen = *req.SidebarOpen
	}
	if req.ProfileOpen != nil {
		w.view.ProfileOpen = *req.ProfileOpen
	}
	if req.AdminTab != nil {
		w.view.AdminTab = *req.AdminTab
	}
	return w.view, nil
}

// Settings returns the profile settings.
func (w *Workspace) Settings() model.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// UpdateSettings replaces the editable settings. Role is read-only and
// kept as it was.
func (w *Workspace) UpdateSettings(s model.Settings) (model.Settings, error) {
	switch s.Theme {
	case model.ThemeLight, model.ThemeDark:
	default:
		return model.Settings{}, fmt.Errorf("%w: unknown theme %q", ErrInvalidInput, s.Theme)
	}
	if strings.TrimSpace(s.AssistantPrompt) == "" {
		s.AssistantPrompt = model.DefaultAssistantPrompt
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	s.Role = w.settings.Role
	w.settings = s
	return w.settings, nil
}

// Subscribe returns a channel of workspace events and a function that
// ends the subscription. Events are dropped for subscribers that fall
// behind.
func (w *Workspace) Subscribe() (<-chan model.ChatEvent, func()) {
	ch := make(chan model.ChatEvent, subscriberBuffer)

	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subMu.Unlock()

	return ch, func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()

		if _, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(ch)
		}
	}
}

// Publish fans event out to subscribers and forwards it to the sink.
func (w *Workspace) Publish(ctx context.Context, event *model.ChatEvent) error {
	w.subMu.Lock()
	for _, ch := range w.subs {
		select {
		case ch <- *event:
		default:
			w.logger.Debug("subscriber behind, dropping event", zap.String("type", string(event.Type)))
		}
	}
	w.subMu.Unlock()

	return w.sink.Publish(ctx, event)
}

// Close stops the pipeline and ends all subscriptions.
func (w *Workspace) Close() {
	w.pipeline.Close()

	w.subMu.Lock()
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
	w.subMu.Unlock()
}

func (w *Workspace) prompt() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings.AssistantPrompt
}

func (w *Workspace) event(typ model.EventType, sessionID string) *model.ChatEvent {
	return &model.ChatEvent{
		ID:        w.newID(),
		UserID:    w.userID,
		SessionID: sessionID,
		Type:      typ,
		CreatedAt: w.now(),
	}
}

// Workspaces hands out one workspace per user, created on first use.
type Workspaces struct {
	cfg WorkspaceConfig

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewWorkspaces creates an empty registry.
func NewWorkspaces(cfg WorkspaceConfig) *Workspaces {
	return &Workspaces{
		cfg:   cfg,
		items: make(map[string]*Workspace),
	}
}

// Get returns the workspace of userID, creating it if needed.
func (ws *Workspaces) Get(userID string) *Workspace {
	if userID == "" {
		userID = AnonymousUser
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.items[userID]
	if !ok {
		w = NewWorkspace(userID, ws.cfg)
		ws.items[userID] = w
	}
	return w
}

// Len returns the number of workspaces created so far.
func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.items)
}

// Close closes every workspace.
func (ws *Workspaces) Close() {
	ws.mu.Lock()
	items := ws.items
	ws.items = make(map[string]*Workspace)
	ws.mu.Unlock()

	for _, w := range items {
		w.Close()
	}
}
