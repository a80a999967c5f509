package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
)

const (
	headerHeight = 3
	inputHeight  = 3
	statusHeight = 1
	borderHeight = 2
)

// Workspace is the chat workspace the terminal client drives.
type Workspace interface {
	Send(ctx context.Context, text string) (*service.Submission, error)
	Active() (*model.Session, bool)
	Sessions() []model.SessionSummary
	SelectSession(ctx context.Context, id string) bool
	StartNewChat(ctx context.Context)
	ReplyPending() bool
	Settings() model.Settings
	Subscribe() (<-chan model.ChatEvent, func())
}

type (
	eventMsg struct {
		event model.ChatEvent
	}
	// closedMsg is sent when the workspace ends the subscription.
	closedMsg struct{}
)

// Model is the bubbletea model of the chat screen.
type Model struct {
	ws          Workspace
	events      <-chan model.ChatEvent
	unsubscribe func()

	theme    model.Theme
	styles   styles
	renderer *glamour.TermRenderer

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	pending bool
	ready   bool
	err     error

	width  int
	height int
}

// New creates the chat model and subscribes to ws.
func New(ws Workspace) Model {
	theme := ws.Settings().Theme

	ti := textinput.New()
	ti.Placeholder = "Ask anything..."
	ti.CharLimit = 4000
	ti.Prompt = "> "
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	st := newStyles(theme)
	s.Style = st.loading

	events, unsubscribe := ws.Subscribe()

	return Model{
		ws:          ws,
		events:      events,
		unsubscribe: unsubscribe,
		theme:       theme,
		styles:      st,
		input:       ti,
		spinner:     s,
		pending:     ws.ReplyPending(),
	}
}

// Init starts the cursor blink and the event loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForEvent(m.events),
	)
}

// waitForEvent delivers the next workspace event to Update.
func waitForEvent(ch <-chan model.ChatEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg{event: ev}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.unsubscribe()
			return m, tea.Quit

		case "enter":
			return m.send()

		case "ctrl+n":
			m.ws.StartNewChat(context.Background())
			m.err = nil
			m.refresh()
			return m, nil

		case "tab":
			m.cycle(1)
			return m, nil

		case "shift+tab":
			m.cycle(-1)
			return m, nil

		case "pgup", "pgdown":
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case eventMsg:
		if msg.event.Type == model.EventReplyPending {
			m.pending = msg.event.Pending
		}
		m.refresh()

		cmds := []tea.Cmd{waitForEvent(m.events)}
		if m.pending {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case closedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		if m.pending {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send submits the input. Empty input and input typed while a reply is
// pending are ignored and stay in the box.
func (m Model) send() (tea.Model, tea.Cmd) {
	_, err := m.ws.Send(context.Background(), m.input.Value())
	switch {
	case errors.Is(err, service.ErrEmptyInput), errors.Is(err, service.ErrReplyPending):
		return m, nil
	case err != nil:
		m.err = err
		return m, nil
	}

	m.input.Reset()
	m.err = nil
	m.pending = true
	m.refresh()
	return m, m.spinner.Tick
}

// cycle selects the session step positions away from the active one in
// sidebar order.
func (m *Model) cycle(step int) {
	sessions := m.ws.Sessions()
	n := len(sessions)
	if n == 0 {
		return
	}

	next := 0
	if step < 0 {
		next = n - 1
	}
	for i, s := range sessions {
		if s.Active {
			next = ((i+step)%n + n) % n
			break
		}
	}

	m.ws.SelectSession(context.Background(), sessions[next].ID)
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	contentWidth := width - 4
	vpHeight := height - headerHeight - inputHeight - statusHeight - borderHeight*2
	if vpHeight < 5 {
		vpHeight = 5
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.input.Width = contentWidth - 6

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(string(m.theme)),
		glamour.WithWordWrap(contentWidth-4),
	)
	if err == nil {
		m.renderer = renderer
	}
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderSession())
	m.viewport.GotoBottom()
}

// renderSession renders the messages of the active session.
func (m Model) renderSession() string {
	sess, ok := m.ws.Active()
	if !ok {
		return ""
	}

	var b strings.Builder
	for i, msg := range sess.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if msg.Role == model.RoleUser {
			b.WriteString(m.styles.userLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(m.styles.userBubble.Render(msg.Content))
			continue
		}

		b.WriteString(m.styles.replyLabel.Render("Telivi.ai"))
		b.WriteString("\n")
		b.WriteString(m.styles.replyBubble.Render(m.renderMarkdown(msg.Content)))
		for _, doc := range msg.ReferenceDocuments {
			b.WriteString("\n")
			b.WriteString(m.renderCard(doc))
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// renderCard renders one supporting document.
func (m Model) renderCard(doc model.ReferenceDocument) string {
	meta := fmt.Sprintf("Author: %s  •  Last modified: %s", doc.Author, doc.LastUpdated)
	return m.styles.card.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.cardTitle.Render(doc.Title),
		m.styles.cardMeta.Render(meta),
		m.styles.badge.Render(string(doc.Source)),
	))
}

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return m.styles.loading.Render("  Initializing...")
	}

	contentWidth := m.width - 4
	sections := make([]string, 0, 5)

	title := "New chat"
	sess, hasSession := m.ws.Active()
	if hasSession {
		title = sess.Title
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.title.Render("Telivi.ai"),
		m.styles.hint.Render("  •  "),
		m.styles.subtitle.Render(title),
	)
	sections = append(sections, m.styles.header.Width(contentWidth).Render(header))

	body := m.viewport.View()
	if !hasSession || len(sess.Messages) == 0 {
		body = m.renderWelcome()
	}
	sections = append(sections, m.styles.messages.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(body))

	input := m.input.View()
	if m.pending {
		input = m.spinner.View() + m.styles.loading.Render(" Searching the knowledge base...")
	}
	sections = append(sections, m.styles.input.Width(contentWidth).Render(input))

	sections = append(sections, m.renderStatusBar())
	if m.err != nil {
		sections = append(sections, m.styles.err.Render("Error: "+m.err.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	content := lipgloss.JoinVertical(lipgloss.Center,
		m.styles.welcomeHead.Width(width).Render("Welcome to Telivi.ai"),
		"",
		m.styles.welcome.Width(width).Render("How can I help you with your organization's knowledge today?"),
	)

	top := (m.viewport.Height - lipgloss.Height(content)) / 2
	if top < 0 {
		top = 0
	}
	return strings.Repeat("\n", top) + content
}

func (m Model) renderStatusBar() string {
	keys := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+n", "new chat"},
		{"tab", "next chat"},
		{"esc", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, m.styles.statusKey.Render(k.key)+" "+m.styles.statusDesc.Render(k.desc))
	}
	return " " + strings.Join(parts, m.styles.hint.Render("  │  "))
}

// RunChat runs the chat screen until the user quits.
func RunChat(ws Workspace) error {
	p := tea.NewProgram(New(ws), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
