// Package tui provides the terminal chat client for the knowledge assistant.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

// palette holds the colors of one display theme.
type palette struct {
	primary lipgloss.Color
	accent  lipgloss.Color
	text    lipgloss.Color
	dim     lipgloss.Color
	border  lipgloss.Color
	surface lipgloss.Color
	danger  lipgloss.Color
}

var palettes = map[model.Theme]palette{
	model.ThemeLight: {
		primary: lipgloss.Color("#2563eb"),
		accent:  lipgloss.Color("#4f46e5"),
		text:    lipgloss.Color("#111827"),
		dim:     lipgloss.Color("#6b7280"),
		border:  lipgloss.Color("#d1d5db"),
		surface: lipgloss.Color("#f3f4f6"),
		danger:  lipgloss.Color("#dc2626"),
	},
	model.ThemeDark: {
		primary: lipgloss.Color("#60a5fa"),
		accent:  lipgloss.Color("#818cf8"),
		text:    lipgloss.Color("#f9fafb"),
		dim:     lipgloss.Color("#9ca3af"),
		border:  lipgloss.Color("#374151"),
		surface: lipgloss.Color("#1f2937"),
		danger:  lipgloss.Color("#f87171"),
	},
}

// styles is the set of lipgloss styles the chat view renders with.
type styles struct {
	header      lipgloss.Style
	title       lipgloss.Style
	subtitle    lipgloss.Style
	hint        lipgloss.Style
	messages    lipgloss.Style
	userLabel   lipgloss.Style
	userBubble  lipgloss.Style
	replyLabel  lipgloss.Style
	replyBubble lipgloss.Style
	card        lipgloss.Style
	cardTitle   lipgloss.Style
	cardMeta    lipgloss.Style
	badge       lipgloss.Style
	input       lipgloss.Style
	loading     lipgloss.Style
	statusKey   lipgloss.Style
	statusDesc  lipgloss.Style
	welcome     lipgloss.Style
	welcomeHead lipgloss.Style
	err         lipgloss.Style
}

func newStyles(theme model.Theme) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[model.ThemeLight]
	}

	return styles{
		header: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Padding(0, 1),
		title:    lipgloss.NewStyle().Bold(true).Foreground(p.primary),
		subtitle: lipgloss.NewStyle().Foreground(p.dim),
		hint:     lipgloss.NewStyle().Foreground(p.dim),
		messages: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border),
		userLabel:   lipgloss.NewStyle().Bold(true).Foreground(p.primary),
		userBubble:  lipgloss.NewStyle().Foreground(p.text).PaddingLeft(2),
		replyLabel:  lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		replyBubble: lipgloss.NewStyle().Foreground(p.text),
		card: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(p.primary).
			MarginLeft(2).
			PaddingLeft(1),
		cardTitle: lipgloss.NewStyle().Bold(true).Foreground(p.text),
		cardMeta:  lipgloss.NewStyle().Foreground(p.dim),
		badge: lipgloss.NewStyle().
			Foreground(p.text).
			Background(p.surface).
			Padding(0, 1),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.primary).
			Padding(0, 1),
		loading:     lipgloss.NewStyle().Foreground(p.accent),
		statusKey:   lipgloss.NewStyle().Bold(true).Foreground(p.primary),
		statusDesc:  lipgloss.NewStyle().Foreground(p.dim),
		welcome:     lipgloss.NewStyle().Foreground(p.dim).Align(lipgloss.Center),
		welcomeHead: lipgloss.NewStyle().Bold(true).Foreground(p.primary).Align(lipgloss.Center),
		err:         lipgloss.NewStyle().Foreground(p.danger).Padding(0, 1),
	}
}
