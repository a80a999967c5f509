package model

// Theme is the display theme of the client.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultAssistantPrompt is the prompt shown in profile settings.
const DefaultAssistantPrompt = "You are a helpful AI assistant with access to organizational knowledge."

// Settings are the profile settings of a workspace. They are display-only.
type Settings struct {
	Theme           Theme  `json:"theme"`
	Role            string `json:"role"`
	AssistantPrompt string `json:"assistant_prompt"`
	EmailAlerts     bool   `json:"email_alerts"`
	BrowserAlerts   bool   `json:"browser_alerts"`
	WeeklyDigest    bool   `json:"weekly_digest"`
}

// DefaultSettings returns the settings a new workspace starts with.
func DefaultSettings() Settings {
	return Settings{
		Theme:           ThemeLight,
		Role:            string(UserRoleAdmin),
		AssistantPrompt: DefaultAssistantPrompt,
		EmailAlerts:     true,
		BrowserAlerts:   true,
		WeeklyDigest:    false,
	}
}

// AdminTab names a tab of the admin dashboard.
type AdminTab string

const (
	TabUsers     AdminTab = "users"
	TabTeams     AdminTab = "teams"
	TabKnowledge AdminTab = "knowledge"
	TabAnalytics AdminTab = "analytics"
)

// Valid reports whether t is a known tab.
func (t AdminTab) Valid() bool {
	switch t {
	case TabUsers, TabTeams, TabKnowledge, TabAnalytics:
		return true
	}
	return false
}

// ViewState holds the UI toggles owned by the top-level view.
type ViewState struct {
	SidebarOpen bool     `json:"sidebar_open"`
	ProfileOpen bool     `json:"profile_open"`
	AdminTab    AdminTab `json:"admin_tab"`
}

// UpdateViewRequest changes view toggles. Nil fields are left unchanged.
type UpdateViewRequest struct {
	SidebarOpen *bool     `json:"sidebar_open,omitempty"`
	ProfileOpen *bool     `json:"profile_open,omitempty"`
	AdminTab    *AdminTab `json:"admin_tab,omitempty"`
}
