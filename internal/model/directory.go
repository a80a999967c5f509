package model

// UserRole is the access role of a directory user.
type UserRole string

const (
	UserRoleAdmin      UserRole = "Admin"
	UserRoleMaintainer UserRole = "Maintainer"
	UserRoleMember     UserRole = "Member"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleMaintainer, UserRoleMember:
		return true
	}
	return false
}

// User is an organization member managed from the admin dashboard.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	IsActive  bool     `json:"is_active"`
	Teams     []string `json:"teams"`
	LastLogin string   `json:"last_login"`
}

// UserRequest creates or edits a user.
type UserRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	IsActive bool     `json:"is_active"`
	Teams    []string `json:"teams"`
}

// Team groups users.
type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"member_count"`
	CreatedAt   string `json:"created_at"`
}

// TeamRequest creates or edits a team.
type TeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ConnectionType is the kind of knowledge source.
type ConnectionType string

const (
	ConnectionConfluence ConnectionType = "confluence"
	ConnectionJira       ConnectionType = "jira"
	ConnectionGitHub     ConnectionType = "github"
	ConnectionSharePoint ConnectionType = "sharepoint"
	ConnectionOther      ConnectionType = "other"
)

// ConnectionStatus is the state of a knowledge-source connection.
type ConnectionStatus string

const (
	ConnectionActive   ConnectionStatus = "active"
	ConnectionInactive ConnectionStatus = "inactive"
	ConnectionError    ConnectionStatus = "error"
)

// AuthType is how a connection authenticates against its source.
type AuthType string

const (
	AuthOAuth AuthType = "oauth"
	AuthToken AuthType = "token"
	AuthBasic AuthType = "basic"
)

// Connection is a knowledge-source connection.
type Connection struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        ConnectionType   `json:"type"`
	Status      ConnectionStatus `json:"status"`
	LastSync    string           `json:"last_sync"`
	DocsIndexed int              `json:"docs_indexed"`
	AuthType    AuthType         `json:"auth_type"`
}

// ConnectionRequest adds a knowledge-source connection.
type ConnectionRequest struct {
	Name     string         `json:"name"`
	Type     ConnectionType `json:"type"`
	AuthType AuthType       `json:"auth_type"`
}

// ConnectionTypeInfo describes a connection type offered in the add dialog.
type ConnectionTypeInfo struct {
	ID   ConnectionType `json:"id"`
	Name string         `json:"name"`
}

// Valid reports whether t is a known connection type.
func (t ConnectionType) Valid() bool {
	switch t {
	case ConnectionConfluence, ConnectionJira, ConnectionGitHub, ConnectionSharePoint, ConnectionOther:
		return true
	}
	return false
}

// Valid reports whether a is a known auth type.
func (a AuthType) Valid() bool {
	switch a {
	case AuthOAuth, AuthToken, AuthBasic:
		return true
	}
	return false
}
