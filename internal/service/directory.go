package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
	"github.com/telivi-ai/knowledge-assistant/pkg/metrics"
)

const never = "Never"

// Directory kinds used in events and metrics.
const (
	KindUser       = "user"
	KindTeam       = "team"
	KindConnection = "connection"
)

var connectionTypes = []model.ConnectionTypeInfo{
	{ID: model.ConnectionConfluence, Name: "Confluence"},
	{ID: model.ConnectionJira, Name: "Jira"},
	{ID: model.ConnectionGitHub, Name: "GitHub"},
	{ID: model.ConnectionSharePoint, Name: "SharePoint"},
	{ID: model.ConnectionOther, Name: "Other"},
}

// ConnectionTypes returns the connection types offered when adding a
// knowledge source.
func ConnectionTypes() []model.ConnectionTypeInfo {
	out := make([]model.ConnectionTypeInfo, len(connectionTypes))
	copy(out, connectionTypes)
	return out
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithDirectorySink sets where directory events go.
func WithDirectorySink(sink EventSink) DirectoryOption {
	return func(d *Directory) {
		d.sink = sink
	}
}

// WithDirectoryLogger sets the directory logger.
func WithDirectoryLogger(log *logger.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = log
	}
}

// WithActor sets how the acting user is read from a request context.
func WithActor(fn func(context.Context) string) DirectoryOption {
	return func(d *Directory) {
		d.actor = fn
	}
}

// WithDirectoryIDs overrides record id generation.
func WithDirectoryIDs(fn func() string) DirectoryOption {
	return func(d *Directory) {
		d.newID = fn
	}
}

// WithDirectoryClock overrides the time source.
func WithDirectoryClock(fn func() time.Time) DirectoryOption {
	return func(d *Directory) {
		d.now = fn
	}
}

// WithoutSeed starts the directory empty.
func WithoutSeed() DirectoryOption {
	return func(d *Directory) {
		d.seed = false
	}
}

// Directory manages the users, teams and knowledge-source connections of
// the admin dashboard.
type Directory struct {
	users       *Registry[model.User]
	teams       *Registry[model.Team]
	connections *Registry[model.Connection]

	sink   EventSink
	logger *logger.Logger
	actor  func(context.Context) string
	newID  func() string
	now    func() time.Time
	seed   bool
}

// NewDirectory creates a directory seeded with the demo organization.
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		users: NewRegistry(func(u model.User) string { return u.ID }, func(u model.User) model.User {
			u.Teams = append([]string(nil), u.Teams...)
			return u
		}),
		teams:       NewRegistry(func(t model.Team) string { return t.ID }, nil),
		connections: NewRegistry(func(c model.Connection) string { return c.ID }, nil),
		sink:        NopSink{},
		logger:      logger.Nop(),
		actor:       func(context.Context) string { return AnonymousUser },
		newID:       newUUID,
		now:         time.Now,
		seed:        true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.seed {
		for _, u := range seedUsers {
			_ = d.users.Create(u)
		}
		for _, t := range seedTeams {
			_ = d.teams.Create(t)
		}
		for _, c := range seedConnections {
			_ = d.connections.Create(c)
		}
	}
	return d
}

// Users returns the users whose name, email or role contains query,
// ignoring case. An empty query returns everyone.
func (d *Directory) Users(query string) []model.User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return d.users.List(nil)
	}
	return d.users.List(func(u model.User) bool {
		return containsFold(u.Name, q) || containsFold(u.Email, q) || containsFold(string(u.Role), q)
	})
}

// User returns one user.
func (d *Directory) User(id string) (model.User, error) {
	return d.users.Get(id)
}

// CreateUser adds a user who has never logged in.
func (d *Directory) CreateUser(ctx context.Context, req *model.UserRequest) (model.User, error) {
	if err := validateUser(req); err != nil {
		return model.User{}, err
	}
	u := model.User{
		ID:        d.newID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Role:      req.Role,
		IsActive:  req.IsActive,
		Teams:     nonNil(req.Teams),
		LastLogin: never,
	}
	if err := d.users.Create(u); err != nil {
		return model.User{}, err
	}
	d.changed(ctx, KindUser, "create", u.ID)
	return u, nil
}

// UpdateUser edits a user's profile fields.
func (d *Directory) UpdateUser(ctx context.Context, id string, req *model.UserRequest) (model.User, error) {
	if err := validateUser(req); err != nil {
		return model.User{}, err
	}
	u, err := d.users.Update(id, func(u *model.User) error {
		u.Name = strings.TrimSpace(req.Name)
		u.Email = strings.TrimSpace(req.Email)
		u.Role = req.Role
		u.IsActive = req.IsActive
		u.Teams = nonNil(req.Teams)
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	d.changed(ctx, KindUser, "update", id)
	return u, nil
}

// ToggleUser flips a user between active and inactive.
func (d *Directory) ToggleUser(ctx context.Context, id string) (model.User, error) {
	u, err := d.users.Update(id, func(u *model.User) error {
		u.IsActive = !u.IsActive
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	d.changed(ctx, KindUser, "toggle", id)
	return u, nil
}

// DeleteUser removes a user.
func (d *Directory) DeleteUser(ctx context.Context, id string) error {
	if err := d.users.Delete(id); err != nil {
		return err
	}
	d.changed(ctx, KindUser, "delete", id)
	return nil
}

// Teams returns the teams whose name or description contains query,
// ignoring case.
func (d *Directory) Teams(query string) []model.Team {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return d.teams.List(nil)
	}
	return d.teams.List(func(t model.Team) bool {
		return containsFold(t.Name, q) || containsFold(t.Description, q)
	})
}

// Team returns one team.
func (d *Directory) Team(id string) (model.Team, error) {
	return d.teams.Get(id)
}

// CreateTeam adds an empty team created today.
func (d *Directory) CreateTeam(ctx context.Context, req *model.TeamRequest) (model.Team, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	t := model.Team{
		ID:          d.newID(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		MemberCount: 0,
		CreatedAt:   d.now().Format(time.DateOnly),
	}
	if err := d.teams.Create(t); err != nil {
		return model.Team{}, err
	}
	d.changed(ctx, KindTeam, "create", t.ID)
	return t, nil
}

// UpdateTeam edits a team's name and description.
func (d *Directory) UpdateTeam(ctx context.Context, id string, req *model.TeamRequest) (model.Team, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	t, err := d.teams.Update(id, func(t *model.Team) error {
		t.Name = strings.TrimSpace(req.Name)
		t.Description = strings.TrimSpace(req.Description)
		return nil
	})
	if err != nil {
		return model.Team{}, err
	}
	d.changed(ctx, KindTeam, "update", id)
	return t, nil
}

// DeleteTeam removes a team.
func (d *Directory) DeleteTeam(ctx context.Context, id string) error {
	if err := d.teams.Delete(id); err != nil {
		return err
	}
	d.changed(ctx, KindTeam, "delete", id)
	return nil
}

// Connections returns every knowledge-source connection.
func (d *Directory) Connections() []model.Connection {
	return d.connections.List(nil)
}

// Connection returns one connection.
func (d *Directory) Connection(id string) (model.Connection, error) {
	return d.connections.Get(id)
}

// AddConnection registers a new, active knowledge source that has not been
// synced yet.
func (d *Directory) AddConnection(ctx context.Context, req *model.ConnectionRequest) (model.Connection, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.Connection{}, fmt.Errorf("%w: connection name is required", ErrInvalidInput)
	}
	if !req.Type.Valid() {
		return model.Connection{}, fmt.Errorf("%w: unknown connection type %q", ErrInvalidInput, req.Type)
	}
	auth := req.AuthType
	if auth == "" {
		auth = model.AuthOAuth
	}
	if !auth.Valid() {
		return model.Connection{}, fmt.Errorf("%w: unknown auth type %q", ErrInvalidInput, auth)
	}

	c := model.Connection{
		ID:       d.newID(),
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Status:   model.ConnectionActive,
		LastSync: never,
		AuthType: auth,
	}
	if err := d.connections.Create(c); err != nil {
		return model.Connection{}, err
	}
	d.changed(ctx, KindConnection, "create", c.ID)
	return c, nil
}

// ToggleConnection switches an active connection off and any other
// connection on.
func (d *Directory) ToggleConnection(ctx context.Context, id string) (model.Connection, error) {
	c, err := d.connections.Update(id, func(c *model.Connection) error {
		if c.Status == model.ConnectionActive {
			c.Status = model.ConnectionInactive
		} else {
			c.Status = model.ConnectionActive
		}
		return nil
	})
	if err != nil {
		return model.Connection{}, err
	}
	d.changed(ctx, KindConnection, "toggle", id)
	return c, nil
}

// SyncConnection requests a re-index of an active connection.
func (d *Directory) SyncConnection(ctx context.Context, id string) (model.Connection, error) {
	c, err := d.connections.Get(id)
	if err != nil {
		return model.Connection{}, err
	}
	if c.Status != model.ConnectionActive {
		return model.Connection{}, ErrConnectionInactive
	}

	metrics.RecordDirectoryMutation(KindConnection, "sync")
	ev := d.event(ctx, model.EventSyncRequested, KindConnection, "sync", id)
	ev.Metadata["connection_type"] = string(c.Type)
	d.publish(ctx, ev)

	d.logger.Info("connection sync requested",
		zap.String("connection_id", id),
		zap.String("connection_type", string(c.Type)),
	)
	return c, nil
}

// RemoveConnection deletes a connection.
func (d *Directory) RemoveConnection(ctx context.Context, id string) error {
	if err := d.connections.Delete(id); err != nil {
		return err
	}
	d.changed(ctx, KindConnection, "delete", id)
	return nil
}

func (d *Directory) changed(ctx context.Context, kind, op, id string) {
	metrics.RecordDirectoryMutation(kind, op)
	d.publish(ctx, d.event(ctx, model.EventDirectoryChanged, kind, op, id))
}

func (d *Directory) event(ctx context.Context, typ model.EventType, kind, op, id string) *model.ChatEvent {
	return &model.ChatEvent{
		ID:     d.newID(),
		UserID: d.actor(ctx),
		Type:   typ,
		Metadata: map[string]any{
			"kind":      kind,
			"op":        op,
			"record_id": id,
		},
		CreatedAt: d.now(),
	}
}

func (d *Directory) publish(ctx context.Context, ev *model.ChatEvent) {
	if err := d.sink.Publish(ctx, ev); err != nil {
		d.logger.Warn("failed to publish directory event",
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
	}
}

func validateUser(req *model.UserRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil || addr.Name != "" {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidInput, req.Email)
	}
	if req.Role == "" {
		req.Role = model.UserRoleMember
	}
	if !req.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}
	return nil
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

var seedUsers = []model.User{
	{ID: "1", Name: "John Doe", Email: "john@telivi.ai", Role: model.UserRoleAdmin, IsActive: true, Teams: []string{"Dev Team"}, LastLogin: "2023-05-22 14:30"},
	{ID: "2", Name: "Jane Smith", Email: "jane@telivi.ai", Role: model.UserRoleMaintainer, IsActive: true, Teams: []string{"Sales Team"}, LastLogin: "2023-05-21 09:15"},
	{ID: "3", Name: "Mark Wilson", Email: "mark@telivi.ai", Role: model.UserRoleMember, IsActive: false, Teams: []string{"Interns"}, LastLogin: "2023-05-20 16:45"},
	{ID: "4", Name: "Sarah Johnson", Email: "sarah@telivi.ai", Role: model.UserRoleMember, IsActive: true, Teams: []string{"Marketing Team"}, LastLogin: "2023-05-22 11:20"},
	{ID: "5", Name: "Michael Brown", Email: "michael@telivi.ai", Role: model.UserRoleMaintainer, IsActive: true, Teams: []string{"CXO"}, LastLogin: "2023-05-21 13:10"},
}

var seedTeams = []model.Team{
	{ID: "1", Name: "Dev Team", Description: "Software development team", MemberCount: 12, CreatedAt: "2023-01-15"},
	{ID: "2", Name: "Sales Team", Description: "Sales and business development", MemberCount: 8, CreatedAt: "2023-02-20"},
	{ID: "3", Name: "Marketing Team", Description: "Marketing and communications", MemberCount: 6, CreatedAt: "2023-03-10"},
	{ID: "4", Name: "CXO", Description: "Executive leadership team", MemberCount: 5, CreatedAt: "2023-01-05"},
	{ID: "5", Name: "Interns", Description: "Interns and trainees", MemberCount: 4, CreatedAt: "2023-04-01"},
}

var seedConnections = []model.Connection{
	{ID: "1", Name: "Company Confluence", Type: model.ConnectionConfluence, Status: model.ConnectionActive, LastSync: "2023-05-22 14:30", DocsIndexed: 458, AuthType: model.AuthOAuth},
	{ID: "2", Name: "Engineering Jira", Type: model.ConnectionJira, Status: model.ConnectionActive, LastSync: "2023-05-22 10:15", DocsIndexed: 237, AuthType: model.AuthOAuth},
	{ID: "3", Name: "Product Development", Type: model.ConnectionGitHub, Status: model.ConnectionInactive, LastSync: "2023-05-20 09:45", DocsIndexed: 0, AuthType: model.AuthToken},
	{ID: "4", Name: "Corporate SharePoint", Type: model.ConnectionSharePoint, Status: model.ConnectionError, LastSync: "2023-05-21 16:20", DocsIndexed: 122, AuthType: model.AuthOAuth},
}
