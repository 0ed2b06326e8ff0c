package rbac

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonwraymond/agentauth/observe"
)

// ManagerConfig configures the role manager.
type ManagerConfig struct {
	// Directory is the group directory backing roles. Required.
	Directory GroupDirectory

	// Logger receives directory failure reports. Default: discard.
	Logger observe.Logger
}

// Manager resolves users to roles and permissions through the group
// directory, with local caches for role definitions and per-user role
// lists. Cache invalidation is targeted per user and per role.
type Manager struct {
	directory GroupDirectory
	logger    observe.Logger

	mu          sync.RWMutex
	roles       map[string]Role     // definitions by name
	userRoles   map[string][]string // resolved role names by user id
	initialized bool
}

// NewManager creates a role manager.
func NewManager(config ManagerConfig) (*Manager, error) {
	if config.Directory == nil {
		return nil, ErrNilDirectory
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Manager{
		directory: config.Directory,
		logger:    config.Logger,
		roles:     make(map[string]Role),
		userRoles: make(map[string][]string),
	}, nil
}

// InitializeRoles idempotently ensures the four system roles exist in the
// directory and caches their definitions. Safe to call repeatedly.
func (m *Manager) InitializeRoles(ctx context.Context) error {
	for _, role := range SystemRoles() {
		_, err := m.directory.GetGroup(ctx, role.Name)
		if errors.Is(err, ErrGroupNotFound) {
			if _, err = m.directory.CreateGroup(ctx, role.Name, role.Description); err != nil {
				return fmt.Errorf("seed role %s: %w", role.Name, err)
			}
		} else if err != nil {
			return fmt.Errorf("check role %s: %w", role.Name, err)
		}

		m.mu.Lock()
		m.roles[role.Name] = role
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()
	return nil
}

// Initialized reports whether InitializeRoles has completed.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// GetRole returns a cached role definition by name.
func (m *Manager) GetRole(name string) (Role, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.roles[name]
	return role, ok
}

// GetUserRoles resolves the user's directory groups into role definitions.
// The resolved list is cached until AssignRole or RemoveRole invalidates
// it for this user. Group names with no local definition become empty
// roles carrying only the name.
func (m *Manager) GetUserRoles(ctx context.Context, userID string) ([]Role, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}

	m.mu.RLock()
	names, cached := m.userRoles[userID]
	m.mu.RUnlock()

	if !cached {
		groups, err := m.directory.ListUserGroups(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("resolve user groups: %w", err)
		}
		names = groups

		m.mu.Lock()
		m.userRoles[userID] = names
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	roles := make([]Role, 0, len(names))
	for _, name := range names {
		if role, ok := m.roles[name]; ok {
			roles = append(roles, role)
		} else {
			roles = append(roles, Role{Name: name})
		}
	}
	return roles, nil
}

// GetUserPermissions flattens the user's role permissions, de-duplicated
// by (resource, action) with first-seen order preserved.
func (m *Manager) GetUserPermissions(ctx context.Context, userID string) ([]Permission, error) {
	roles, err := m.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	type pkey struct{ resource, action string }
	seen := make(map[pkey]bool)
	var result []Permission

	for _, role := range roles {
		for _, p := range role.Permissions {
			k := pkey{p.Resource, p.Action}
			if seen[k] {
				continue
			}
			seen[k] = true
			result = append(result, p)
		}
	}
	return result, nil
}

// CheckPermission reports whether the user may perform (resource, action).
// The wildcard short-circuits; otherwise an exact match is required.
// Directory failures are logged and deny.
func (m *Manager) CheckPermission(ctx context.Context, userID, resource, action string) bool {
	perms, err := m.GetUserPermissions(ctx, userID)
	if err != nil {
		m.logger.Warn(ctx, "permission check failed, denying",
			observe.Field{Key: "user_id", Value: userID},
			observe.Field{Key: "resource", Value: resource},
			observe.Field{Key: "action", Value: action},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return false
	}

	for _, p := range perms {
		if p.IsWildcard() {
			return true
		}
	}
	for _, p := range perms {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// AssignRole adds the user to the role's group and evicts only that
// user's cached role list. Directory failures are logged and return false.
func (m *Manager) AssignRole(ctx context.Context, userID, roleName string) bool {
	if err := m.directory.AddUserToGroup(ctx, userID, roleName); err != nil {
		m.logger.Warn(ctx, "role assignment failed",
			observe.Field{Key: "user_id", Value: userID},
			observe.Field{Key: "role", Value: roleName},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return false
	}

	m.evictUser(userID)
	return true
}

// RemoveRole removes the user from the role's group and evicts only that
// user's cached role list. Directory failures are logged and return false.
func (m *Manager) RemoveRole(ctx context.Context, userID, roleName string) bool {
	if err := m.directory.RemoveUserFromGroup(ctx, userID, roleName); err != nil {
		m.logger.Warn(ctx, "role removal failed",
			observe.Field{Key: "user_id", Value: userID},
			observe.Field{Key: "role", Value: roleName},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return false
	}

	m.evictUser(userID)
	return true
}

// CreateAgentGroup provisions the agent-{id}-users role for an agent.
// Idempotent: a duplicate create succeeds and refreshes the definition.
func (m *Manager) CreateAgentGroup(ctx context.Context, agentID, agentType string) (Role, error) {
	if agentID == "" {
		return Role{}, errors.New("rbac: agent id is empty")
	}

	role := AgentGroupRole(agentID, agentType)
	if _, err := m.directory.CreateGroup(ctx, role.Name, role.Description); err != nil {
		return Role{}, fmt.Errorf("create agent group: %w", err)
	}

	m.mu.Lock()
	m.roles[role.Name] = role
	m.mu.Unlock()

	return role, nil
}

// DeleteAgentGroup removes the agent's role. Deleting a missing group is
// non-fatal; directory failures are logged and swallowed so an agent
// teardown never fails on group cleanup.
func (m *Manager) DeleteAgentGroup(ctx context.Context, agentID string) {
	name := AgentGroupName(agentID)

	if err := m.directory.DeleteGroup(ctx, name); err != nil {
		m.logger.Warn(ctx, "agent group deletion failed",
			observe.Field{Key: "role", Value: name},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	m.mu.Lock()
	delete(m.roles, name)
	m.mu.Unlock()
}

// evictUser drops one user's cached role list.
func (m *Manager) evictUser(userID string) {
	m.mu.Lock()
	delete(m.userRoles, userID)
	m.mu.Unlock()
}
