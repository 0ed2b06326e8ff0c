package rbac

import "strings"

// Well-known system role names.
const (
	RoleAdmin          = "admin"
	RoleAgentCreator   = "agent-creator"
	RoleSupervisorUser = "supervisor-user"
	RoleReadonlyUser   = "readonly-user"
)

// Permission is a (resource, action) pair with optional conditions.
// Equality is exact match on resource and action; conditions carry
// contextual scope (such as an agent id) but do not affect matching.
type Permission struct {
	Resource   string
	Action     string
	Conditions map[string]string
}

// Wildcard is the permission granting everything.
var Wildcard = Permission{Resource: "*", Action: "*"}

// Matches reports whether this permission covers the given resource and
// action. Only the wildcard matches beyond exact equality; there is no
// prefix or hierarchy matching.
func (p Permission) Matches(resource, action string) bool {
	if p.IsWildcard() {
		return true
	}
	return p.Resource == resource && p.Action == action
}

// IsWildcard reports whether this is the all-granting permission.
func (p Permission) IsWildcard() bool {
	return p.Resource == "*" && p.Action == "*"
}

// String renders the permission as "resource:action".
func (p Permission) String() string {
	return p.Resource + ":" + p.Action
}

// Role is a named, ordered permission set. SystemRole marks the four
// well-known roles that InitializeRoles seeds.
type Role struct {
	Name        string
	Description string
	Permissions []Permission
	SystemRole  bool
	Metadata    map[string]string
}

// HasPermission reports whether the role grants (resource, action).
func (r Role) HasPermission(resource, action string) bool {
	for _, p := range r.Permissions {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// SystemRoles returns the four well-known role definitions in seeding order.
func SystemRoles() []Role {
	return []Role{
		{
			Name:        RoleAdmin,
			Description: "Full administrative access",
			Permissions: []Permission{Wildcard},
			SystemRole:  true,
		},
		{
			Name:        RoleAgentCreator,
			Description: "Create and manage agents",
			Permissions: []Permission{
				{Resource: "agent", Action: "create"},
				{Resource: "agent", Action: "read"},
				{Resource: "agent", Action: "update"},
				{Resource: "agent", Action: "delete"},
				{Resource: "agent", Action: "deploy"},
				{Resource: "config", Action: "read"},
				{Resource: "config", Action: "update"},
			},
			SystemRole: true,
		},
		{
			Name:        RoleSupervisorUser,
			Description: "Access supervisor agents",
			Permissions: []Permission{
				{Resource: "supervisor", Action: "access"},
				{Resource: "agent", Action: "read"},
				{Resource: "config", Action: "read"},
			},
			SystemRole: true,
		},
		{
			Name:        RoleReadonlyUser,
			Description: "Read-only access",
			Permissions: []Permission{
				{Resource: "agent", Action: "read"},
				{Resource: "config", Action: "read"},
			},
			SystemRole: true,
		},
	}
}

// AgentGroupName returns the deterministic role name for an agent's user
// group. Pure function of the agent id.
func AgentGroupName(agentID string) string {
	return "agent-" + agentID + "-users"
}

// IsSupervisorType reports whether an agent type denotes a supervisor
// variant, which grants additional delegation permissions.
func IsSupervisorType(agentType string) bool {
	return strings.Contains(strings.ToLower(agentType), "supervisor")
}

// AgentGroupRole builds the role definition for an agent's user group.
// Permissions carry the agent id as a condition; supervisor variants gain
// supervisor access and delegation.
func AgentGroupRole(agentID, agentType string) Role {
	cond := map[string]string{"agent_id": agentID}

	perms := []Permission{
		{Resource: "agent", Action: "access", Conditions: cond},
		{Resource: "agent", Action: "use", Conditions: cond},
	}

	if IsSupervisorType(agentType) {
		perms = append(perms,
			Permission{Resource: "supervisor", Action: "access", Conditions: cond},
			Permission{Resource: "supervisor", Action: "delegate", Conditions: cond},
		)
	}

	return Role{
		Name:        AgentGroupName(agentID),
		Description: "Users of agent " + agentID,
		Permissions: perms,
		Metadata: map[string]string{
			"agent_id":   agentID,
			"agent_type": agentType,
		},
	}
}
