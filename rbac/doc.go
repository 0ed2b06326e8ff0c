// Package rbac implements role-based access control on top of an external
// group directory, where a role corresponds 1:1 to a directory group.
//
// Four system roles exist (admin, agent-creator, supervisor-user,
// readonly-user) and are seeded idempotently by Manager.InitializeRoles.
// Agent-scoped roles are named deterministically agent-{id}-users and
// follow an agent's lifecycle through CreateAgentGroup and
// DeleteAgentGroup.
//
// Permission checks are exact (resource, action) matches with a single
// wildcard "*:*" meaning everything. The Manager caches role definitions
// and per-user resolved role lists; invalidation is targeted, never a
// global flush. Directory failures on assignment operations are logged and
// surface as a false result rather than an error.
package rbac
