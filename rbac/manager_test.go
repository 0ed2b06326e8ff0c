package rbac

import (
	"context"
	"errors"
	"testing"
)

func newTestManager(t *testing.T) (*Manager, *MemoryDirectory) {
	t.Helper()

	dir := NewMemoryDirectory()
	mgr, err := NewManager(ManagerConfig{Directory: dir})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := mgr.InitializeRoles(context.Background()); err != nil {
		t.Fatalf("InitializeRoles() error = %v", err)
	}
	return mgr, dir
}

func TestNewManager_RequiresDirectory(t *testing.T) {
	if _, err := NewManager(ManagerConfig{}); !errors.Is(err, ErrNilDirectory) {
		t.Fatalf("error = %v, want ErrNilDirectory", err)
	}
}

func TestManager_InitializeRolesIdempotent(t *testing.T) {
	mgr, dir := newTestManager(t)
	ctx := context.Background()

	// Second initialization must not fail or duplicate groups
	if err := mgr.InitializeRoles(ctx); err != nil {
		t.Fatalf("second InitializeRoles() error = %v", err)
	}

	groups, err := dir.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 4 {
		t.Errorf("got %d groups, want 4", len(groups))
	}

	for _, name := range []string{RoleAdmin, RoleAgentCreator, RoleSupervisorUser, RoleReadonlyUser} {
		if _, ok := mgr.GetRole(name); !ok {
			t.Errorf("role %s not cached after initialization", name)
		}
	}
	if !mgr.Initialized() {
		t.Error("Initialized() = false")
	}
}

func TestManager_AdminWildcard(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	if !mgr.AssignRole(ctx, "u1", RoleAdmin) {
		t.Fatal("AssignRole() = false")
	}

	checks := [][2]string{
		{"agent", "create"},
		{"agent", "delete"},
		{"config", "update"},
		{"anything", "at-all"},
	}
	for _, c := range checks {
		if !mgr.CheckPermission(ctx, "u1", c[0], c[1]) {
			t.Errorf("admin denied %s:%s", c[0], c[1])
		}
	}
}

func TestManager_ReadonlyMatrix(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	if !mgr.AssignRole(ctx, "u2", RoleReadonlyUser) {
		t.Fatal("AssignRole() = false")
	}

	tests := []struct {
		resource string
		action   string
		want     bool
	}{
		{resource: "agent", action: "read", want: true},
		{resource: "config", action: "read", want: true},
		{resource: "agent", action: "delete", want: false},
		{resource: "agent", action: "create", want: false},
		{resource: "config", action: "update", want: false},
	}

	for _, tt := range tests {
		if got := mgr.CheckPermission(ctx, "u2", tt.resource, tt.action); got != tt.want {
			t.Errorf("CheckPermission(%s, %s) = %v, want %v", tt.resource, tt.action, got, tt.want)
		}
	}
}

func TestManager_LiveRevocation(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	if !mgr.AssignRole(ctx, "u3", RoleAgentCreator) {
		t.Fatal("AssignRole() = false")
	}
	if !mgr.CheckPermission(ctx, "u3", "agent", "create") {
		t.Fatal("agent-creator denied agent:create")
	}

	if !mgr.RemoveRole(ctx, "u3", RoleAgentCreator) {
		t.Fatal("RemoveRole() = false")
	}
	// Next call must observe the revocation without restart
	if mgr.CheckPermission(ctx, "u3", "agent", "create") {
		t.Error("permission survived role removal")
	}
}

func TestManager_TargetedCacheEviction(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	mgr.AssignRole(ctx, "u-a", RoleAdmin)
	mgr.AssignRole(ctx, "u-b", RoleReadonlyUser)

	// Warm both user caches
	mgr.CheckPermission(ctx, "u-a", "agent", "read")
	mgr.CheckPermission(ctx, "u-b", "agent", "read")

	// Changing u-a must not evict u-b's cache
	mgr.RemoveRole(ctx, "u-a", RoleAdmin)

	mgr.mu.RLock()
	_, aCached := mgr.userRoles["u-a"]
	_, bCached := mgr.userRoles["u-b"]
	mgr.mu.RUnlock()

	if aCached {
		t.Error("changed user still cached")
	}
	if !bCached {
		t.Error("unrelated user evicted")
	}
}

func TestManager_GetUserPermissions_Dedupe(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	// supervisor-user and readonly-user both grant agent:read and config:read
	mgr.AssignRole(ctx, "u4", RoleSupervisorUser)
	mgr.AssignRole(ctx, "u4", RoleReadonlyUser)

	perms, err := mgr.GetUserPermissions(ctx, "u4")
	if err != nil {
		t.Fatalf("GetUserPermissions() error = %v", err)
	}

	counts := make(map[string]int)
	for _, p := range perms {
		counts[p.String()]++
	}
	for perm, n := range counts {
		if n > 1 {
			t.Errorf("permission %s appears %d times", perm, n)
		}
	}
	if counts["supervisor:access"] != 1 || counts["agent:read"] != 1 {
		t.Errorf("permissions = %v", perms)
	}
}

func TestManager_CreateAgentGroupIdempotent(t *testing.T) {
	mgr, dir := newTestManager(t)
	ctx := context.Background()

	first, err := mgr.CreateAgentGroup(ctx, "a1", "standard")
	if err != nil {
		t.Fatalf("CreateAgentGroup() error = %v", err)
	}
	second, err := mgr.CreateAgentGroup(ctx, "a1", "standard")
	if err != nil {
		t.Fatalf("second CreateAgentGroup() error = %v", err)
	}
	if first.Name != second.Name || first.Name != "agent-a1-users" {
		t.Errorf("role names = %q, %q", first.Name, second.Name)
	}

	// Exactly one group exists
	groups, err := dir.ListGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var agentGroups int
	for _, g := range groups {
		if g.Name == "agent-a1-users" {
			agentGroups++
		}
	}
	if agentGroups != 1 {
		t.Errorf("got %d agent-a1-users groups, want 1", agentGroups)
	}
}

func TestManager_AgentGroupGrantsAccess(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.CreateAgentGroup(ctx, "a2", "standard"); err != nil {
		t.Fatal(err)
	}
	if !mgr.AssignRole(ctx, "u5", AgentGroupName("a2")) {
		t.Fatal("AssignRole() = false")
	}

	if !mgr.CheckPermission(ctx, "u5", "agent", "access") {
		t.Error("agent group member denied agent:access")
	}
	if !mgr.CheckPermission(ctx, "u5", "agent", "use") {
		t.Error("agent group member denied agent:use")
	}
	if mgr.CheckPermission(ctx, "u5", "agent", "delete") {
		t.Error("agent group member allowed agent:delete")
	}
}

func TestManager_DeleteAgentGroup(t *testing.T) {
	mgr, dir := newTestManager(t)
	ctx := context.Background()

	if _, err := mgr.CreateAgentGroup(ctx, "a3", "standard"); err != nil {
		t.Fatal(err)
	}

	mgr.DeleteAgentGroup(ctx, "a3")
	if _, err := dir.GetGroup(ctx, AgentGroupName("a3")); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("group still present after delete: %v", err)
	}
	if _, ok := mgr.GetRole(AgentGroupName("a3")); ok {
		t.Error("role definition still cached after delete")
	}

	// Deleting a missing group stays quiet
	mgr.DeleteAgentGroup(ctx, "a3")
	mgr.DeleteAgentGroup(ctx, "never-existed")
}

func TestManager_DirectoryFailureDenies(t *testing.T) {
	mgr, err := NewManager(ManagerConfig{Directory: &failingDirectory{}})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if mgr.CheckPermission(ctx, "u1", "agent", "read") {
		t.Error("CheckPermission() = true with failing directory")
	}
	if mgr.AssignRole(ctx, "u1", RoleAdmin) {
		t.Error("AssignRole() = true with failing directory")
	}
	if mgr.RemoveRole(ctx, "u1", RoleAdmin) {
		t.Error("RemoveRole() = true with failing directory")
	}
}

// failingDirectory errors on every call.
type failingDirectory struct{}

var errDirDown = errors.New("directory unavailable")

func (d *failingDirectory) GetGroup(context.Context, string) (*Group, error) {
	return nil, errDirDown
}
func (d *failingDirectory) CreateGroup(context.Context, string, string) (*Group, error) {
	return nil, errDirDown
}
func (d *failingDirectory) DeleteGroup(context.Context, string) error { return errDirDown }
func (d *failingDirectory) ListGroups(context.Context) ([]Group, error) {
	return nil, errDirDown
}
func (d *failingDirectory) ListUserGroups(context.Context, string) ([]string, error) {
	return nil, errDirDown
}
func (d *failingDirectory) AddUserToGroup(context.Context, string, string) error {
	return errDirDown
}
func (d *failingDirectory) RemoveUserFromGroup(context.Context, string, string) error {
	return errDirDown
}

var _ GroupDirectory = (*failingDirectory)(nil)
