package rbac

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Sentinel errors for directory operations.
var (
	ErrNilDirectory  = errors.New("rbac: directory is nil")
	ErrGroupNotFound = errors.New("rbac: group not found")
	ErrEmptyGroup    = errors.New("rbac: group name is empty")
	ErrEmptyUser     = errors.New("rbac: user id is empty")
)

// Group is a directory group backing one role.
type Group struct {
	// ID is the directory-assigned identifier.
	ID string

	// Name is the group name, unique within the directory.
	Name string

	// Description is free text.
	Description string
}

// GroupDirectory is the external collaborator holding groups and
// memberships. A role corresponds 1:1 to a group of the same name.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: GetGroup returns ErrGroupNotFound for missing groups;
//   CreateGroup of an existing group succeeds and returns it;
//   DeleteGroup of a missing group is a no-op.
type GroupDirectory interface {
	GetGroup(ctx context.Context, name string) (*Group, error)
	CreateGroup(ctx context.Context, name, description string) (*Group, error)
	DeleteGroup(ctx context.Context, name string) error
	ListGroups(ctx context.Context) ([]Group, error)

	ListUserGroups(ctx context.Context, userID string) ([]string, error)
	AddUserToGroup(ctx context.Context, userID, group string) error
	RemoveUserFromGroup(ctx context.Context, userID, group string) error
}

// MemoryDirectory is an in-memory GroupDirectory for embedding and tests.
type MemoryDirectory struct {
	mu      sync.RWMutex
	groups  map[string]*Group
	members map[string]map[string]bool // group -> user set
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		groups:  make(map[string]*Group),
		members: make(map[string]map[string]bool),
	}
}

// GetGroup returns the group with the given name.
func (d *MemoryDirectory) GetGroup(_ context.Context, name string) (*Group, error) {
	if name == "" {
		return nil, ErrEmptyGroup
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	g, ok := d.groups[name]
	if !ok {
		return nil, ErrGroupNotFound
	}
	copied := *g
	return &copied, nil
}

// CreateGroup creates a group. Creating an existing group succeeds and
// returns the existing group unchanged.
func (d *MemoryDirectory) CreateGroup(_ context.Context, name, description string) (*Group, error) {
	if name == "" {
		return nil, ErrEmptyGroup
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if g, ok := d.groups[name]; ok {
		copied := *g
		return &copied, nil
	}

	g := &Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
	d.groups[name] = g
	d.members[name] = make(map[string]bool)

	copied := *g
	return &copied, nil
}

// DeleteGroup removes a group and its memberships. Deleting a missing
// group is a no-op.
func (d *MemoryDirectory) DeleteGroup(_ context.Context, name string) error {
	if name == "" {
		return ErrEmptyGroup
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.groups, name)
	delete(d.members, name)
	return nil
}

// ListGroups returns all groups sorted by name.
func (d *MemoryDirectory) ListGroups(_ context.Context) ([]Group, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]Group, 0, len(d.groups))
	for _, g := range d.groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ListUserGroups returns the names of groups the user belongs to, sorted.
func (d *MemoryDirectory) ListUserGroups(_ context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrEmptyUser
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []string
	for name, users := range d.members {
		if users[userID] {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result, nil
}

// AddUserToGroup adds a membership. The group must exist.
func (d *MemoryDirectory) AddUserToGroup(_ context.Context, userID, group string) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if group == "" {
		return ErrEmptyGroup
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users, ok := d.members[group]
	if !ok {
		return ErrGroupNotFound
	}
	users[userID] = true
	return nil
}

// RemoveUserFromGroup removes a membership. Removing a missing membership
// is a no-op; the group must exist.
func (d *MemoryDirectory) RemoveUserFromGroup(_ context.Context, userID, group string) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if group == "" {
		return ErrEmptyGroup
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users, ok := d.members[group]
	if !ok {
		return ErrGroupNotFound
	}
	delete(users, userID)
	return nil
}

// Ensure MemoryDirectory implements GroupDirectory
var _ GroupDirectory = (*MemoryDirectory)(nil)
