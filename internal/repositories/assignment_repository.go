package repositories

import (
	"context"
	"time"

	"github.com/hikage/banken/internal/entities"
)

// GroupPermissionAssignmentRepository defines data access for the
// (group, permission, effect, conditions) tuples attached to groups.
type GroupPermissionAssignmentRepository interface {
	// FindByGroup retrieves all permission assignments of a group.
	FindByGroup(ctx context.Context, groupID string) ([]*entities.GroupPermissionAssignment, error)

	// Upsert inserts or replaces the assignment for its (group, permission)
	// pair. Concurrent writers follow last-writer-wins.
	Upsert(ctx context.Context, assignment *entities.GroupPermissionAssignment) error

	// Delete removes the assignment for the (group, permission) pair.
	Delete(ctx context.Context, groupID, permissionID string) error
}

// UserGroupAssignmentRepository defines data access for group memberships.
// Expired rows are never hard-deleted; the active queries filter them out.
type UserGroupAssignmentRepository interface {
	// FindActiveByUser retrieves the user's unexpired memberships in groups
	// visible to the tenant (tenant-owned or system-wide), as of now.
	FindActiveByUser(ctx context.Context, userID, tenantID string, now time.Time) ([]*entities.UserGroupAssignment, error)

	// FindByGroup retrieves every membership of a group, expired or not.
	// Used for cache invalidation when a group's assignments change.
	FindByGroup(ctx context.Context, groupID string) ([]*entities.UserGroupAssignment, error)

	// Assign inserts or replaces the membership for its (user, group) pair.
	Assign(ctx context.Context, assignment *entities.UserGroupAssignment) error

	// Remove deletes the membership for the (user, group) pair.
	Remove(ctx context.Context, userID, groupID string) error
}

// UserDirectPermissionGrantRepository defines data access for per-user
// grants that bypass groups. Expired rows are retained for audit history.
type UserDirectPermissionGrantRepository interface {
	// FindActiveByUser retrieves the user's unexpired direct grants as of now.
	FindActiveByUser(ctx context.Context, userID string, now time.Time) ([]*entities.UserDirectPermissionGrant, error)

	// Grant inserts or replaces the grant for its (user, permission) pair.
	Grant(ctx context.Context, grant *entities.UserDirectPermissionGrant) error

	// Revoke deletes the grant for the (user, permission) pair.
	Revoke(ctx context.Context, userID, permissionID string) error
}
