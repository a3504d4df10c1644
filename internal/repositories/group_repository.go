package repositories

import (
	"context"

	"github.com/hikage/banken/internal/entities"
)

// PermissionGroupRepository defines data access for permission groups.
// Every read is tenant-scoped: a tenant sees its own groups plus system-wide
// groups (tenant_id IS NULL). Reads exclude soft-deleted rows.
type PermissionGroupRepository interface {
	// FindBySlugAndTenant retrieves a group by slug within the tenant scope,
	// or nil if absent. A nil tenantID addresses the system-wide scope.
	FindBySlugAndTenant(ctx context.Context, slug string, tenantID *string) (*entities.PermissionGroup, error)

	// FindActiveForTenant retrieves the active groups visible to the tenant:
	// tenant-owned groups plus system-wide groups.
	FindActiveForTenant(ctx context.Context, tenantID string) ([]*entities.PermissionGroup, error)

	// FindByID retrieves a group, or nil if absent.
	FindByID(ctx context.Context, id string) (*entities.PermissionGroup, error)

	// Create inserts a new group.
	Create(ctx context.Context, group *entities.PermissionGroup) error

	// Update persists group edits.
	Update(ctx context.Context, group *entities.PermissionGroup) error

	// SoftDelete marks a group as deleted.
	SoftDelete(ctx context.Context, id string) error
}
