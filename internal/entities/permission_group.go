package entities

import (
	"fmt"
	"time"
)

// PermissionGroup is a named, prioritized bundle of permission assignments.
// A nil TenantID marks a system-wide group visible to every tenant. The
// parent pointer is organizational only: group hierarchy does not propagate
// permissions, each group's effective set is exactly its direct assignments.
type PermissionGroup struct {
	ID          string
	TenantID    *string // nil = system-wide
	Name        string
	Slug        string // Unique within tenant scope
	Description string
	Color       string
	Priority    int // Higher wins when memberships conflict on the same code
	ParentID    *string
	IsSystem    bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Validate checks the structural invariants of a group row.
func (g *PermissionGroup) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}
	if g.Slug == "" {
		return fmt.Errorf("group slug is required")
	}
	if g.ParentID != nil && *g.ParentID == g.ID {
		return fmt.Errorf("group cannot be its own parent")
	}
	return nil
}

// IsSystemWide reports whether the group is visible across all tenants.
func (g *PermissionGroup) IsSystemWide() bool {
	return g.TenantID == nil
}

// VisibleToTenant reports whether the group may participate in resolutions
// for the given tenant.
func (g *PermissionGroup) VisibleToTenant(tenantID string) bool {
	return g.TenantID == nil || *g.TenantID == tenantID
}

// IsDeleted reports whether the row has been soft-deleted.
func (g *PermissionGroup) IsDeleted() bool {
	return g.DeletedAt != nil
}
