package repositories

import (
	"context"

	"github.com/hikage/banken/internal/entities"
)

// PermissionRepository defines data access for the permission catalog.
// Reads exclude soft-deleted rows.
type PermissionRepository interface {
	// ListAll retrieves every live catalog entry.
	ListAll(ctx context.Context) ([]*entities.Permission, error)

	// FindManyByCodes retrieves catalog entries whose raw code value is in codes.
	FindManyByCodes(ctx context.Context, codes []entities.PermissionCode) ([]*entities.Permission, error)

	// FindByID retrieves a single catalog entry, or nil if absent.
	FindByID(ctx context.Context, id string) (*entities.Permission, error)

	// Create inserts a new catalog entry.
	Create(ctx context.Context, permission *entities.Permission) error

	// Update persists descriptive-field edits (name, description, metadata).
	Update(ctx context.Context, permission *entities.Permission) error

	// SoftDelete marks a catalog entry as deleted. Rows stay in storage
	// because assignments and grants may still reference them.
	SoftDelete(ctx context.Context, id string) error
}
