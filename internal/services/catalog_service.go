package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/repositories"
)

// CatalogService administers the permission catalog. Catalog entries are
// read-mostly: creation happens through seeding or admin operations, edits
// touch only descriptive fields, and removal is a soft delete.
type CatalogService struct {
	permissions repositories.PermissionRepository
	clock       func() time.Time
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(permissions repositories.PermissionRepository) *CatalogService {
	return &CatalogService{
		permissions: permissions,
		clock:       time.Now,
	}
}

// CreatePermissionRequest carries the fields for a new catalog entry.
type CreatePermissionRequest struct {
	Code        string
	Name        string
	Description string
	IsSystem    bool
	Metadata    map[string]interface{}
}

// CreatePermission validates the code and inserts a catalog entry. The code
// is parsed at write time; malformed input is rejected with
// entities.ErrInvalidPermissionCode, never silently normalized.
func (s *CatalogService) CreatePermission(ctx context.Context, req *CreatePermissionRequest) (*entities.Permission, error) {
	code, err := entities.NewPermissionCode(req.Code)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("permission name is required")
	}

	now := s.clock()
	permission := &entities.Permission{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        req.Name,
		Description: req.Description,
		Module:      code.Module(),
		Resource:    code.Resource(),
		Action:      code.Action(),
		IsSystem:    req.IsSystem,
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.permissions.Create(ctx, permission); err != nil {
		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	return permission, nil
}

// UpdatePermission edits the descriptive surface of a catalog entry.
// System permissions accept descriptive edits; their code stays immutable
// because no code field is exposed here at all.
func (s *CatalogService) UpdatePermission(ctx context.Context, id, name, description string, metadata map[string]interface{}) (*entities.Permission, error) {
	permission, err := s.permissions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission: %w", err)
	}
	if permission == nil {
		return nil, fmt.Errorf("permission %s: %w", id, ErrNotFound)
	}

	permission.UpdateDescriptive(name, description, metadata, s.clock())

	if err := s.permissions.Update(ctx, permission); err != nil {
		return nil, fmt.Errorf("failed to update permission: %w", err)
	}

	return permission, nil
}

// DeletePermission soft-deletes a catalog entry. System permissions are
// non-deletable.
func (s *CatalogService) DeletePermission(ctx context.Context, id string) error {
	permission, err := s.permissions.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load permission: %w", err)
	}
	if permission == nil {
		return fmt.Errorf("permission %s: %w", id, ErrNotFound)
	}
	if permission.IsSystem {
		return fmt.Errorf("permission %s is seeded: %w", id, ErrSystemManaged)
	}

	if err := s.permissions.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	return nil
}
