package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/repositories"
)

// PostgresPermissionGroupRepository implements PermissionGroupRepository using PostgreSQL
type PostgresPermissionGroupRepository struct {
	db *sql.DB
}

// NewPostgresPermissionGroupRepository creates a new PostgreSQL group repository
func NewPostgresPermissionGroupRepository(db *sql.DB) repositories.PermissionGroupRepository {
	return &PostgresPermissionGroupRepository{db: db}
}

const groupColumns = `id, tenant_id, name, slug, description, color, priority, parent_id, is_system, is_active, created_at, updated_at, deleted_at`

// FindBySlugAndTenant retrieves a group by slug within the tenant scope.
// A nil tenantID addresses the system-wide scope (tenant_id IS NULL).
func (r *PostgresPermissionGroupRepository) FindBySlugAndTenant(ctx context.Context, slug string, tenantID *string) (*entities.PermissionGroup, error) {
	var row *sql.Row
	if tenantID == nil {
		query := `
			SELECT ` + groupColumns + `
			FROM permission_groups
			WHERE slug = $1 AND tenant_id IS NULL AND deleted_at IS NULL
		`
		row = r.db.QueryRowContext(ctx, query, slug)
	} else {
		query := `
			SELECT ` + groupColumns + `
			FROM permission_groups
			WHERE slug = $1 AND tenant_id = $2 AND deleted_at IS NULL
		`
		row = r.db.QueryRowContext(ctx, query, slug, *tenantID)
	}

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group by slug: %w", err)
	}
	return group, nil
}

// FindActiveForTenant retrieves the active groups visible to the tenant:
// tenant-owned groups plus system-wide groups.
func (r *PostgresPermissionGroupRepository) FindActiveForTenant(ctx context.Context, tenantID string) ([]*entities.PermissionGroup, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM permission_groups
		WHERE (tenant_id = $1 OR tenant_id IS NULL)
			AND is_active = TRUE
			AND deleted_at IS NULL
		ORDER BY priority DESC, slug
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to find groups for tenant: %w", err)
	}
	defer rows.Close()

	var groups []*entities.PermissionGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// FindByID retrieves a group, or nil if absent.
func (r *PostgresPermissionGroupRepository) FindByID(ctx context.Context, id string) (*entities.PermissionGroup, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM permission_groups
		WHERE id = $1 AND deleted_at IS NULL
	`
	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	return group, nil
}

// Create inserts a new group.
func (r *PostgresPermissionGroupRepository) Create(ctx context.Context, group *entities.PermissionGroup) error {
	query := `
		INSERT INTO permission_groups (id, tenant_id, name, slug, description, color, priority, parent_id, is_system, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		group.ID, nullableString(group.TenantID), group.Name, group.Slug,
		group.Description, group.Color, group.Priority, nullableString(group.ParentID),
		group.IsSystem, group.IsActive, group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// Update persists group edits.
func (r *PostgresPermissionGroupRepository) Update(ctx context.Context, group *entities.PermissionGroup) error {
	query := `
		UPDATE permission_groups
		SET name = $2, description = $3, color = $4, priority = $5, parent_id = $6, is_active = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		group.ID, group.Name, group.Description, group.Color,
		group.Priority, nullableString(group.ParentID), group.IsActive, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireRowAffected(result, "group", group.ID)
}

// SoftDelete marks a group as deleted.
func (r *PostgresPermissionGroupRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE permission_groups
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return requireRowAffected(result, "group", id)
}

func scanGroup(row rowScanner) (*entities.PermissionGroup, error) {
	var (
		g        entities.PermissionGroup
		tenantID sql.NullString
		parentID sql.NullString
		deleted  sql.NullTime
	)

	err := row.Scan(
		&g.ID, &tenantID, &g.Name, &g.Slug, &g.Description, &g.Color,
		&g.Priority, &parentID, &g.IsSystem, &g.IsActive,
		&g.CreatedAt, &g.UpdatedAt, &deleted,
	)
	if err != nil {
		return nil, err
	}

	if tenantID.Valid {
		v := tenantID.String
		g.TenantID = &v
	}
	if parentID.Valid {
		v := parentID.String
		g.ParentID = &v
	}
	if deleted.Valid {
		t := deleted.Time
		g.DeletedAt = &t
	}

	return &g, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
