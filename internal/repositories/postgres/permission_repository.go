package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/repositories"
)

// PostgresPermissionRepository implements PermissionRepository using PostgreSQL
type PostgresPermissionRepository struct {
	db *sql.DB
}

// NewPostgresPermissionRepository creates a new PostgreSQL permission repository
func NewPostgresPermissionRepository(db *sql.DB) repositories.PermissionRepository {
	return &PostgresPermissionRepository{db: db}
}

const permissionColumns = `id, code, name, description, module, resource, action, is_system, metadata, created_at, updated_at, deleted_at`

// ListAll retrieves every live catalog entry.
func (r *PostgresPermissionRepository) ListAll(ctx context.Context) ([]*entities.Permission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM permissions
		WHERE deleted_at IS NULL
		ORDER BY code
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// FindManyByCodes retrieves catalog entries whose raw code value is in codes.
func (r *PostgresPermissionRepository) FindManyByCodes(ctx context.Context, codes []entities.PermissionCode) ([]*entities.Permission, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	values := make([]string, len(codes))
	for i, c := range codes {
		values[i] = c.Value()
	}

	query := `
		SELECT ` + permissionColumns + `
		FROM permissions
		WHERE deleted_at IS NULL AND code = ANY($1)
		ORDER BY code
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("failed to find permissions by codes: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// FindByID retrieves a single catalog entry, or nil if absent.
func (r *PostgresPermissionRepository) FindByID(ctx context.Context, id string) (*entities.Permission, error) {
	query := `
		SELECT ` + permissionColumns + `
		FROM permissions
		WHERE id = $1 AND deleted_at IS NULL
	`
	row := r.db.QueryRowContext(ctx, query, id)

	permission, err := scanPermission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find permission: %w", err)
	}
	return permission, nil
}

// Create inserts a new catalog entry.
func (r *PostgresPermissionRepository) Create(ctx context.Context, permission *entities.Permission) error {
	metadata, err := marshalMetadata(permission.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO permissions (id, code, name, description, module, resource, action, is_system, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		permission.ID, permission.Code.Value(), permission.Name, permission.Description,
		permission.Module, permission.Resource, permission.Action,
		permission.IsSystem, metadata, permission.CreatedAt, permission.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

// Update persists descriptive-field edits. The code column is never touched;
// the catalog code is immutable after creation.
func (r *PostgresPermissionRepository) Update(ctx context.Context, permission *entities.Permission) error {
	metadata, err := marshalMetadata(permission.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE permissions
		SET name = $2, description = $3, metadata = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		permission.ID, permission.Name, permission.Description, metadata, permission.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}
	return requireRowAffected(result, "permission", permission.ID)
}

// SoftDelete marks a catalog entry as deleted.
func (r *PostgresPermissionRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE permissions
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND is_system = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return requireRowAffected(result, "permission", id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPermission(row rowScanner) (*entities.Permission, error) {
	var (
		p        entities.Permission
		code     string
		metadata []byte
		deleted  sql.NullTime
	)

	err := row.Scan(
		&p.ID, &code, &p.Name, &p.Description,
		&p.Module, &p.Resource, &p.Action,
		&p.IsSystem, &metadata, &p.CreatedAt, &p.UpdatedAt, &deleted,
	)
	if err != nil {
		return nil, err
	}

	p.Code, err = entities.NewPermissionCode(code)
	if err != nil {
		return nil, fmt.Errorf("stored permission %s has malformed code: %w", p.ID, err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("stored permission %s has malformed metadata: %w", p.ID, err)
		}
	}

	if deleted.Valid {
		t := deleted.Time
		p.DeletedAt = &t
	}

	return &p, nil
}

func scanPermissions(rows *sql.Rows) ([]*entities.Permission, error) {
	var permissions []*entities.Permission
	for rows.Next() {
		permission, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, permission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}
	return permissions, nil
}

func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

func requireRowAffected(result sql.Result, kind, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return nil
}
