package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/repositories"
)

// PostgresGroupPermissionAssignmentRepository implements
// GroupPermissionAssignmentRepository using PostgreSQL
type PostgresGroupPermissionAssignmentRepository struct {
	db *sql.DB
}

// NewPostgresGroupPermissionAssignmentRepository creates a new PostgreSQL
// group permission assignment repository
func NewPostgresGroupPermissionAssignmentRepository(db *sql.DB) repositories.GroupPermissionAssignmentRepository {
	return &PostgresGroupPermissionAssignmentRepository{db: db}
}

// FindByGroup retrieves all permission assignments of a group.
func (r *PostgresGroupPermissionAssignmentRepository) FindByGroup(ctx context.Context, groupID string) ([]*entities.GroupPermissionAssignment, error) {
	query := `
		SELECT group_id, permission_id, effect, conditions, created_at, updated_at
		FROM group_permission_assignments
		WHERE group_id = $1
		ORDER BY permission_id
	`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to find assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*entities.GroupPermissionAssignment
	for rows.Next() {
		var (
			a          entities.GroupPermissionAssignment
			effect     string
			conditions sql.NullString
		)
		if err := rows.Scan(&a.GroupID, &a.PermissionID, &effect, &conditions, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Effect = entities.Effect(effect)
		a.Conditions = conditions.String
		assignments = append(assignments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return assignments, nil
}

// Upsert inserts or replaces the assignment for its (group, permission) pair.
// Last writer wins: assignments are idempotent facts, not counters.
func (r *PostgresGroupPermissionAssignmentRepository) Upsert(ctx context.Context, assignment *entities.GroupPermissionAssignment) error {
	if err := assignment.Validate(); err != nil {
		return fmt.Errorf("invalid assignment: %w", err)
	}

	query := `
		INSERT INTO group_permission_assignments (group_id, permission_id, effect, conditions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (group_id, permission_id)
		DO UPDATE SET effect = EXCLUDED.effect, conditions = EXCLUDED.conditions, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		assignment.GroupID, assignment.PermissionID, string(assignment.Effect),
		sql.NullString{String: assignment.Conditions, Valid: assignment.Conditions != ""},
		assignment.CreatedAt, assignment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

// Delete removes the assignment for the (group, permission) pair.
func (r *PostgresGroupPermissionAssignmentRepository) Delete(ctx context.Context, groupID, permissionID string) error {
	query := `
		DELETE FROM group_permission_assignments
		WHERE group_id = $1 AND permission_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, groupID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// PostgresUserGroupAssignmentRepository implements
// UserGroupAssignmentRepository using PostgreSQL
type PostgresUserGroupAssignmentRepository struct {
	db *sql.DB
}

// NewPostgresUserGroupAssignmentRepository creates a new PostgreSQL user
// group assignment repository
func NewPostgresUserGroupAssignmentRepository(db *sql.DB) repositories.UserGroupAssignmentRepository {
	return &PostgresUserGroupAssignmentRepository{db: db}
}

// FindActiveByUser retrieves the user's unexpired memberships in groups
// visible to the tenant. Expired rows stay in storage for audit history and
// are filtered here by the now parameter.
func (r *PostgresUserGroupAssignmentRepository) FindActiveByUser(ctx context.Context, userID, tenantID string, now time.Time) ([]*entities.UserGroupAssignment, error) {
	query := `
		SELECT uga.user_id, uga.group_id, uga.granted_by, uga.expires_at, uga.assigned_at
		FROM user_group_assignments uga
		JOIN permission_groups pg ON pg.id = uga.group_id
		WHERE uga.user_id = $1
			AND (pg.tenant_id = $2 OR pg.tenant_id IS NULL)
			AND (uga.expires_at IS NULL OR uga.expires_at > $3)
			AND pg.deleted_at IS NULL
		ORDER BY uga.assigned_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find memberships: %w", err)
	}
	defer rows.Close()

	return scanMemberships(rows)
}

// FindByGroup retrieves every membership of a group, expired or not.
func (r *PostgresUserGroupAssignmentRepository) FindByGroup(ctx context.Context, groupID string) ([]*entities.UserGroupAssignment, error) {
	query := `
		SELECT user_id, group_id, granted_by, expires_at, assigned_at
		FROM user_group_assignments
		WHERE group_id = $1
		ORDER BY assigned_at
	`
	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to find group members: %w", err)
	}
	defer rows.Close()

	return scanMemberships(rows)
}

// Assign inserts or replaces the membership for its (user, group) pair.
func (r *PostgresUserGroupAssignmentRepository) Assign(ctx context.Context, assignment *entities.UserGroupAssignment) error {
	if err := assignment.Validate(); err != nil {
		return fmt.Errorf("invalid membership: %w", err)
	}

	query := `
		INSERT INTO user_group_assignments (user_id, group_id, granted_by, expires_at, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, group_id)
		DO UPDATE SET granted_by = EXCLUDED.granted_by, expires_at = EXCLUDED.expires_at, assigned_at = EXCLUDED.assigned_at
	`
	_, err := r.db.ExecContext(ctx, query,
		assignment.UserID, assignment.GroupID,
		nullableString(assignment.GrantedBy), nullableTime(assignment.ExpiresAt),
		assignment.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to assign membership: %w", err)
	}
	return nil
}

// Remove deletes the membership for the (user, group) pair.
func (r *PostgresUserGroupAssignmentRepository) Remove(ctx context.Context, userID, groupID string) error {
	query := `
		DELETE FROM user_group_assignments
		WHERE user_id = $1 AND group_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}
	return nil
}

func scanMemberships(rows *sql.Rows) ([]*entities.UserGroupAssignment, error) {
	var memberships []*entities.UserGroupAssignment
	for rows.Next() {
		var (
			m         entities.UserGroupAssignment
			grantedBy sql.NullString
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&m.UserID, &m.GroupID, &grantedBy, &expiresAt, &m.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		if grantedBy.Valid {
			v := grantedBy.String
			m.GrantedBy = &v
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			m.ExpiresAt = &t
		}
		memberships = append(memberships, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return memberships, nil
}

// PostgresUserDirectPermissionGrantRepository implements
// UserDirectPermissionGrantRepository using PostgreSQL
type PostgresUserDirectPermissionGrantRepository struct {
	db *sql.DB
}

// NewPostgresUserDirectPermissionGrantRepository creates a new PostgreSQL
// direct grant repository
func NewPostgresUserDirectPermissionGrantRepository(db *sql.DB) repositories.UserDirectPermissionGrantRepository {
	return &PostgresUserDirectPermissionGrantRepository{db: db}
}

// FindActiveByUser retrieves the user's unexpired direct grants as of now.
func (r *PostgresUserDirectPermissionGrantRepository) FindActiveByUser(ctx context.Context, userID string, now time.Time) ([]*entities.UserDirectPermissionGrant, error) {
	query := `
		SELECT id, user_id, permission_id, effect, conditions, expires_at, granted_by, created_at
		FROM user_direct_permission_grants
		WHERE user_id = $1
			AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find direct grants: %w", err)
	}
	defer rows.Close()

	var grants []*entities.UserDirectPermissionGrant
	for rows.Next() {
		var (
			g          entities.UserDirectPermissionGrant
			effect     string
			conditions sql.NullString
			expiresAt  sql.NullTime
			grantedBy  sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.PermissionID, &effect, &conditions, &expiresAt, &grantedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan direct grant: %w", err)
		}
		g.Effect = entities.Effect(effect)
		g.Conditions = conditions.String
		if expiresAt.Valid {
			t := expiresAt.Time
			g.ExpiresAt = &t
		}
		if grantedBy.Valid {
			v := grantedBy.String
			g.GrantedBy = &v
		}
		grants = append(grants, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate direct grants: %w", err)
	}
	return grants, nil
}

// Grant inserts or replaces the grant for its (user, permission) pair.
func (r *PostgresUserDirectPermissionGrantRepository) Grant(ctx context.Context, grant *entities.UserDirectPermissionGrant) error {
	if err := grant.Validate(); err != nil {
		return fmt.Errorf("invalid grant: %w", err)
	}

	query := `
		INSERT INTO user_direct_permission_grants (id, user_id, permission_id, effect, conditions, expires_at, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, permission_id)
		DO UPDATE SET effect = EXCLUDED.effect, conditions = EXCLUDED.conditions,
			expires_at = EXCLUDED.expires_at, granted_by = EXCLUDED.granted_by
	`
	_, err := r.db.ExecContext(ctx, query,
		grant.ID, grant.UserID, grant.PermissionID, string(grant.Effect),
		sql.NullString{String: grant.Conditions, Valid: grant.Conditions != ""},
		nullableTime(grant.ExpiresAt), nullableString(grant.GrantedBy), grant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write grant: %w", err)
	}
	return nil
}

// Revoke deletes the grant for the (user, permission) pair.
func (r *PostgresUserDirectPermissionGrantRepository) Revoke(ctx context.Context, userID, permissionID string) error {
	query := `
		DELETE FROM user_direct_permission_grants
		WHERE user_id = $1 AND permission_id = $2
	`
	_, err := r.db.ExecContext(ctx, query, userID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
