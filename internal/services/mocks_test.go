package services

import (
	"context"
	"time"

	"github.com/hikage/banken/internal/entities"
)

// mockPermissionRepository is an in-memory PermissionRepository.
type mockPermissionRepository struct {
	permissions map[string]*entities.Permission
	created     []*entities.Permission
	updated     []*entities.Permission
	deleted     []string
	err         error
}

func newMockPermissionRepository() *mockPermissionRepository {
	return &mockPermissionRepository{permissions: make(map[string]*entities.Permission)}
}

func (m *mockPermissionRepository) ListAll(ctx context.Context) ([]*entities.Permission, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*entities.Permission
	for _, p := range m.permissions {
		result = append(result, p)
	}
	return result, nil
}

func (m *mockPermissionRepository) FindManyByCodes(ctx context.Context, codes []entities.PermissionCode) ([]*entities.Permission, error) {
	return nil, m.err
}

func (m *mockPermissionRepository) FindByID(ctx context.Context, id string) (*entities.Permission, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.permissions[id], nil
}

func (m *mockPermissionRepository) Create(ctx context.Context, p *entities.Permission) error {
	if m.err != nil {
		return m.err
	}
	m.permissions[p.ID] = p
	m.created = append(m.created, p)
	return nil
}

func (m *mockPermissionRepository) Update(ctx context.Context, p *entities.Permission) error {
	m.permissions[p.ID] = p
	m.updated = append(m.updated, p)
	return nil
}

func (m *mockPermissionRepository) SoftDelete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

// mockGroupRepository is an in-memory PermissionGroupRepository.
type mockGroupRepository struct {
	groups  map[string]*entities.PermissionGroup
	created []*entities.PermissionGroup
	err     error
}

func newMockGroupRepository() *mockGroupRepository {
	return &mockGroupRepository{groups: make(map[string]*entities.PermissionGroup)}
}

func (m *mockGroupRepository) FindBySlugAndTenant(ctx context.Context, slug string, tenantID *string) (*entities.PermissionGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, g := range m.groups {
		if g.Slug != slug || g.IsDeleted() {
			continue
		}
		if tenantID == nil && g.TenantID == nil {
			return g, nil
		}
		if tenantID != nil && g.TenantID != nil && *g.TenantID == *tenantID {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockGroupRepository) FindActiveForTenant(ctx context.Context, tenantID string) ([]*entities.PermissionGroup, error) {
	var result []*entities.PermissionGroup
	for _, g := range m.groups {
		if g.IsActive && g.VisibleToTenant(tenantID) && !g.IsDeleted() {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockGroupRepository) FindByID(ctx context.Context, id string) (*entities.PermissionGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.groups[id], nil
}

func (m *mockGroupRepository) Create(ctx context.Context, g *entities.PermissionGroup) error {
	m.groups[g.ID] = g
	m.created = append(m.created, g)
	return nil
}

func (m *mockGroupRepository) Update(ctx context.Context, g *entities.PermissionGroup) error {
	m.groups[g.ID] = g
	return nil
}

func (m *mockGroupRepository) SoftDelete(ctx context.Context, id string) error {
	delete(m.groups, id)
	return nil
}

// mockGroupAssignmentRepository is an in-memory GroupPermissionAssignmentRepository.
type mockGroupAssignmentRepository struct {
	assignments []*entities.GroupPermissionAssignment
	err         error
}

func (m *mockGroupAssignmentRepository) FindByGroup(ctx context.Context, groupID string) ([]*entities.GroupPermissionAssignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*entities.GroupPermissionAssignment
	for _, a := range m.assignments {
		if a.GroupID == groupID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockGroupAssignmentRepository) Upsert(ctx context.Context, a *entities.GroupPermissionAssignment) error {
	if m.err != nil {
		return m.err
	}
	for i, existing := range m.assignments {
		if existing.GroupID == a.GroupID && existing.PermissionID == a.PermissionID {
			m.assignments[i] = a
			return nil
		}
	}
	m.assignments = append(m.assignments, a)
	return nil
}

func (m *mockGroupAssignmentRepository) Delete(ctx context.Context, groupID, permissionID string) error {
	for i, a := range m.assignments {
		if a.GroupID == groupID && a.PermissionID == permissionID {
			m.assignments = append(m.assignments[:i], m.assignments[i+1:]...)
			return nil
		}
	}
	return nil
}

// mockMembershipRepository is an in-memory UserGroupAssignmentRepository.
type mockMembershipRepository struct {
	memberships []*entities.UserGroupAssignment
	err         error
}

func (m *mockMembershipRepository) FindActiveByUser(ctx context.Context, userID, tenantID string, now time.Time) ([]*entities.UserGroupAssignment, error) {
	var result []*entities.UserGroupAssignment
	for _, a := range m.memberships {
		if a.UserID == userID && !a.IsExpired(now) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockMembershipRepository) FindByGroup(ctx context.Context, groupID string) ([]*entities.UserGroupAssignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*entities.UserGroupAssignment
	for _, a := range m.memberships {
		if a.GroupID == groupID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockMembershipRepository) Assign(ctx context.Context, a *entities.UserGroupAssignment) error {
	if m.err != nil {
		return m.err
	}
	m.memberships = append(m.memberships, a)
	return nil
}

func (m *mockMembershipRepository) Remove(ctx context.Context, userID, groupID string) error {
	for i, a := range m.memberships {
		if a.UserID == userID && a.GroupID == groupID {
			m.memberships = append(m.memberships[:i], m.memberships[i+1:]...)
			return nil
		}
	}
	return nil
}

// mockDirectGrantRepository is an in-memory UserDirectPermissionGrantRepository.
type mockDirectGrantRepository struct {
	grants []*entities.UserDirectPermissionGrant
	err    error
}

func (m *mockDirectGrantRepository) FindActiveByUser(ctx context.Context, userID string, now time.Time) ([]*entities.UserDirectPermissionGrant, error) {
	var result []*entities.UserDirectPermissionGrant
	for _, g := range m.grants {
		if g.UserID == userID && !g.IsExpired(now) {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockDirectGrantRepository) Grant(ctx context.Context, g *entities.UserDirectPermissionGrant) error {
	if m.err != nil {
		return m.err
	}
	m.grants = append(m.grants, g)
	return nil
}

func (m *mockDirectGrantRepository) Revoke(ctx context.Context, userID, permissionID string) error {
	for i, g := range m.grants {
		if g.UserID == userID && g.PermissionID == permissionID {
			m.grants = append(m.grants[:i], m.grants[i+1:]...)
			return nil
		}
	}
	return nil
}

// recordingInvalidator records invalidation calls for assertion.
type recordingInvalidator struct {
	users    []string // "tenant/user" pairs
	allCalls int
}

func (r *recordingInvalidator) InvalidateUser(ctx context.Context, tenantID, userID string) error {
	r.users = append(r.users, tenantID+"/"+userID)
	return nil
}

func (r *recordingInvalidator) InvalidateAll(ctx context.Context) error {
	r.allCalls++
	return nil
}

// passValidator accepts every expression; failValidator rejects non-empty ones.
type passValidator struct{}

func (passValidator) ValidateExpression(expression string) error { return nil }

type failValidator struct{ err error }

func (f failValidator) ValidateExpression(expression string) error {
	if expression == "" {
		return nil
	}
	return f.err
}
