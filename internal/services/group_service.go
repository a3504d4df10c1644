package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/repositories"
)

const maxHierarchyDepth = 64

// Template slugs of the system-wide groups cloned into every new tenant.
var bootstrapTemplateSlugs = []string{"admin", "user"}

// DecisionCacheInvalidator evicts cached decisions after provisioning
// mutations. Satisfied by authorization.CacheInvalidator.
type DecisionCacheInvalidator interface {
	InvalidateUser(ctx context.Context, tenantID, userID string) error
	InvalidateAll(ctx context.Context) error
}

// ConditionValidator validates stored condition predicates at write time.
// Satisfied by authorization.ConditionEngine.
type ConditionValidator interface {
	ValidateExpression(expression string) error
}

// GroupService administers permission groups, group permission assignments,
// user memberships, and direct grants. Every mutation invalidates the cached
// decisions it can affect.
type GroupService struct {
	groups           repositories.PermissionGroupRepository
	groupAssignments repositories.GroupPermissionAssignmentRepository
	memberships      repositories.UserGroupAssignmentRepository
	directGrants     repositories.UserDirectPermissionGrantRepository
	permissions      repositories.PermissionRepository
	conditions       ConditionValidator
	invalidator      DecisionCacheInvalidator
	logger           *logrus.Entry
	clock            func() time.Time
}

// NewGroupService creates a GroupService.
func NewGroupService(
	groups repositories.PermissionGroupRepository,
	groupAssignments repositories.GroupPermissionAssignmentRepository,
	memberships repositories.UserGroupAssignmentRepository,
	directGrants repositories.UserDirectPermissionGrantRepository,
	permissions repositories.PermissionRepository,
	conditions ConditionValidator,
	invalidator DecisionCacheInvalidator,
	logger *logrus.Entry,
) *GroupService {
	return &GroupService{
		groups:           groups,
		groupAssignments: groupAssignments,
		memberships:      memberships,
		directGrants:     directGrants,
		permissions:      permissions,
		conditions:       conditions,
		invalidator:      invalidator,
		logger:           logger,
		clock:            time.Now,
	}
}

// CreateGroupRequest carries the fields for a new group.
type CreateGroupRequest struct {
	TenantID    *string // nil = system-wide
	Name        string
	Slug        string
	Description string
	Color       string
	Priority    int
	ParentID    *string
	IsSystem    bool
}

// CreateGroup inserts a new group after checking slug uniqueness within the
// tenant scope and that the parent pointer does not form a cycle.
func (s *GroupService) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*entities.PermissionGroup, error) {
	now := s.clock()
	group := &entities.PermissionGroup{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Color:       req.Color,
		Priority:    req.Priority,
		ParentID:    req.ParentID,
		IsSystem:    req.IsSystem,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := group.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.groups.FindBySlugAndTenant(ctx, req.Slug, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("slug %q: %w", req.Slug, ErrSlugTaken)
	}

	if req.ParentID != nil {
		if err := s.checkNoCycle(ctx, group.ID, *req.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// UpdateGroupRequest carries the editable fields of a group.
type UpdateGroupRequest struct {
	Name        string
	Description string
	Color       string
	Priority    int
	IsActive    bool
}

// UpdateGroup edits a group. Priority and activation changes alter decisions
// for every member, so the group's cached decisions are invalidated.
func (s *GroupService) UpdateGroup(ctx context.Context, groupID string, req *UpdateGroupRequest) (*entities.PermissionGroup, error) {
	group, err := s.mustGetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	group.Name = req.Name
	group.Description = req.Description
	group.Color = req.Color
	group.Priority = req.Priority
	group.IsActive = req.IsActive
	group.UpdatedAt = s.clock()
	if err := group.Validate(); err != nil {
		return nil, err
	}

	if err := s.groups.Update(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	if err := s.invalidateGroupMembers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// SetGroupParent re-parents a group, refusing cycles at write time.
func (s *GroupService) SetGroupParent(ctx context.Context, groupID string, parentID *string) error {
	group, err := s.mustGetGroup(ctx, groupID)
	if err != nil {
		return err
	}

	if parentID != nil {
		if err := s.checkNoCycle(ctx, groupID, *parentID); err != nil {
			return err
		}
	}

	group.ParentID = parentID
	group.UpdatedAt = s.clock()
	if err := s.groups.Update(ctx, group); err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	return nil
}

// checkNoCycle walks the parent chain upward from candidate and fails if it
// reaches groupID. The hierarchy is organizational only, but a cyclic chain
// is meaningless data and is refused here.
func (s *GroupService) checkNoCycle(ctx context.Context, groupID, candidateParentID string) error {
	currentID := candidateParentID
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		if currentID == groupID {
			return fmt.Errorf("parent %s: %w", candidateParentID, ErrGroupCycle)
		}
		parent, err := s.groups.FindByID(ctx, currentID)
		if err != nil {
			return fmt.Errorf("failed to walk group hierarchy: %w", err)
		}
		if parent == nil {
			return fmt.Errorf("parent group %s: %w", currentID, ErrNotFound)
		}
		if parent.ParentID == nil {
			return nil
		}
		currentID = *parent.ParentID
	}
	return fmt.Errorf("parent chain deeper than %d: %w", maxHierarchyDepth, ErrGroupCycle)
}

// AssignPermissionToGroup upserts a (group, permission, effect, conditions)
// tuple. The condition predicate is validated at write time so malformed
// expressions never reach the resolver.
func (s *GroupService) AssignPermissionToGroup(ctx context.Context, groupID, permissionID string, effect entities.Effect, conditions string) error {
	group, err := s.mustGetGroup(ctx, groupID)
	if err != nil {
		return err
	}

	permission, err := s.permissions.FindByID(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("failed to load permission: %w", err)
	}
	if permission == nil {
		return fmt.Errorf("permission %s: %w", permissionID, ErrNotFound)
	}

	if err := s.conditions.ValidateExpression(conditions); err != nil {
		return err
	}

	now := s.clock()
	assignment := &entities.GroupPermissionAssignment{
		GroupID:      groupID,
		PermissionID: permissionID,
		Effect:       effect,
		Conditions:   conditions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := assignment.Validate(); err != nil {
		return err
	}

	if err := s.groupAssignments.Upsert(ctx, assignment); err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}

	return s.invalidateGroupMembers(ctx, group)
}

// RemovePermissionFromGroup deletes the (group, permission) assignment.
func (s *GroupService) RemovePermissionFromGroup(ctx context.Context, groupID, permissionID string) error {
	group, err := s.mustGetGroup(ctx, groupID)
	if err != nil {
		return err
	}

	if err := s.groupAssignments.Delete(ctx, groupID, permissionID); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	return s.invalidateGroupMembers(ctx, group)
}

// AssignUserToGroup adds a user to a group, optionally time-bounded.
// A nil grantedBy records a system-granted membership.
func (s *GroupService) AssignUserToGroup(ctx context.Context, tenantID, userID, groupID string, grantedBy *string, expiresAt *time.Time) error {
	if _, err := s.mustGetGroup(ctx, groupID); err != nil {
		return err
	}

	assignment := &entities.UserGroupAssignment{
		UserID:     userID,
		GroupID:    groupID,
		GrantedBy:  grantedBy,
		ExpiresAt:  expiresAt,
		AssignedAt: s.clock(),
	}
	if err := assignment.Validate(); err != nil {
		return err
	}

	if err := s.memberships.Assign(ctx, assignment); err != nil {
		return fmt.Errorf("failed to assign user to group: %w", err)
	}

	return s.invalidator.InvalidateUser(ctx, tenantID, userID)
}

// RemoveUserFromGroup removes a membership.
func (s *GroupService) RemoveUserFromGroup(ctx context.Context, tenantID, userID, groupID string) error {
	if err := s.memberships.Remove(ctx, userID, groupID); err != nil {
		return fmt.Errorf("failed to remove user from group: %w", err)
	}
	return s.invalidator.InvalidateUser(ctx, tenantID, userID)
}

// GrantDirectPermission upserts a direct grant for a user, bypassing groups.
func (s *GroupService) GrantDirectPermission(ctx context.Context, tenantID, userID, permissionID string, effect entities.Effect, conditions string, grantedBy *string, expiresAt *time.Time) error {
	permission, err := s.permissions.FindByID(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("failed to load permission: %w", err)
	}
	if permission == nil {
		return fmt.Errorf("permission %s: %w", permissionID, ErrNotFound)
	}

	if err := s.conditions.ValidateExpression(conditions); err != nil {
		return err
	}

	grant := &entities.UserDirectPermissionGrant{
		ID:           uuid.NewString(),
		UserID:       userID,
		PermissionID: permissionID,
		Effect:       effect,
		Conditions:   conditions,
		ExpiresAt:    expiresAt,
		GrantedBy:    grantedBy,
		CreatedAt:    s.clock(),
	}
	if err := grant.Validate(); err != nil {
		return err
	}

	if err := s.directGrants.Grant(ctx, grant); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}

	return s.invalidator.InvalidateUser(ctx, tenantID, userID)
}

// RevokeDirectPermission deletes the (user, permission) direct grant.
func (s *GroupService) RevokeDirectPermission(ctx context.Context, tenantID, userID, permissionID string) error {
	if err := s.directGrants.Revoke(ctx, userID, permissionID); err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}
	return s.invalidator.InvalidateUser(ctx, tenantID, userID)
}

// BootstrapTenant clones the system-wide template groups ("admin", "user")
// into a new tenant with tenant-qualified slugs, copying each template's
// permission assignments. Safe to re-run: already-cloned groups are skipped.
func (s *GroupService) BootstrapTenant(ctx context.Context, tenantID string) ([]*entities.PermissionGroup, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}

	var created []*entities.PermissionGroup
	now := s.clock()

	for _, slug := range bootstrapTemplateSlugs {
		template, err := s.groups.FindBySlugAndTenant(ctx, slug, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load template group %q: %w", slug, err)
		}
		if template == nil {
			return nil, fmt.Errorf("template group %q: %w", slug, ErrNotFound)
		}

		tenantSlug := fmt.Sprintf("%s-%s", tenantID, slug)
		existing, err := s.groups.FindBySlugAndTenant(ctx, tenantSlug, &tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug %q: %w", tenantSlug, err)
		}
		if existing != nil {
			continue
		}

		tenant := tenantID
		group := &entities.PermissionGroup{
			ID:          uuid.NewString(),
			TenantID:    &tenant,
			Name:        template.Name,
			Slug:        tenantSlug,
			Description: template.Description,
			Color:       template.Color,
			Priority:    template.Priority,
			IsSystem:    true,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.groups.Create(ctx, group); err != nil {
			return nil, fmt.Errorf("failed to clone group %q: %w", slug, err)
		}

		assignments, err := s.groupAssignments.FindByGroup(ctx, template.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load template assignments: %w", err)
		}
		for _, a := range assignments {
			clone := &entities.GroupPermissionAssignment{
				GroupID:      group.ID,
				PermissionID: a.PermissionID,
				Effect:       a.Effect,
				Conditions:   a.Conditions,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.groupAssignments.Upsert(ctx, clone); err != nil {
				return nil, fmt.Errorf("failed to clone assignment: %w", err)
			}
		}

		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"tenant_id": tenantID,
				"group":     group.Slug,
			}).Info("bootstrapped tenant group")
		}
		created = append(created, group)
	}

	return created, nil
}

// mustGetGroup loads a group or fails with ErrNotFound.
func (s *GroupService) mustGetGroup(ctx context.Context, groupID string) (*entities.PermissionGroup, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if group == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	return group, nil
}

// invalidateGroupMembers evicts cached decisions for every member of the
// group. System-wide groups span an unknown set of tenants, so their changes
// flush the whole cache.
func (s *GroupService) invalidateGroupMembers(ctx context.Context, group *entities.PermissionGroup) error {
	if group.IsSystemWide() {
		return s.invalidator.InvalidateAll(ctx)
	}

	members, err := s.memberships.FindByGroup(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("failed to load group members: %w", err)
	}
	for _, m := range members {
		if err := s.invalidator.InvalidateUser(ctx, *group.TenantID, m.UserID); err != nil {
			return err
		}
	}
	return nil
}
