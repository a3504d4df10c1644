package authorization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/repositories"
	"github.com/hikage/banken/pkg/cache"
)

// MatchedVia values identify which layer produced a decision.
const (
	MatchedViaDirect  = "direct"
	MatchedViaGroup   = "group"
	MatchedViaDefault = "default"
)

// Decision is the outcome of one authorization resolution.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	MatchedVia string `json:"matched_via"`
	Reason     string `json:"reason"`
}

// ResolverInterface defines the decision function exposed to consumers
// (HTTP middleware, batch jobs, etc.).
type ResolverInterface interface {
	Authorize(ctx context.Context, tenantID, userID, permissionCode string, reqContext map[string]interface{}) (*Decision, error)
}

// Resolver combines direct grants and group-sourced permission assignments
// into a single allow/deny decision. It is a pure read path: given one
// snapshot of the repository reads it is deterministic, and independent
// resolutions may run concurrently.
type Resolver struct {
	permissions      repositories.PermissionRepository
	groups           repositories.PermissionGroupRepository
	groupAssignments repositories.GroupPermissionAssignmentRepository
	memberships      repositories.UserGroupAssignmentRepository
	directGrants     repositories.UserDirectPermissionGrantRepository
	conditions       *ConditionEngine
	logger           *logrus.Entry

	cache    cache.Cache   // Optional cache for decisions
	cacheTTL time.Duration // TTL for cached decisions

	clock func() time.Time
}

// NewResolver creates a Resolver without caching.
func NewResolver(
	permissions repositories.PermissionRepository,
	groups repositories.PermissionGroupRepository,
	groupAssignments repositories.GroupPermissionAssignmentRepository,
	memberships repositories.UserGroupAssignmentRepository,
	directGrants repositories.UserDirectPermissionGrantRepository,
	conditions *ConditionEngine,
	logger *logrus.Entry,
) *Resolver {
	return &Resolver{
		permissions:      permissions,
		groups:           groups,
		groupAssignments: groupAssignments,
		memberships:      memberships,
		directGrants:     directGrants,
		conditions:       conditions,
		logger:           logger,
		clock:            time.Now,
	}
}

// NewResolverWithCache creates a Resolver that caches decisions.
func NewResolverWithCache(
	permissions repositories.PermissionRepository,
	groups repositories.PermissionGroupRepository,
	groupAssignments repositories.GroupPermissionAssignmentRepository,
	memberships repositories.UserGroupAssignmentRepository,
	directGrants repositories.UserDirectPermissionGrantRepository,
	conditions *ConditionEngine,
	logger *logrus.Entry,
	c cache.Cache,
	cacheTTL time.Duration,
) *Resolver {
	r := NewResolver(permissions, groups, groupAssignments, memberships, directGrants, conditions, logger)
	r.cache = c
	r.cacheTTL = cacheTTL
	return r
}

// DecisionKeyPrefix returns the cache key prefix covering every cached
// decision for one (tenant, user) pair. Provisioning mutations use it to
// invalidate exactly the affected pair.
func DecisionKeyPrefix(tenantID, userID string) string {
	return fmt.Sprintf("decision:%s:%s:", tenantID, userID)
}

// decisionKey builds the cache key for one resolution. The context map is
// serialized with encoding/json, which orders map keys, so equal contexts
// hash equally.
func decisionKey(tenantID, userID string, code entities.PermissionCode, reqContext map[string]interface{}) string {
	ctxJSON, err := json.Marshal(reqContext)
	if err != nil {
		// Non-serializable context values: fall back to an unshared key so
		// the entry can never be returned for a different context.
		ctxJSON = []byte(fmt.Sprintf("%p", &reqContext))
	}
	sum := sha256.Sum256(append([]byte(code.Value()+"\x00"), ctxJSON...))
	return DecisionKeyPrefix(tenantID, userID) + hex.EncodeToString(sum[:])
}

// Authorize validates the requested permission code and resolves a decision.
// A malformed code is rejected with entities.ErrInvalidPermissionCode before
// any repository access. Absence of any matching grant is not an error; it
// resolves to the default deny. Repository failures are propagated so the
// caller can choose its own fail-open/fail-closed policy.
func (r *Resolver) Authorize(ctx context.Context, tenantID, userID, permissionCode string, reqContext map[string]interface{}) (*Decision, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	code, err := entities.NewPermissionCode(permissionCode)
	if err != nil {
		return nil, err
	}

	var cacheKey string
	if r.cache != nil {
		cacheKey = decisionKey(tenantID, userID, code, reqContext)
		if cached, found := r.cache.Get(ctx, cacheKey); found {
			if decision, ok := cached.(*Decision); ok {
				return decision, nil
			}
		}
	}

	decision, err := r.Resolve(ctx, tenantID, userID, code, reqContext, r.clock())
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, cacheKey, decision, r.cacheTTL)
	}

	return decision, nil
}

// Resolve runs the decision algorithm against an explicit time snapshot.
// All expiry comparisons across the repository reads use the same now.
func (r *Resolver) Resolve(ctx context.Context, tenantID, userID string, code entities.PermissionCode, reqContext map[string]interface{}, now time.Time) (*Decision, error) {
	condCtx := &ConditionContext{
		Request: reqContext,
		Subject: map[string]interface{}{
			"id":        userID,
			"tenant_id": tenantID,
		},
	}

	// The four initial reads are independent queries over disjoint data,
	// issued concurrently against the same now snapshot.
	var (
		catalog     []*entities.Permission
		grants      []*entities.UserDirectPermissionGrant
		memberships []*entities.UserGroupAssignment
		groups      []*entities.PermissionGroup
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		catalog, err = r.permissions.ListAll(egCtx)
		if err != nil {
			return fmt.Errorf("failed to load permission catalog: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		grants, err = r.directGrants.FindActiveByUser(egCtx, userID, now)
		if err != nil {
			return fmt.Errorf("failed to load direct grants: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		memberships, err = r.memberships.FindActiveByUser(egCtx, userID, tenantID, now)
		if err != nil {
			return fmt.Errorf("failed to load group memberships: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		groups, err = r.groups.FindActiveForTenant(egCtx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to load groups: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	permsByID := make(map[string]*entities.Permission, len(catalog))
	for _, p := range catalog {
		permsByID[p.ID] = p
	}

	// Direct grants take precedence over anything group-sourced.
	if decision := r.resolveDirect(grants, permsByID, code, condCtx, now); decision != nil {
		return decision, nil
	}

	decision, err := r.resolveGroups(ctx, tenantID, memberships, groups, permsByID, code, condCtx)
	if err != nil {
		return nil, err
	}
	if decision != nil {
		return decision, nil
	}

	return &Decision{
		Allowed:    false,
		MatchedVia: MatchedViaDefault,
		Reason:     fmt.Sprintf("no grant or group assignment matches %s", code.Value()),
	}, nil
}

// resolveDirect evaluates the user's active direct grants. A matching DENY
// is absolute and short-circuits all further evaluation; a matching ALLOW
// wins over any group-sourced effect. Returns nil when no grant applies.
func (r *Resolver) resolveDirect(
	grants []*entities.UserDirectPermissionGrant,
	permsByID map[string]*entities.Permission,
	code entities.PermissionCode,
	condCtx *ConditionContext,
	now time.Time,
) *Decision {
	var allow *entities.UserDirectPermissionGrant

	for _, grant := range grants {
		if grant.IsExpired(now) {
			// Defensive re-check; the repository already filters by now.
			continue
		}
		perm, ok := permsByID[grant.PermissionID]
		if !ok || !perm.Matches(code) {
			continue
		}
		if !r.conditionHolds(grant.Conditions, condCtx, "direct grant", grant.ID) {
			continue
		}

		if grant.Effect == entities.EffectDeny {
			return &Decision{
				Allowed:    false,
				MatchedVia: MatchedViaDirect,
				Reason:     fmt.Sprintf("direct DENY grant on %s", perm.Code.Value()),
			}
		}
		if allow == nil {
			allow = grant
		}
	}

	if allow != nil {
		perm := permsByID[allow.PermissionID]
		return &Decision{
			Allowed:    true,
			MatchedVia: MatchedViaDirect,
			Reason:     fmt.Sprintf("direct ALLOW grant on %s", perm.Code.Value()),
		}
	}

	return nil
}

// groupEffect is one group-sourced effect tagged with its group's priority.
type groupEffect struct {
	effect    entities.Effect
	priority  int
	groupName string
	permCode  string
}

// resolveGroups evaluates the user's group memberships. Among all matching
// effects, the highest priority band wins; a DENY anywhere inside that band
// resolves to deny. Returns nil when no assignment applies.
func (r *Resolver) resolveGroups(
	ctx context.Context,
	tenantID string,
	memberships []*entities.UserGroupAssignment,
	groups []*entities.PermissionGroup,
	permsByID map[string]*entities.Permission,
	code entities.PermissionCode,
	condCtx *ConditionContext,
) (*Decision, error) {
	groupsByID := make(map[string]*entities.PermissionGroup, len(groups))
	for _, g := range groups {
		groupsByID[g.ID] = g
	}

	var effects []groupEffect

	for _, membership := range memberships {
		group, ok := groupsByID[membership.GroupID]
		if !ok {
			// Membership in a group that is inactive, soft-deleted, or not
			// visible in this tenant: skip.
			continue
		}
		if !group.IsActive || !group.VisibleToTenant(tenantID) {
			continue
		}

		assignments, err := r.groupAssignments.FindByGroup(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load assignments for group %s: %w", group.ID, err)
		}

		for _, assignment := range assignments {
			perm, ok := permsByID[assignment.PermissionID]
			if !ok || !perm.Matches(code) {
				continue
			}
			if !r.conditionHolds(assignment.Conditions, condCtx, "group assignment", group.ID+"/"+assignment.PermissionID) {
				continue
			}
			effects = append(effects, groupEffect{
				effect:    assignment.Effect,
				priority:  group.Priority,
				groupName: group.Name,
				permCode:  perm.Code.Value(),
			})
		}
	}

	if len(effects) == 0 {
		return nil, nil
	}

	// Highest priority band wins; deny wins ties inside the band.
	sort.SliceStable(effects, func(i, j int) bool {
		return effects[i].priority > effects[j].priority
	})
	top := effects[0].priority

	for _, e := range effects {
		if e.priority != top {
			break
		}
		if e.effect == entities.EffectDeny {
			return &Decision{
				Allowed:    false,
				MatchedVia: MatchedViaGroup,
				Reason:     fmt.Sprintf("group %q (priority %d) DENY on %s", e.groupName, e.priority, e.permCode),
			}, nil
		}
	}

	// The top band contains only ALLOW effects.
	e := effects[0]
	return &Decision{
		Allowed:    true,
		MatchedVia: MatchedViaGroup,
		Reason:     fmt.Sprintf("group %q (priority %d) ALLOW on %s", e.groupName, e.priority, e.permCode),
	}, nil
}

// conditionHolds evaluates a stored predicate. Evaluation errors are data
// integrity problems in stored rows, not caller errors: they are logged and
// the single row is treated as a non-match.
func (r *Resolver) conditionHolds(expression string, condCtx *ConditionContext, sourceKind, sourceID string) bool {
	ok, err := r.conditions.Evaluate(expression, condCtx)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"source":     sourceKind,
				"source_id":  sourceID,
				"expression": expression,
			}).WithError(err).Warn("malformed condition predicate, treating as non-match")
		}
		return false
	}
	return ok
}
