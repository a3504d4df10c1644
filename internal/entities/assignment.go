package entities

import (
	"fmt"
	"time"
)

// Effect is the outcome attached to a permission assignment or grant.
type Effect string

const (
	EffectAllow Effect = "ALLOW"
	EffectDeny  Effect = "DENY"
)

// Valid reports whether the effect is one of the two known values.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// GroupPermissionAssignment binds a permission to a group with an effect and
// an optional condition predicate. Unique per (group, permission) pair.
type GroupPermissionAssignment struct {
	GroupID      string
	PermissionID string
	Effect       Effect
	Conditions   string // CEL expression over request/subject; empty = unconditional
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the structural invariants of the assignment.
func (a *GroupPermissionAssignment) Validate() error {
	if a.GroupID == "" {
		return fmt.Errorf("group ID is required")
	}
	if a.PermissionID == "" {
		return fmt.Errorf("permission ID is required")
	}
	if !a.Effect.Valid() {
		return fmt.Errorf("effect must be %s or %s, got %q", EffectAllow, EffectDeny, a.Effect)
	}
	return nil
}

// UserGroupAssignment is a user's membership in a group. A nil GrantedBy
// means the membership was granted by the system (e.g. tenant bootstrap).
// Expired rows are filtered out of the active set by query but retained in
// storage for audit history.
type UserGroupAssignment struct {
	UserID     string
	GroupID    string
	GrantedBy  *string
	ExpiresAt  *time.Time // nil = no expiry
	AssignedAt time.Time
}

// IsExpired reports whether the membership is expired as of now.
func (a *UserGroupAssignment) IsExpired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Validate checks the structural invariants of the membership.
func (a *UserGroupAssignment) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if a.GroupID == "" {
		return fmt.Errorf("group ID is required")
	}
	return nil
}

// UserDirectPermissionGrant binds a permission straight to a user, bypassing
// groups. Direct grants take precedence over group-sourced effects, and a
// direct deny is absolute.
type UserDirectPermissionGrant struct {
	ID           string
	UserID       string
	PermissionID string
	Effect       Effect
	Conditions   string // CEL expression over request/subject; empty = unconditional
	ExpiresAt    *time.Time
	GrantedBy    *string
	CreatedAt    time.Time
}

// IsExpired reports whether the grant is expired as of now.
func (g *UserDirectPermissionGrant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

// Validate checks the structural invariants of the grant.
func (g *UserDirectPermissionGrant) Validate() error {
	if g.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if g.PermissionID == "" {
		return fmt.Errorf("permission ID is required")
	}
	if !g.Effect.Valid() {
		return fmt.Errorf("effect must be %s or %s, got %q", EffectAllow, EffectDeny, g.Effect)
	}
	return nil
}
