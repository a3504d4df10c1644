package entities

import (
	"testing"
	"time"
)

func TestUserGroupAssignment_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "no expiry never expires", expiresAt: nil, want: false},
		{name: "future expiry is active", expiresAt: &future, want: false},
		{name: "past expiry is expired", expiresAt: &past, want: true},
		{name: "expiry exactly now is expired", expiresAt: &now, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &UserGroupAssignment{UserID: "u1", GroupID: "g1", ExpiresAt: tt.expiresAt}
			if got := a.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}

			g := &UserDirectPermissionGrant{UserID: "u1", PermissionID: "p1", Effect: EffectAllow, ExpiresAt: tt.expiresAt}
			if got := g.IsExpired(now); got != tt.want {
				t.Errorf("grant IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffect_Valid(t *testing.T) {
	if !EffectAllow.Valid() || !EffectDeny.Valid() {
		t.Error("ALLOW and DENY must be valid effects")
	}
	if Effect("MAYBE").Valid() {
		t.Error("unknown effect must be invalid")
	}
	if Effect("").Valid() {
		t.Error("empty effect must be invalid")
	}
}

func TestGroupPermissionAssignment_Validate(t *testing.T) {
	tests := []struct {
		name       string
		assignment GroupPermissionAssignment
		wantError  bool
	}{
		{
			name:       "valid",
			assignment: GroupPermissionAssignment{GroupID: "g1", PermissionID: "p1", Effect: EffectAllow},
		},
		{
			name:       "missing group",
			assignment: GroupPermissionAssignment{PermissionID: "p1", Effect: EffectAllow},
			wantError:  true,
		},
		{
			name:       "missing permission",
			assignment: GroupPermissionAssignment{GroupID: "g1", Effect: EffectDeny},
			wantError:  true,
		},
		{
			name:       "bad effect",
			assignment: GroupPermissionAssignment{GroupID: "g1", PermissionID: "p1", Effect: "GRANT"},
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.assignment.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestUserDirectPermissionGrant_Validate(t *testing.T) {
	grant := &UserDirectPermissionGrant{UserID: "u1", PermissionID: "p1", Effect: EffectDeny}
	if err := grant.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := &UserDirectPermissionGrant{PermissionID: "p1", Effect: EffectDeny}
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing user ID")
	}
}
