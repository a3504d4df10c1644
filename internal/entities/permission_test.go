package entities

import (
	"testing"
	"time"
)

func TestPermission_Matches(t *testing.T) {
	p := &Permission{ID: "p1", Code: mustCode(t, "stock.*.read")}

	if !p.Matches(mustCode(t, "stock.products.read")) {
		t.Error("wildcard permission should match concrete request")
	}
	if p.Matches(mustCode(t, "finance.invoices.read")) {
		t.Error("permission should not match a different module")
	}
}

func TestPermission_IsDeprecated(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]interface{}
		want     bool
	}{
		{name: "nil metadata", metadata: nil, want: false},
		{name: "deprecated true", metadata: map[string]interface{}{"deprecated": true}, want: true},
		{name: "deprecated false", metadata: map[string]interface{}{"deprecated": false}, want: false},
		{name: "deprecated non-bool is ignored", metadata: map[string]interface{}{"deprecated": "yes"}, want: false},
		{name: "unrelated keys are opaque", metadata: map[string]interface{}{"owner": "platform-team"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Permission{Metadata: tt.metadata}
			if got := p.IsDeprecated(); got != tt.want {
				t.Errorf("IsDeprecated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPermission_UpdateDescriptive(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	p := &Permission{
		ID:        "p1",
		Code:      mustCode(t, "stock.products.read"),
		Name:      "Read products",
		CreatedAt: created,
		UpdatedAt: created,
	}

	p.UpdateDescriptive("Read product catalog", "ability to list products", map[string]interface{}{"deprecated": true}, updated)

	if p.Name != "Read product catalog" {
		t.Errorf("Name = %q", p.Name)
	}
	if !p.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, updated)
	}
	if !p.IsDeprecated() {
		t.Error("expected deprecated flag to be set")
	}
	if p.Code.Value() != "stock.products.read" {
		t.Error("code must stay immutable through descriptive updates")
	}
}

func TestPermissionGroup_VisibleToTenant(t *testing.T) {
	tenantA := "tenant-a"

	systemWide := &PermissionGroup{ID: "g1", Slug: "admin", Name: "Admin"}
	if !systemWide.IsSystemWide() {
		t.Error("nil tenant should be system-wide")
	}
	if !systemWide.VisibleToTenant("tenant-b") {
		t.Error("system-wide group must be visible to every tenant")
	}

	owned := &PermissionGroup{ID: "g2", TenantID: &tenantA, Slug: "ops", Name: "Ops"}
	if owned.IsSystemWide() {
		t.Error("tenant-owned group is not system-wide")
	}
	if !owned.VisibleToTenant(tenantA) {
		t.Error("group must be visible to its own tenant")
	}
	if owned.VisibleToTenant("tenant-b") {
		t.Error("group must not be visible to another tenant")
	}
}

func TestPermissionGroup_Validate(t *testing.T) {
	g := &PermissionGroup{ID: "g1", Name: "Ops", Slug: "ops"}
	if err := g.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	selfParent := &PermissionGroup{ID: "g1", Name: "Ops", Slug: "ops", ParentID: &g.ID}
	if err := selfParent.Validate(); err == nil {
		t.Error("expected error for self-parent")
	}

	noSlug := &PermissionGroup{ID: "g1", Name: "Ops"}
	if err := noSlug.Validate(); err == nil {
		t.Error("expected error for missing slug")
	}
}
