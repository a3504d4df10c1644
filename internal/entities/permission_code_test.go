package entities

import (
	"errors"
	"testing"
)

func TestNewPermissionCode_Parse(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
		module    string
		resource  string
		action    string
		scope     string
	}{
		{
			name:     "single segment fills defaults",
			value:    "stock",
			module:   "stock",
			resource: "_root",
			action:   "_root",
			scope:    "_root",
		},
		{
			name:     "two segments",
			value:    "core.users",
			module:   "core",
			resource: "users",
			action:   "_root",
			scope:    "_root",
		},
		{
			name:     "three segments",
			value:    "stock.products.read",
			module:   "stock",
			resource: "products",
			action:   "read",
			scope:    "_root",
		},
		{
			name:     "four segments",
			value:    "stock.products.read.own",
			module:   "stock",
			resource: "products",
			action:   "read",
			scope:    "own",
		},
		{
			name:     "wildcard segments",
			value:    "stock.*.read",
			module:   "stock",
			resource: "*",
			action:   "read",
			scope:    "_root",
		},
		{
			name:     "uppercase is accepted",
			value:    "Stock.Products.READ",
			module:   "Stock",
			resource: "Products",
			action:   "READ",
			scope:    "_root",
		},
		{
			name:      "five segments rejected",
			value:     "core.users.create.extra.more",
			wantError: true,
		},
		{
			name:      "empty segment rejected",
			value:     "core..create",
			wantError: true,
		},
		{
			name:      "empty string rejected",
			value:     "",
			wantError: true,
		},
		{
			name:      "trailing dot rejected",
			value:     "core.users.",
			wantError: true,
		},
		{
			name:      "invalid characters rejected",
			value:     "core.us ers.create",
			wantError: true,
		},
		{
			name:      "slash rejected",
			value:     "core/users",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := NewPermissionCode(tt.value)
			if (err != nil) != tt.wantError {
				t.Fatalf("NewPermissionCode(%q) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if tt.wantError {
				if !errors.Is(err, ErrInvalidPermissionCode) {
					t.Errorf("error should wrap ErrInvalidPermissionCode, got %v", err)
				}
				return
			}
			if code.Value() != tt.value {
				t.Errorf("Value() = %q, want %q", code.Value(), tt.value)
			}
			if code.Module() != tt.module {
				t.Errorf("Module() = %q, want %q", code.Module(), tt.module)
			}
			if code.Resource() != tt.resource {
				t.Errorf("Resource() = %q, want %q", code.Resource(), tt.resource)
			}
			if code.Action() != tt.action {
				t.Errorf("Action() = %q, want %q", code.Action(), tt.action)
			}
			if code.Scope() != tt.scope {
				t.Errorf("Scope() = %q, want %q", code.Scope(), tt.scope)
			}
		})
	}
}

func TestIsValidPermissionCode_AgreesWithParse(t *testing.T) {
	values := []string{
		"stock",
		"core.users",
		"stock.products.read",
		"stock.products.read.own",
		"*.*.*",
		"core.users.create.extra.more",
		"core..create",
		"",
		"core.us ers.create",
	}

	for _, value := range values {
		_, err := NewPermissionCode(value)
		if got := IsValidPermissionCode(value); got != (err == nil) {
			t.Errorf("IsValidPermissionCode(%q) = %v, but NewPermissionCode error = %v", value, got, err)
		}
	}
}

func TestPermissionCode_Matches(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "identical concrete codes", a: "stock.products.read", b: "stock.products.read", want: true},
		{name: "different concrete codes", a: "stock.products.read", b: "stock.products.write", want: false},
		{name: "concrete codes differing only in scope", a: "stock.products.read.own", b: "stock.products.read.all", want: false},
		{name: "wildcard resource", a: "stock.*.read", b: "stock.products.read", want: true},
		{name: "wildcard resource wrong action", a: "stock.*.read", b: "stock.products.write", want: false},
		{name: "full wildcard matches anything", a: "*.*.*", b: "finance.invoices.delete", want: true},
		{name: "full wildcard matches single segment code", a: "*.*.*", b: "stock", want: true},
		{name: "wildcard module", a: "*.products.read", b: "stock.products.read", want: true},
		{name: "wildcard ignores scope difference", a: "stock.products.*", b: "stock.products.read.own", want: true},
		{name: "wildcard both sides", a: "stock.*.read", b: "*.products.read", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustCode(t, tt.a)
			b := mustCode(t, tt.b)
			if got := a.Matches(b); got != tt.want {
				t.Errorf("%q.Matches(%q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Matching must be symmetric
			if got := b.Matches(a); got != tt.want {
				t.Errorf("%q.Matches(%q) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestPermissionCode_MatchesEqualsEqualityWithoutWildcards(t *testing.T) {
	values := []string{"stock", "core.users", "stock.products.read", "finance.invoices.delete"}
	for _, av := range values {
		for _, bv := range values {
			a := mustCode(t, av)
			b := mustCode(t, bv)
			if a.Matches(b) != (a.Value() == b.Value()) {
				t.Errorf("%q.Matches(%q) should equal value equality for concrete codes", av, bv)
			}
		}
	}
}

func TestNewPermissionCodeFromParts(t *testing.T) {
	code, err := NewPermissionCodeFromParts("stock", "products", "read")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code.Value() != "stock.products.read" {
		t.Errorf("Value() = %q, want %q", code.Value(), "stock.products.read")
	}

	if _, err := NewPermissionCodeFromParts("stock", "", "read"); err == nil {
		t.Error("expected error for empty segment")
	}
}

func TestPermissionCode_Equals(t *testing.T) {
	a := mustCode(t, "stock.products.read")
	b := mustCode(t, "stock.products.read")
	c := mustCode(t, "stock.*.read")

	if !a.Equals(b) {
		t.Error("identical codes should be equal")
	}
	if a.Equals(c) {
		t.Error("different codes should not be equal")
	}
	// A wildcard matching a code does not make them equal
	if !c.Matches(a) || c.Equals(a) {
		t.Error("wildcard should match but not equal the concrete code")
	}
}

func mustCode(t *testing.T, value string) PermissionCode {
	t.Helper()
	code, err := NewPermissionCode(value)
	if err != nil {
		t.Fatalf("NewPermissionCode(%q): %v", value, err)
	}
	return code
}
