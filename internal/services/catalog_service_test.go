package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hikage/banken/internal/entities"
)

func TestCatalogService_CreatePermission(t *testing.T) {
	repo := newMockPermissionRepository()
	service := NewCatalogService(repo)

	permission, err := service.CreatePermission(context.Background(), &CreatePermissionRequest{
		Code:        "stock.products.create",
		Name:        "Create products",
		Description: "Create catalog products",
		Metadata:    map[string]interface{}{"category": "stock"},
	})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	if permission.ID == "" {
		t.Error("expected a generated ID")
	}
	if permission.Code.Value() != "stock.products.create" {
		t.Errorf("Code = %q, want stock.products.create", permission.Code.Value())
	}
	if permission.Module != "stock" || permission.Resource != "products" || permission.Action != "create" {
		t.Errorf("denormalized segments = %s/%s/%s", permission.Module, permission.Resource, permission.Action)
	}
	if len(repo.created) != 1 {
		t.Errorf("expected one Create call, got %d", len(repo.created))
	}
}

func TestCatalogService_CreatePermission_MalformedCode(t *testing.T) {
	repo := newMockPermissionRepository()
	service := NewCatalogService(repo)

	tests := []string{
		"",
		"core..create",
		"a.b.c.d.e",
		"core.users.cre ate",
	}
	for _, code := range tests {
		t.Run(code, func(t *testing.T) {
			_, err := service.CreatePermission(context.Background(), &CreatePermissionRequest{
				Code: code,
				Name: "Broken",
			})
			if !errors.Is(err, entities.ErrInvalidPermissionCode) {
				t.Fatalf("CreatePermission(%q): expected ErrInvalidPermissionCode, got %v", code, err)
			}
		})
	}
	if len(repo.created) != 0 {
		t.Error("malformed codes must never reach the repository")
	}
}

func TestCatalogService_CreatePermission_MissingName(t *testing.T) {
	service := NewCatalogService(newMockPermissionRepository())

	_, err := service.CreatePermission(context.Background(), &CreatePermissionRequest{
		Code: "stock.products.read",
	})
	if err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestCatalogService_UpdatePermission(t *testing.T) {
	repo := newMockPermissionRepository()
	service := NewCatalogService(repo)

	original, err := service.CreatePermission(context.Background(), &CreatePermissionRequest{
		Code: "stock.products.read",
		Name: "Read products",
	})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	updated, err := service.UpdatePermission(context.Background(), original.ID, "Read products (renamed)", "new description", nil)
	if err != nil {
		t.Fatalf("UpdatePermission: %v", err)
	}
	if updated.Name != "Read products (renamed)" {
		t.Errorf("Name = %q", updated.Name)
	}
	if updated.Code.Value() != "stock.products.read" {
		t.Error("code must stay immutable across updates")
	}
}

func TestCatalogService_UpdatePermission_NotFound(t *testing.T) {
	service := NewCatalogService(newMockPermissionRepository())

	_, err := service.UpdatePermission(context.Background(), "ghost", "x", "y", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogService_DeletePermission(t *testing.T) {
	repo := newMockPermissionRepository()
	service := NewCatalogService(repo)

	p, err := service.CreatePermission(context.Background(), &CreatePermissionRequest{
		Code: "stock.products.read",
		Name: "Read products",
	})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	if err := service.DeletePermission(context.Background(), p.ID); err != nil {
		t.Fatalf("DeletePermission: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != p.ID {
		t.Errorf("expected soft delete of %s, got %v", p.ID, repo.deleted)
	}
}

func TestCatalogService_DeletePermission_SystemManaged(t *testing.T) {
	repo := newMockPermissionRepository()
	service := NewCatalogService(repo)

	p, err := service.CreatePermission(context.Background(), &CreatePermissionRequest{
		Code:     "*.*.*",
		Name:     "Full access",
		IsSystem: true,
	})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	err = service.DeletePermission(context.Background(), p.ID)
	if !errors.Is(err, ErrSystemManaged) {
		t.Fatalf("expected ErrSystemManaged, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Error("system permissions must never be deleted")
	}
}
