package entities

import "time"

// Permission is a catalog entry binding a permission code to descriptive
// metadata. Rows referenced by assignments or grants are never physically
// removed; deletion is a soft delete.
type Permission struct {
	ID          string
	Code        PermissionCode
	Name        string
	Description string
	Module      string
	Resource    string
	Action      string
	IsSystem    bool                   // Seeded at install time; code immutable, row non-deletable
	Metadata    map[string]interface{} // Open bag; only the "deprecated" flag is interpreted
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Matches reports whether this permission's code matches the requested code.
func (p *Permission) Matches(code PermissionCode) bool {
	return p.Code.Matches(code)
}

// IsDeprecated reports whether the metadata bag carries a true "deprecated"
// flag. Anything other than a boolean true is treated as not deprecated.
func (p *Permission) IsDeprecated() bool {
	if p.Metadata == nil {
		return false
	}
	deprecated, ok := p.Metadata["deprecated"].(bool)
	return ok && deprecated
}

// IsDeleted reports whether the row has been soft-deleted.
func (p *Permission) IsDeleted() bool {
	return p.DeletedAt != nil
}

// UpdateDescriptive mutates the editable surface of the catalog entry.
// The code itself is immutable after creation.
func (p *Permission) UpdateDescriptive(name, description string, metadata map[string]interface{}, now time.Time) {
	p.Name = name
	p.Description = description
	p.Metadata = metadata
	p.UpdatedAt = now
}
