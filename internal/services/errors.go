package services

import "errors"

var (
	// ErrNotFound indicates the addressed row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlugTaken indicates the group slug is already used in the tenant scope.
	ErrSlugTaken = errors.New("slug already in use")

	// ErrGroupCycle indicates a parent assignment would make the group
	// hierarchy cyclic. Cycles are refused at write time; the resolver never
	// walks the hierarchy.
	ErrGroupCycle = errors.New("group hierarchy cycle")

	// ErrSystemManaged indicates an operation not permitted on system-seeded
	// rows (deleting a system permission, changing its code).
	ErrSystemManaged = errors.New("system-managed row")
)
