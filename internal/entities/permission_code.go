package entities

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPermissionCode is returned when a permission code string does not
// conform to the module[.resource[.action[.scope]]] format.
var ErrInvalidPermissionCode = fmt.Errorf("invalid permission code")

const (
	// RootSegment fills omitted trailing segments, so "stock" parses as
	// module-only access equivalent to "stock._root._root".
	RootSegment = "_root"

	// WildcardSegment matches any value in the same position.
	WildcardSegment = "*"

	minSegments = 1
	maxSegments = 4
)

var segmentPattern = regexp.MustCompile(`(?i)^[a-z0-9*_-]+$`)

// PermissionCode is an immutable hierarchical capability identifier.
// Example: "stock.products.read" or "finance.*.delete".
type PermissionCode struct {
	value      string
	module     string
	resource   string
	action     string
	scope      string
	isWildcard bool
}

// NewPermissionCode parses a raw code string.
// The string must contain 1 to 4 dot-separated segments, each non-empty and
// matching [a-z0-9*_-]+ (case-insensitive). Omitted trailing segments default
// to RootSegment. Malformed input returns ErrInvalidPermissionCode.
func NewPermissionCode(value string) (PermissionCode, error) {
	segments := strings.Split(value, ".")
	if len(segments) < minSegments || len(segments) > maxSegments {
		return PermissionCode{}, fmt.Errorf("%w: %q must have between %d and %d segments", ErrInvalidPermissionCode, value, minSegments, maxSegments)
	}

	for _, seg := range segments {
		if seg == "" {
			return PermissionCode{}, fmt.Errorf("%w: %q contains an empty segment", ErrInvalidPermissionCode, value)
		}
		if !segmentPattern.MatchString(seg) {
			return PermissionCode{}, fmt.Errorf("%w: segment %q contains invalid characters", ErrInvalidPermissionCode, seg)
		}
	}

	filled := make([]string, maxSegments)
	for i := 0; i < maxSegments; i++ {
		if i < len(segments) {
			filled[i] = segments[i]
		} else {
			filled[i] = RootSegment
		}
	}

	return PermissionCode{
		value:      value,
		module:     filled[0],
		resource:   filled[1],
		action:     filled[2],
		scope:      filled[3],
		isWildcard: strings.Contains(value, WildcardSegment),
	}, nil
}

// NewPermissionCodeFromParts composes a code from discrete segments.
func NewPermissionCodeFromParts(module, resource, action string) (PermissionCode, error) {
	return NewPermissionCode(strings.Join([]string{module, resource, action}, "."))
}

// IsValidPermissionCode reports whether value would parse successfully.
func IsValidPermissionCode(value string) bool {
	_, err := NewPermissionCode(value)
	return err == nil
}

// Value returns the raw code string as it was parsed.
func (c PermissionCode) Value() string { return c.value }

// Module returns the first segment.
func (c PermissionCode) Module() string { return c.module }

// Resource returns the second segment (RootSegment when omitted).
func (c PermissionCode) Resource() string { return c.resource }

// Action returns the third segment (RootSegment when omitted).
func (c PermissionCode) Action() string { return c.action }

// Scope returns the fourth segment (RootSegment when omitted).
// Scope is descriptive metadata and does not participate in matching.
func (c PermissionCode) Scope() string { return c.scope }

// IsWildcard reports whether any segment is the wildcard.
func (c PermissionCode) IsWildcard() bool { return c.isWildcard }

// Matches reports whether two codes refer to the same capability.
// Without wildcards on either side this is strict value equality. With a
// wildcard on either side, module/resource/action are compared pairwise and
// each pair matches when either side is "*" or both are equal. Scope is not
// compared. Matching is symmetric: a.Matches(b) == b.Matches(a).
func (c PermissionCode) Matches(other PermissionCode) bool {
	if !c.isWildcard && !other.isWildcard {
		return c.value == other.value
	}

	return segmentMatches(c.module, other.module) &&
		segmentMatches(c.resource, other.resource) &&
		segmentMatches(c.action, other.action)
}

// Equals reports strict equality of the raw code strings.
func (c PermissionCode) Equals(other PermissionCode) bool {
	return c.value == other.value
}

// String implements fmt.Stringer.
func (c PermissionCode) String() string { return c.value }

func segmentMatches(a, b string) bool {
	return a == WildcardSegment || b == WildcardSegment || a == b
}
