package model

import "github.com/google/uuid"

// Role is a fine-grained permission scoped to one specific resource instance.
//
// ROLE ORDERING:
// owner > editor > viewer. A check for "viewer" is satisfied by any of the
// three; a check for "owner" only by owner. Meets() encodes this ordering so
// callers never compare role strings directly.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// roleRank maps each role to its position in the ordering.
// Unknown roles rank below viewer, so a corrupted row can never satisfy a check.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// Meets reports whether r grants at least the permissions of min.
func (r Role) Meets(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return roleRank[r] > 0
}

// Resource types that can be shared. Tasks and ideas are reached through
// their parent project's grants, but the type set is kept open — the
// resource_access table stores the type as text, so adding a new shareable
// type is a data change, not a schema change.
const (
	ResourceProject  = "project"
	ResourceDocument = "document"
)

// ResourceAccess grants a role to one user on one resource.
//
// There is at most one grant per (user, resource type, resource id) triple —
// the database enforces this with a unique index. A resource's creator holds
// an implicit owner grant that is computed at check time and never stored,
// so the table is never a second source of truth for ownership.
type ResourceAccess struct {
	ID           uuid.UUID `json:"id"`
	UserID       int64     `json:"userId"`
	ResourceType string    `json:"resourceType"`
	ResourceID   uuid.UUID `json:"resourceId"`
	Role         Role      `json:"role"`
}
