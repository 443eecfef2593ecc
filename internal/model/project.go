package model

import (
	"time"

	"github.com/google/uuid"
)

// Project statuses and visibilities. Stored as plain text columns so the
// set can grow without a migration.
const (
	ProjectActive   = "active"
	ProjectArchived = "archived"

	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Project is the top-level container for tasks and ideas.
//
// CreatedBy is the project's creator and implicit owner. Everyone else
// reaches the project through an explicit ResourceAccess grant.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Visibility  string    `json:"visibility"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}
