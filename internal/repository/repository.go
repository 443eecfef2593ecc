// Package repository defines the persistence interfaces consumed by the
// service layer.
//
// WHY INTERFACES HERE?
// Services program against these interfaces, never against *sqlite.DB.
// That keeps business logic storage-agnostic (swap SQLite for Postgres by
// changing the composition root) and lets tests substitute in-memory fakes.
//
// The authorization model deliberately avoids ORM-style object graphs:
// access checks call explicit lookup functions returning plain data
// (Find, GetByID) instead of walking relationship attributes.
package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/model"
)

// UserRepository stores accounts.
// Create returns apperror.ErrConflict when the email is already registered.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdatePrivileges(ctx context.Context, id int64, p model.Privilege) error
	Delete(ctx context.Context, id int64) error
}

// ProjectRepository stores projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// ListForUser returns projects the user created plus projects shared
	// with them through a grant.
	ListForUser(ctx context.Context, userID int64) ([]model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	// Delete cascades to tasks, ideas, votes, grants and invitations.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskRepository stores tasks. Create assigns the project-scoped sequential
// number; (project_id, number) is unique per project.
type TaskRepository interface {
	Create(ctx context.Context, t *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddAssignee(ctx context.Context, taskID uuid.UUID, userID int64) error
	RemoveAssignee(ctx context.Context, taskID uuid.UUID, userID int64) error
}

// IdeaRepository stores ideas and their votes. Vote returns
// apperror.ErrConflict when the user already voted on the idea; both Vote
// and Unvote keep the idea's denormalized counter in sync transactionally.
type IdeaRepository interface {
	Create(ctx context.Context, i *model.Idea) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Idea, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Idea, error)
	Update(ctx context.Context, i *model.Idea) error
	Delete(ctx context.Context, id uuid.UUID) error
	Vote(ctx context.Context, ideaID uuid.UUID, userID int64, value int) error
	Unvote(ctx context.Context, ideaID uuid.UUID, userID int64) error
}

// AccessRepository stores explicit role grants. At most one grant exists per
// (user, resource type, resource id) — Grant returns apperror.ErrConflict
// when a concurrent writer got there first. Find returns apperror.ErrNotFound
// when no grant exists; it never falls back to creator ownership (that is
// derived in the service layer).
type AccessRepository interface {
	Grant(ctx context.Context, g *model.ResourceAccess) error
	Find(ctx context.Context, userID int64, resourceType string, resourceID uuid.UUID) (*model.ResourceAccess, error)
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]model.ResourceAccess, error)
	Revoke(ctx context.Context, userID int64, resourceType string, resourceID uuid.UUID) error
}

// InvitationRepository stores invitations.
//
// Transition flips an invitation from one status to another and reports
// apperror.ErrInvalidState when the row was not in the expected source
// status — the guarded UPDATE is what serializes concurrent accept/decline
// attempts on the same invitation.
type InvitationRepository interface {
	Create(ctx context.Context, inv *model.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error)
	ListSent(ctx context.Context, senderID int64) ([]model.Invitation, error)
	ListReceived(ctx context.Context, userID int64, email string) ([]model.Invitation, error)
	Transition(ctx context.Context, id uuid.UUID, from, to model.InvitationStatus) error
	// AttachReceiver binds pending email-addressed invitations to a newly
	// registered account.
	AttachReceiver(ctx context.Context, email string, userID int64) error
}

// DocumentRepository stores document-management dossiers and their
// organization charts. Register payloads are opaque JSON.
type DocumentRepository interface {
	Create(ctx context.Context, d *model.DocumentFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.DocumentFile, error)
	ListForUser(ctx context.Context, userID int64) ([]model.DocumentFile, error)
	Update(ctx context.Context, d *model.DocumentFile) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateRegister(ctx context.Context, id uuid.UUID, name string, data json.RawMessage) error
	GetOrganizationChart(ctx context.Context, fileID uuid.UUID) (*model.OrganizationChart, error)
	SaveOrganizationChart(ctx context.Context, chart *model.OrganizationChart) error
}
