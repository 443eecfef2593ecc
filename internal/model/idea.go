package model

import (
	"time"

	"github.com/google/uuid"
)

// Idea is a proposal attached to a project, ranked by votes.
//
// CreatedBy is nullable (*int64): deleting a user keeps their ideas but
// clears the authorship (ON DELETE SET NULL), so idea history survives
// account deletion.
//
// Votes is a denormalized counter kept in sync with the idea_votes table
// inside the same transaction that records each vote. The uniqueness of
// (idea_id, user_id) in idea_votes is what prevents double voting; the
// counter is a convenience for listing.
type Idea struct {
	ID               uuid.UUID `json:"id"`
	ProjectID        uuid.UUID `json:"projectId"`
	Number           int       `json:"number"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	Implementability string    `json:"implementability"`
	Impact           string    `json:"impact"`
	Votes            int       `json:"votes"`
	CreatedBy        *int64    `json:"createdBy,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// IdeaVote records one user's vote on one idea. Value is +1 or -1.
// At most one row per (idea, user) — enforced by a unique constraint.
type IdeaVote struct {
	ID        uuid.UUID `json:"id"`
	IdeaID    uuid.UUID `json:"ideaId"`
	UserID    int64     `json:"userId"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}
