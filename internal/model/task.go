package model

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work inside a project.
//
// PROJECT-SCOPED NUMBERS:
// Number is sequential within the task's project (1, 2, 3, …) and unique
// there — like issue numbers on a code forge. The UUID is the real primary
// key; the number exists for humans ("task #12 of project X"). The
// (project_id, number) pair carries a unique constraint in the database.
type Task struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"projectId"`
	Number      int       `json:"number"`
	Type        string    `json:"type"`
	Priority    string    `json:"priority"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`

	// Assignees holds the user IDs currently assigned to this task.
	// Populated from the task_assignees join table on reads.
	Assignees []int64 `json:"assignees,omitempty"`
}

// Task statuses mirror the original board columns.
const (
	TaskActive = "active"
	TaskDone   = "done"
)
