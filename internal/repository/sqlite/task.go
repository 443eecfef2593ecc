package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

var _ repository.TaskRepository = (*TaskDB)(nil)

// TaskDB implements repository.TaskRepository.
type TaskDB struct {
	db *DB
}

// maxNumberRetries bounds how often Create re-tries the sequential-number
// insert after losing a race for the next number.
const maxNumberRetries = 3

// Create inserts a task and assigns its project-scoped sequential number.
//
// NUMBER ASSIGNMENT:
// The INSERT computes MAX(number)+1 over the project's tasks in a subselect,
// so the read and the write are one statement. Two concurrent creates can
// still compute the same number; the UNIQUE (project_id, number) constraint
// rejects the loser and we retry with a freshly computed number. Three
// losses in a row means pathological contention — give up and report it.
func (t *TaskDB) Create(ctx context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = model.TaskActive
	}
	task.CreatedAt = time.Now().UTC()

	var lastErr error
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		_, err := t.db.conn.ExecContext(ctx,
			`INSERT INTO tasks (id, project_id, number, type, priority, title, description, status, created_by, created_at)
			 SELECT ?, ?, COALESCE(MAX(number), 0) + 1, ?, ?, ?, ?, ?, ?, ?
			 FROM tasks WHERE project_id = ?`,
			task.ID.String(),
			task.ProjectID.String(),
			task.Type,
			task.Priority,
			task.Title,
			task.Description,
			task.Status,
			task.CreatedBy,
			task.CreatedAt,
			task.ProjectID.String(),
		)
		if err == nil {
			// Read the assigned number back for the caller.
			return t.db.conn.QueryRowContext(ctx,
				`SELECT number FROM tasks WHERE id = ?`, task.ID.String(),
			).Scan(&task.Number)
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("sqlite: inserting task: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("sqlite: assigning task number after %d attempts: %w", maxNumberRetries, lastErr)
}

const taskColumns = `id, project_id, number, type, priority, title, description, status, created_by, created_at`

// GetByID retrieves a task with its assignees.
func (t *TaskDB) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := t.db.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String(),
	).Scan(
		&task.ID,
		&task.ProjectID,
		&task.Number,
		&task.Type,
		&task.Priority,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.CreatedBy,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("task", id.String())
		}
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}

	assignees, err := t.assignees(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Assignees = assignees
	return &task, nil
}

func (t *TaskDB) assignees(ctx context.Context, taskID uuid.UUID) ([]int64, error) {
	rows, err := t.db.conn.QueryContext(ctx,
		`SELECT user_id FROM task_assignees WHERE task_id = ? ORDER BY user_id`, taskID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning assignee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByProject returns a project's tasks in number order. Assignees are
// loaded in one extra query and distributed in memory.
func (t *TaskDB) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Task, error) {
	rows, err := t.db.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY number`, projectID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(
			&task.ID,
			&task.ProjectID,
			&task.Number,
			&task.Type,
			&task.Priority,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.CreatedBy,
			&task.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		byID[task.ID] = len(tasks)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}

	arows, err := t.db.conn.QueryContext(ctx,
		`SELECT ta.task_id, ta.user_id FROM task_assignees ta
		 JOIN tasks tk ON tk.id = ta.task_id
		 WHERE tk.project_id = ?
		 ORDER BY ta.user_id`, projectID.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing project assignees: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var taskID uuid.UUID
		var userID int64
		if err := arows.Scan(&taskID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning assignee row: %w", err)
		}
		if idx, ok := byID[taskID]; ok {
			tasks[idx].Assignees = append(tasks[idx].Assignees, userID)
		}
	}
	return tasks, arows.Err()
}

// Update rewrites the mutable task fields. Number and project are immutable.
func (t *TaskDB) Update(ctx context.Context, task *model.Task) error {
	res, err := t.db.conn.ExecContext(ctx,
		`UPDATE tasks SET type = ?, priority = ?, title = ?, description = ?, status = ? WHERE id = ?`,
		task.Type, task.Priority, task.Title, task.Description, task.Status, task.ID.String())
	if err != nil {
		return fmt.Errorf("sqlite: updating task %s: %w", task.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("task", task.ID.String())
	}
	return nil
}

// Delete removes a task; assignee rows cascade.
func (t *TaskDB) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := t.db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("task", id.String())
	}
	return nil
}

// AddAssignee assigns a user to a task. Already assigned is a conflict.
func (t *TaskDB) AddAssignee(ctx context.Context, taskID uuid.UUID, userID int64) error {
	_, err := t.db.conn.ExecContext(ctx,
		`INSERT INTO task_assignees (task_id, user_id) VALUES (?, ?)`,
		taskID.String(), userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("assignee", taskID.String())
		}
		return fmt.Errorf("sqlite: adding assignee: %w", err)
	}
	return nil
}

// RemoveAssignee removes a user from a task.
func (t *TaskDB) RemoveAssignee(ctx context.Context, taskID uuid.UUID, userID int64) error {
	res, err := t.db.conn.ExecContext(ctx,
		`DELETE FROM task_assignees WHERE task_id = ? AND user_id = ?`,
		taskID.String(), userID)
	if err != nil {
		return fmt.Errorf("sqlite: removing assignee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("assignee", taskID.String())
	}
	return nil
}
