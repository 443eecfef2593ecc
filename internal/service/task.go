package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// TaskService manages tasks. Tasks have no grants of their own — every
// check is made against the parent project's role: viewer to read, editor
// to create/update/assign, owner to delete.
type TaskService struct {
	tasks  repository.TaskRepository
	gate   *AccessService
	logger *slog.Logger
}

func NewTaskService(tasks repository.TaskRepository, gate *AccessService, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: tasks, gate: gate, logger: logger}
}

// Create adds a task to a project and assigns the next sequential number.
func (s *TaskService) Create(ctx context.Context, user *model.User, projectID uuid.UUID, title, description, taskType, priority string) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "task title is required")
	}

	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, projectID, model.RoleEditor); err != nil {
		return nil, err
	}

	task := &model.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Type:        taskType,
		Priority:    priority,
		Status:      model.TaskActive,
		CreatedBy:   user.ID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.Int64("userID", user.ID),
		slog.String("projectID", projectID.String()),
		slog.Int("number", task.Number),
	)
	return task, nil
}

// Get returns one task after checking viewer on its project.
func (s *TaskService) Get(ctx context.Context, user *model.User, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, task.ProjectID, model.RoleViewer); err != nil {
		return nil, err
	}
	return task, nil
}

// ListByProject returns a project's tasks in number order.
func (s *TaskService) ListByProject(ctx context.Context, user *model.User, projectID uuid.UUID) ([]model.Task, error) {
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, projectID, model.RoleViewer); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("service/task: listing tasks: %w", err)
	}
	return tasks, nil
}

// Update rewrites a task's mutable fields. Editor on the project.
func (s *TaskService) Update(ctx context.Context, user *model.User, id uuid.UUID, title, description, taskType, priority, status string) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, task.ProjectID, model.RoleEditor); err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title != "" {
		task.Title = title
	}
	if description != "" {
		task.Description = description
	}
	if taskType != "" {
		task.Type = taskType
	}
	if priority != "" {
		task.Priority = priority
	}
	if status != "" {
		task.Status = status
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: updating task %s: %w", id, err)
	}
	return task, nil
}

// Delete removes a task. Owner on the project.
func (s *TaskService) Delete(ctx context.Context, user *model.User, id uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, task.ProjectID, model.RoleOwner); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/task: deleting task %s: %w", id, err)
	}
	s.logger.Info("task deleted",
		slog.Int64("userID", user.ID),
		slog.String("taskID", id.String()),
	)
	return nil
}

// Assign adds a user to a task's assignee list. Editor on the project.
func (s *TaskService) Assign(ctx context.Context, user *model.User, taskID uuid.UUID, assigneeID int64) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, task.ProjectID, model.RoleEditor); err != nil {
		return err
	}
	if err := s.tasks.AddAssignee(ctx, taskID, assigneeID); err != nil {
		return fmt.Errorf("service/task: assigning user %d: %w", assigneeID, err)
	}
	return nil
}

// Unassign removes a user from a task's assignee list. Editor on the project.
func (s *TaskService) Unassign(ctx context.Context, user *model.User, taskID uuid.UUID, assigneeID int64) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, task.ProjectID, model.RoleEditor); err != nil {
		return err
	}
	if err := s.tasks.RemoveAssignee(ctx, taskID, assigneeID); err != nil {
		return fmt.Errorf("service/task: unassigning user %d: %w", assigneeID, err)
	}
	return nil
}
