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

// ProjectService manages projects. Every operation except Create runs
// through the access gate: view needs viewer, update needs editor, delete
// needs owner.
type ProjectService struct {
	projects repository.ProjectRepository
	gate     *AccessService
	logger   *slog.Logger
}

func NewProjectService(projects repository.ProjectRepository, gate *AccessService, logger *slog.Logger) *ProjectService {
	return &ProjectService{projects: projects, gate: gate, logger: logger}
}

// Create makes the caller the project's creator, and thus its implicit
// owner. No grant row is written.
func (s *ProjectService) Create(ctx context.Context, user *model.User, name, description, visibility string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "project name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name", "project name is too long")
	}
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}
	if visibility != model.VisibilityPrivate && visibility != model.VisibilityPublic {
		return nil, apperror.ValidationFailed("visibility", "visibility must be \"private\" or \"public\"")
	}

	proj := &model.Project{
		Name:        name,
		Description: description,
		Status:      model.ProjectActive,
		Visibility:  visibility,
		CreatedBy:   user.ID,
	}
	if err := s.projects.Create(ctx, proj); err != nil {
		return nil, fmt.Errorf("service/project: creating project: %w", err)
	}

	s.logger.Info("project created",
		slog.Int64("userID", user.ID),
		slog.String("projectID", proj.ID.String()),
	)
	return proj, nil
}

// Get returns one project. Public projects are readable by any
// authenticated user; private ones require at least viewer. A project that
// does not exist is indistinguishable from one the caller may not see.
func (s *ProjectService) Get(ctx context.Context, user *model.User, id uuid.UUID) (*model.Project, error) {
	proj, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, hideExistence(err)
	}
	if proj.Visibility != model.VisibilityPublic {
		if err := s.gate.RequireRole(ctx, user, model.ResourceProject, id, model.RoleViewer); err != nil {
			return nil, err
		}
	}
	return proj, nil
}

// List returns the projects the user created or was granted access to.
func (s *ProjectService) List(ctx context.Context, user *model.User) ([]model.Project, error) {
	projects, err := s.projects.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing projects: %w", err)
	}
	return projects, nil
}

// Update rewrites a project's mutable fields. Editor or better.
func (s *ProjectService) Update(ctx context.Context, user *model.User, id uuid.UUID, name, description, status, visibility string) (*model.Project, error) {
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, id, model.RoleEditor); err != nil {
		return nil, err
	}

	proj, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		if len(name) > MaxNameLength {
			return nil, apperror.ValidationFailed("name", "project name is too long")
		}
		proj.Name = name
	}
	if description != "" {
		proj.Description = description
	}
	if status != "" {
		if status != model.ProjectActive && status != model.ProjectArchived {
			return nil, apperror.ValidationFailed("status", "status must be \"active\" or \"archived\"")
		}
		proj.Status = status
	}
	if visibility != "" {
		if visibility != model.VisibilityPrivate && visibility != model.VisibilityPublic {
			return nil, apperror.ValidationFailed("visibility", "visibility must be \"private\" or \"public\"")
		}
		proj.Visibility = visibility
	}

	if err := s.projects.Update(ctx, proj); err != nil {
		return nil, fmt.Errorf("service/project: updating project %s: %w", id, err)
	}
	return proj, nil
}

// Delete removes a project and everything under it. Owner only.
func (s *ProjectService) Delete(ctx context.Context, user *model.User, id uuid.UUID) error {
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, id, model.RoleOwner); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/project: deleting project %s: %w", id, err)
	}
	s.logger.Info("project deleted",
		slog.Int64("userID", user.ID),
		slog.String("projectID", id.String()),
	)
	return nil
}
