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

// IdeaService manages the idea backlog of a project. Like tasks, ideas are
// gated through the parent project's role. Voting only needs viewer — being
// able to see a backlog means being able to weigh in on it.
type IdeaService struct {
	ideas  repository.IdeaRepository
	gate   *AccessService
	logger *slog.Logger
}

func NewIdeaService(ideas repository.IdeaRepository, gate *AccessService, logger *slog.Logger) *IdeaService {
	return &IdeaService{ideas: ideas, gate: gate, logger: logger}
}

// Create adds an idea to a project's backlog.
func (s *IdeaService) Create(ctx context.Context, user *model.User, projectID uuid.UUID, title, description, category string) (*model.Idea, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "idea title is required")
	}

	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, projectID, model.RoleEditor); err != nil {
		return nil, err
	}

	idea := &model.Idea{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Category:    category,
		CreatedBy:   &user.ID,
	}
	if err := s.ideas.Create(ctx, idea); err != nil {
		return nil, fmt.Errorf("service/idea: creating idea: %w", err)
	}

	s.logger.Info("idea created",
		slog.Int64("userID", user.ID),
		slog.String("projectID", projectID.String()),
		slog.Int("number", idea.Number),
	)
	return idea, nil
}

// Get returns one idea after checking viewer on its project.
func (s *IdeaService) Get(ctx context.Context, user *model.User, id uuid.UUID) (*model.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return nil, hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, idea.ProjectID, model.RoleViewer); err != nil {
		return nil, err
	}
	return idea, nil
}

// ListByProject returns a project's ideas, most voted first.
func (s *IdeaService) ListByProject(ctx context.Context, user *model.User, projectID uuid.UUID) ([]model.Idea, error) {
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, projectID, model.RoleViewer); err != nil {
		return nil, err
	}
	ideas, err := s.ideas.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("service/idea: listing ideas: %w", err)
	}
	return ideas, nil
}

// Update rewrites an idea's mutable fields. Editor on the project.
func (s *IdeaService) Update(ctx context.Context, user *model.User, id uuid.UUID, title, description, category, status, priority, implementability, impact string) (*model.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return nil, hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, idea.ProjectID, model.RoleEditor); err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title != "" {
		idea.Title = title
	}
	if description != "" {
		idea.Description = description
	}
	if category != "" {
		idea.Category = category
	}
	if status != "" {
		idea.Status = status
	}
	if priority != "" {
		idea.Priority = priority
	}
	if implementability != "" {
		idea.Implementability = implementability
	}
	if impact != "" {
		idea.Impact = impact
	}

	if err := s.ideas.Update(ctx, idea); err != nil {
		return nil, fmt.Errorf("service/idea: updating idea %s: %w", id, err)
	}
	return idea, nil
}

// Delete removes an idea and its votes. Owner on the project.
func (s *IdeaService) Delete(ctx context.Context, user *model.User, id uuid.UUID) error {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, idea.ProjectID, model.RoleOwner); err != nil {
		return err
	}
	if err := s.ideas.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/idea: deleting idea %s: %w", id, err)
	}
	return nil
}

// Vote records an up- or down-vote (+1 or -1) by the caller. One vote per
// user per idea; a second vote is a conflict, not an overwrite — callers
// unvote first to change their mind.
func (s *IdeaService) Vote(ctx context.Context, user *model.User, ideaID uuid.UUID, value int) (*model.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, ideaID)
	if err != nil {
		return nil, hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, idea.ProjectID, model.RoleViewer); err != nil {
		return nil, err
	}

	if err := s.ideas.Vote(ctx, ideaID, user.ID, value); err != nil {
		return nil, err
	}
	return s.ideas.GetByID(ctx, ideaID)
}

// Unvote withdraws the caller's vote, reversing its effect on the counter.
func (s *IdeaService) Unvote(ctx context.Context, user *model.User, ideaID uuid.UUID) (*model.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, ideaID)
	if err != nil {
		return nil, hideExistence(err)
	}
	if err := s.gate.RequireRole(ctx, user, model.ResourceProject, idea.ProjectID, model.RoleViewer); err != nil {
		return nil, err
	}

	if err := s.ideas.Unvote(ctx, ideaID, user.ID); err != nil {
		return nil, err
	}
	return s.ideas.GetByID(ctx, ideaID)
}
