package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// DocumentService manages document dossiers and their registers. Dossiers
// are shareable resources like projects: the creator owns them, everyone
// else needs a grant. Register writes need editor, structural changes need
// owner.
type DocumentService struct {
	documents repository.DocumentRepository
	gate      *AccessService
	logger    *slog.Logger
}

func NewDocumentService(documents repository.DocumentRepository, gate *AccessService, logger *slog.Logger) *DocumentService {
	return &DocumentService{documents: documents, gate: gate, logger: logger}
}

// Create opens a new dossier owned by the caller. All registers start
// empty.
func (s *DocumentService) Create(ctx context.Context, user *model.User, code, company, name string) (*model.DocumentFile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "document name is required")
	}

	doc := &model.DocumentFile{
		UserID:  user.ID,
		Code:    code,
		Company: company,
		Name:    name,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("service/document: creating document: %w", err)
	}

	s.logger.Info("document created",
		slog.Int64("userID", user.ID),
		slog.String("documentID", doc.ID.String()),
	)
	return doc, nil
}

// Get returns one dossier with all registers. Viewer or better.
func (s *DocumentService) Get(ctx context.Context, user *model.User, id uuid.UUID) (*model.DocumentFile, error) {
	if err := s.gate.RequireRole(ctx, user, model.ResourceDocument, id, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.documents.GetByID(ctx, id)
}

// List returns the dossiers the caller created.
func (s *DocumentService) List(ctx context.Context, user *model.User) ([]model.DocumentFile, error) {
	docs, err := s.documents.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/document: listing documents: %w", err)
	}
	return docs, nil
}

// Update rewrites a dossier's metadata. Editor or better. Register contents
// only change through UpdateRegister.
func (s *DocumentService) Update(ctx context.Context, user *model.User, id uuid.UUID, code, company, name string) (*model.DocumentFile, error) {
	if err := s.gate.RequireRole(ctx, user, model.ResourceDocument, id, model.RoleEditor); err != nil {
		return nil, err
	}

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if code != "" {
		doc.Code = code
	}
	if company != "" {
		doc.Company = company
	}
	if name = strings.TrimSpace(name); name != "" {
		doc.Name = name
	}

	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("service/document: updating document %s: %w", id, err)
	}
	return doc, nil
}

// Delete removes a dossier, its registers and its organization chart.
// Owner only.
func (s *DocumentService) Delete(ctx context.Context, user *model.User, id uuid.UUID) error {
	if err := s.gate.RequireRole(ctx, user, model.ResourceDocument, id, model.RoleOwner); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/document: deleting document %s: %w", id, err)
	}
	s.logger.Info("document deleted",
		slog.Int64("userID", user.ID),
		slog.String("documentID", id.String()),
	)
	return nil
}

// UpdateRegister replaces one named register wholesale. Editor or better.
// The payload must at least be valid JSON; its shape is the client's
// business.
func (s *DocumentService) UpdateRegister(ctx context.Context, user *model.User, id uuid.UUID, register string, data json.RawMessage) error {
	if err := s.gate.RequireRole(ctx, user, model.ResourceDocument, id, model.RoleEditor); err != nil {
		return err
	}
	if len(data) > 0 && !json.Valid(data) {
		return apperror.ValidationFailed("data", "register payload must be valid JSON")
	}
	if err := s.documents.UpdateRegister(ctx, id, register, data); err != nil {
		return err
	}
	s.logger.Info("register updated",
		slog.Int64("userID", user.ID),
		slog.String("documentID", id.String()),
		slog.String("register", register),
	)
	return nil
}

// OrganizationChart returns the chart attached to a dossier. Viewer or
// better.
func (s *DocumentService) OrganizationChart(ctx context.Context, user *model.User, fileID uuid.UUID) (*model.OrganizationChart, error) {
	if err := s.gate.RequireRole(ctx, user, model.ResourceDocument, fileID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.documents.GetOrganizationChart(ctx, fileID)
}

// SaveOrganizationChart creates or replaces the dossier's chart. Editor or
// better.
func (s *DocumentService) SaveOrganizationChart(ctx context.Context, user *model.User, fileID uuid.UUID, data json.RawMessage) (*model.OrganizationChart, error) {
	if err := s.gate.RequireRole(ctx, user, model.ResourceDocument, fileID, model.RoleEditor); err != nil {
		return nil, err
	}
	if len(data) > 0 && !json.Valid(data) {
		return nil, apperror.ValidationFailed("data", "chart payload must be valid JSON")
	}

	chart := &model.OrganizationChart{FileID: fileID, Data: data}
	if err := s.documents.SaveOrganizationChart(ctx, chart); err != nil {
		return nil, fmt.Errorf("service/document: saving organization chart %s: %w", fileID, err)
	}
	return chart, nil
}
