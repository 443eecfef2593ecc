package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/taskboard/internal/service"
)

// ProjectHandler exposes project CRUD. Role checks happen in the service
// layer; the handler only parses and replies.
type ProjectHandler struct {
	authSvc  *service.AuthService
	projects *service.ProjectService
	logger   *slog.Logger
}

func NewProjectHandler(authSvc *service.AuthService, projects *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{authSvc: authSvc, projects: projects, logger: logger}
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Visibility  string `json:"visibility"`
}

// HandleCreate creates a project owned by the caller.
//
// HTTP: POST /api/projects
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	proj, err := h.projects.Create(r.Context(), user, req.Name, req.Description, req.Visibility)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

// HandleList returns the caller's projects (created or granted).
//
// HTTP: GET /api/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}

	projects, err := h.projects.List(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleGet returns one project.
//
// HTTP: GET /api/projects/{projectID}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "projectID")
	if err != nil {
		writeError(w, err)
		return
	}

	proj, err := h.projects.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// HandleUpdate rewrites a project's mutable fields.
//
// HTTP: PUT /api/projects/{projectID}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "projectID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	proj, err := h.projects.Update(r.Context(), user, id, req.Name, req.Description, req.Status, req.Visibility)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// HandleDelete removes a project and everything under it.
//
// HTTP: DELETE /api/projects/{projectID}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "projectID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.projects.Delete(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
