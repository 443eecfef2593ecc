package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/taskboard/internal/service"
)

// IdeaHandler exposes the idea backlog and voting endpoints.
type IdeaHandler struct {
	authSvc *service.AuthService
	ideas   *service.IdeaService
	logger  *slog.Logger
}

func NewIdeaHandler(authSvc *service.AuthService, ideas *service.IdeaService, logger *slog.Logger) *IdeaHandler {
	return &IdeaHandler{authSvc: authSvc, ideas: ideas, logger: logger}
}

type ideaRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Status           string `json:"status"`
	Priority         string `json:"priority"`
	Implementability string `json:"implementability"`
	Impact           string `json:"impact"`
}

// HandleCreate adds an idea to a project's backlog.
//
// HTTP: POST /api/projects/{projectID}/ideas
func (h *IdeaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	projectID, err := pathUUID(r, "projectID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req ideaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	idea, err := h.ideas.Create(r.Context(), user, projectID, req.Title, req.Description, req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

// HandleListByProject returns a project's ideas, most voted first.
//
// HTTP: GET /api/projects/{projectID}/ideas
func (h *IdeaHandler) HandleListByProject(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	projectID, err := pathUUID(r, "projectID")
	if err != nil {
		writeError(w, err)
		return
	}

	ideas, err := h.ideas.ListByProject(r.Context(), user, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

// HandleGet returns one idea.
//
// HTTP: GET /api/ideas/{ideaID}
func (h *IdeaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "ideaID")
	if err != nil {
		writeError(w, err)
		return
	}

	idea, err := h.ideas.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// HandleUpdate rewrites an idea's mutable fields.
//
// HTTP: PUT /api/ideas/{ideaID}
func (h *IdeaHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "ideaID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req ideaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	idea, err := h.ideas.Update(r.Context(), user, id,
		req.Title, req.Description, req.Category, req.Status,
		req.Priority, req.Implementability, req.Impact)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// HandleDelete removes an idea and its votes.
//
// HTTP: DELETE /api/ideas/{ideaID}
func (h *IdeaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "ideaID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.ideas.Delete(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type voteRequest struct {
	Value int `json:"value"` // +1 or -1
}

// HandleVote records the caller's vote on an idea and returns the idea with
// its updated counter.
//
// HTTP: POST /api/ideas/{ideaID}/vote
func (h *IdeaHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "ideaID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	idea, err := h.ideas.Vote(r.Context(), user, id, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// HandleUnvote withdraws the caller's vote.
//
// HTTP: DELETE /api/ideas/{ideaID}/vote
func (h *IdeaHandler) HandleUnvote(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "ideaID")
	if err != nil {
		writeError(w, err)
		return
	}

	idea, err := h.ideas.Unvote(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}
