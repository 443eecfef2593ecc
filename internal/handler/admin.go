package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/service"
)

// AdminHandler exposes the account-management endpoints. Every route here
// sits behind the admin privilege check, applied per request — there is no
// separate admin session.
type AdminHandler struct {
	authSvc *service.AuthService
	gate    *service.AccessService
	logger  *slog.Logger
}

func NewAdminHandler(authSvc *service.AuthService, gate *service.AccessService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{authSvc: authSvc, gate: gate, logger: logger}
}

// admin resolves the caller and enforces the admin privilege in one step.
func (h *AdminHandler) admin(r *http.Request) (*model.User, error) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		return nil, err
	}
	if err := h.gate.RequireAdmin(user); err != nil {
		return nil, err
	}
	return user, nil
}

func pathUserID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("userID", "must be a positive integer")
	}
	return id, nil
}

// HandleListUsers returns every account.
//
// HTTP: GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := h.admin(r); err != nil {
		writeError(w, err)
		return
	}

	users, err := h.authSvc.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type privilegesRequest struct {
	Privileges model.Privilege `json:"privileges"`
}

// HandleSetPrivileges grants or removes the admin privilege.
//
// HTTP: PUT /api/admin/users/{userID}/privileges
func (h *AdminHandler) HandleSetPrivileges(w http.ResponseWriter, r *http.Request) {
	actor, err := h.admin(r)
	if err != nil {
		writeError(w, err)
		return
	}

	targetID, err := pathUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req privilegesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.authSvc.SetPrivileges(r.Context(), actor, targetID, req.Privileges); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "privileges updated"})
}

// HandleDeleteUser removes an account. Tokens for the account stop
// resolving the moment the row is gone.
//
// HTTP: DELETE /api/admin/users/{userID}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, err := h.admin(r)
	if err != nil {
		writeError(w, err)
		return
	}

	targetID, err := pathUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.authSvc.DeleteUser(r.Context(), actor, targetID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
