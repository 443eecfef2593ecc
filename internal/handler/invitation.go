package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/service"
)

// InvitationHandler exposes sharing: sending and answering invitations, and
// listing or revoking the grants they produce.
type InvitationHandler struct {
	authSvc *service.AuthService
	gate    *service.AccessService
	logger  *slog.Logger
}

func NewInvitationHandler(authSvc *service.AuthService, gate *service.AccessService, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{authSvc: authSvc, gate: gate, logger: logger}
}

type inviteRequest struct {
	ReceiverEmail string     `json:"receiverEmail"`
	ResourceType  string     `json:"resourceType"`
	ResourceID    string     `json:"resourceId"`
	Role          model.Role `json:"role"`
}

// HandleInvite sends an invitation. The response is the same whether or not
// the receiver email belongs to an account.
//
// HTTP: POST /api/invitations
func (h *InvitationHandler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}

	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resourceID, err := parseUUIDField(req.ResourceID, "resourceId")
	if err != nil {
		writeError(w, err)
		return
	}

	inv, err := h.gate.Invite(r.Context(), user, req.ReceiverEmail, req.ResourceType, resourceID, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

type invitationListResponse struct {
	Sent     []model.Invitation `json:"sent"`
	Received []model.Invitation `json:"received"`
}

// HandleList returns the caller's sent and received invitations, with
// expiry applied to the reported statuses.
//
// HTTP: GET /api/invitations
func (h *InvitationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}

	sent, received, err := h.gate.Invitations(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitationListResponse{Sent: sent, Received: received})
}

// HandleAccept accepts a pending invitation and returns the new grant.
//
// HTTP: POST /api/invitations/{invitationID}/accept
func (h *InvitationHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "invitationID")
	if err != nil {
		writeError(w, err)
		return
	}

	grant, err := h.gate.Accept(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

// HandleDecline declines a pending invitation.
//
// HTTP: POST /api/invitations/{invitationID}/decline
func (h *InvitationHandler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "invitationID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gate.Decline(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "invitation declined"})
}

// HandleListGrants lists the explicit grants on a resource.
//
// HTTP: GET /api/access/{resourceType}/{resourceID}
func (h *InvitationHandler) HandleListGrants(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	resourceID, err := pathUUID(r, "resourceID")
	if err != nil {
		writeError(w, err)
		return
	}

	grants, err := h.gate.Grants(r.Context(), user, pathResourceType(r), resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// HandleRevoke removes a user's grant on a resource.
//
// HTTP: DELETE /api/access/{resourceType}/{resourceID}/users/{userID}
func (h *InvitationHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	resourceID, err := pathUUID(r, "resourceID")
	if err != nil {
		writeError(w, err)
		return
	}
	targetID, err := pathUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.gate.Revoke(r.Context(), user, targetID, pathResourceType(r), resourceID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
