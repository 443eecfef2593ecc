package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/service"
)

// maxRegisterBytes caps register and chart payloads. Registers are opaque
// blobs, so the size limit is the only server-side guard on them.
const maxRegisterBytes = 1 << 20 // 1 MiB

// DocumentHandler exposes document dossiers, their registers and the
// organization chart.
type DocumentHandler struct {
	authSvc   *service.AuthService
	documents *service.DocumentService
	logger    *slog.Logger
}

func NewDocumentHandler(authSvc *service.AuthService, documents *service.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{authSvc: authSvc, documents: documents, logger: logger}
}

type documentRequest struct {
	Code    string `json:"code"`
	Company string `json:"company"`
	Name    string `json:"name"`
}

// HandleCreate opens a new dossier owned by the caller.
//
// HTTP: POST /api/documents
func (h *DocumentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}

	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.documents.Create(r.Context(), user, req.Code, req.Company, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// HandleList returns the caller's dossiers.
//
// HTTP: GET /api/documents
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := h.documents.List(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// HandleGet returns one dossier with all registers.
//
// HTTP: GET /api/documents/{documentID}
func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "documentID")
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.documents.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleUpdate rewrites a dossier's metadata.
//
// HTTP: PUT /api/documents/{documentID}
func (h *DocumentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "documentID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.documents.Update(r.Context(), user, id, req.Code, req.Company, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleDelete removes a dossier with its registers and chart.
//
// HTTP: DELETE /api/documents/{documentID}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "documentID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.documents.Delete(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readRawBody reads a bounded raw JSON payload. Registers and charts are
// stored verbatim, so the body is not decoded into a struct.
func readRawBody(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRegisterBytes+1))
	if err != nil {
		return nil, apperror.ValidationFailed("body", "could not read request body")
	}
	if len(body) > maxRegisterBytes {
		return nil, apperror.ValidationFailed("body", "payload too large")
	}
	return body, nil
}

// HandleUpdateRegister replaces one named register wholesale.
//
// HTTP: PUT /api/documents/{documentID}/registers/{register}
func (h *DocumentHandler) HandleUpdateRegister(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "documentID")
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := readRawBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	register := chi.URLParam(r, "register")
	if err := h.documents.UpdateRegister(r.Context(), user, id, register, data); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "register updated"})
}

// HandleGetOrganizationChart returns the chart attached to a dossier.
//
// HTTP: GET /api/documents/{documentID}/organization-chart
func (h *DocumentHandler) HandleGetOrganizationChart(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "documentID")
	if err != nil {
		writeError(w, err)
		return
	}

	chart, err := h.documents.OrganizationChart(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// HandleSaveOrganizationChart creates or replaces the dossier's chart.
//
// HTTP: PUT /api/documents/{documentID}/organization-chart
func (h *DocumentHandler) HandleSaveOrganizationChart(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "documentID")
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := readRawBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	chart, err := h.documents.SaveOrganizationChart(r.Context(), user, id, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}
