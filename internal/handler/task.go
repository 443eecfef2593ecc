package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/taskboard/internal/service"
)

// TaskHandler exposes task CRUD and assignee management. All role checks
// run against the parent project in the service layer.
type TaskHandler struct {
	authSvc *service.AuthService
	tasks   *service.TaskService
	logger  *slog.Logger
}

func NewTaskHandler(authSvc *service.AuthService, tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{authSvc: authSvc, tasks: tasks, logger: logger}
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

// HandleCreate adds a task to a project.
//
// HTTP: POST /api/projects/{projectID}/tasks
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), user, projectID, req.Title, req.Description, req.Type, req.Priority)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// HandleListByProject returns a project's tasks in number order.
//
// HTTP: GET /api/projects/{projectID}/tasks
func (h *TaskHandler) HandleListByProject(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.tasks.ListByProject(r.Context(), user, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleGet returns one task with its assignees.
//
// HTTP: GET /api/tasks/{taskID}
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "taskID")
	if err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleUpdate rewrites a task's mutable fields.
//
// HTTP: PUT /api/tasks/{taskID}
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "taskID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), user, id, req.Title, req.Description, req.Type, req.Priority, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleDelete removes a task.
//
// HTTP: DELETE /api/tasks/{taskID}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "taskID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.tasks.Delete(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assigneeRequest struct {
	UserID int64 `json:"userId"`
}

// HandleAssign adds a user to a task's assignee list.
//
// HTTP: POST /api/tasks/{taskID}/assignees
func (h *TaskHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "taskID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req assigneeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.tasks.Assign(r.Context(), user, id, req.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "assignee added"})
}

// HandleUnassign removes a user from a task's assignee list.
//
// HTTP: DELETE /api/tasks/{taskID}/assignees/{userID}
func (h *TaskHandler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.authSvc)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathUUID(r, "taskID")
	if err != nil {
		writeError(w, err)
		return
	}
	assigneeID, err := pathUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.tasks.Unassign(r.Context(), user, id, assigneeID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
