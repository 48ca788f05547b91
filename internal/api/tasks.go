package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

type createTaskRequest struct {
	Task         *string `json:"task" validate:"required,min=1,max=500"`
	Done         *bool   `json:"done" validate:"required"`
	UserID       *string `json:"userId" validate:"required,min=1"`
	AssignedDate *string `json:"assignedDate" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type patchTaskRequest struct {
	Task         *string `json:"task" validate:"omitempty,min=1,max=500"`
	Done         *bool   `json:"done"`
	UserID       *string `json:"userId" validate:"omitempty,min=1"`
	AssignedDate *string `json:"assignedDate" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (req *patchTaskRequest) updates() map[string]any {
	updates := map[string]any{}
	if req.Task != nil {
		updates["task"] = *req.Task
	}
	if req.Done != nil {
		updates["done"] = *req.Done
	}
	if req.UserID != nil {
		updates["user_id"] = *req.UserID
	}
	if req.AssignedDate != nil {
		updates["assigned_date"] = mustParseTime(*req.AssignedDate)
	}
	return updates
}

// mustParseTime parses a value that already passed the datetime validator.
func mustParseTime(value string) time.Time {
	t, _ := time.Parse(time.RFC3339, value)
	return t.UTC()
}

func taskID(r *http.Request) (int64, error) {
	return validation.IntParam("id", chi.URLParam(r, "id"))
}

// ListTasks returns the tasks owned by the caller's User record.
func (h *APIHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	user, err := h.store.GetUserByAuthID(r.Context(), identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, []store.Task{})
		return
	}
	if err != nil {
		h.handleStoreError(w, r, err, "list tasks")
		return
	}

	tasks, err := h.store.ListTasksByUser(r.Context(), user.ID)
	if err != nil {
		h.handleStoreError(w, r, err, "list tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *APIHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	var req createTaskRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	if !h.ownerExists(w, r, *req.UserID) {
		return
	}

	task := &store.Task{Task: *req.Task, Done: *req.Done, UserID: *req.UserID, AssignedDate: time.Now().UTC()}
	if req.AssignedDate != nil {
		task.AssignedDate = mustParseTime(*req.AssignedDate)
	}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		h.handleStoreError(w, r, err, "create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *APIHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err, "get task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *APIHandler) PatchTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	var req patchTaskRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	updates := req.updates()
	if len(updates) == 0 {
		writeValidation(w, validation.NoUpdates())
		return
	}
	if _, err := h.store.GetTask(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err, "update task")
		return
	}
	if req.UserID != nil && !h.ownerExists(w, r, *req.UserID) {
		return
	}

	task, err := h.store.UpdateTask(r.Context(), id, updates)
	if err != nil {
		h.handleStoreError(w, r, err, "update task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *APIHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	id, err := taskID(r)
	if err != nil {
		h.handleRequestError(w, r, err)
		return
	}
	if err := h.store.DeleteTask(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
