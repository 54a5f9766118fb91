package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// CreateTaskRequest is the body of POST /projects/{project_id}/tasks.
type CreateTaskRequest struct {
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	AssigneeID   string   `json:"assignee_id"`
	StartDate    string   `json:"start_date"`
	DueDate      string   `json:"due_date"`
	Dependencies []string `json:"dependencies"`
	Subtasks     []string `json:"subtasks"`
}

// SetDependenciesRequest is the body of PUT /tasks/{task_id}/dependencies.
type SetDependenciesRequest struct {
	Dependencies []string `json:"dependencies"`
	Etag         string   `json:"etag"`
}

// SetSubtaskRequest is the body of PATCH /tasks/{task_id}/subtasks/{subtask_id}.
// Completed is a pointer so an omitted field is rejected rather than read as false.
type SetSubtaskRequest struct {
	Completed *bool  `json:"is_completed"`
	Etag      string `json:"etag"`
}

// RequestStatusRequest is the body of POST /tasks/{task_id}/status.
type RequestStatusRequest struct {
	Status string `json:"status"`
	Etag   string `json:"etag"`
}

// ApprovalRequest is the body of POST .../approvals. Party defaults to the caller's role.
type ApprovalRequest struct {
	Stage  string `json:"stage"`
	Party  string `json:"party"`
	Action string `json:"action"`
	Etag   string `json:"etag"`
}

func (req ApprovalRequest) input(r *http.Request) project.ApprovalInput {
	return project.ApprovalInput{
		Stage:  req.Stage,
		Party:  req.Party,
		Action: req.Action,
		Etag:   etagFrom(r, req.Etag),
	}
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task TaskDTO `json:"task"`
}

// ListTasksResponse wraps the tasks of a project.
type ListTasksResponse struct {
	Tasks []TaskDTO `json:"tasks"`
}

// BlockingResponse reports whether a task is blocked and by which dependencies.
type BlockingResponse struct {
	Blocked  bool      `json:"blocked"`
	Blocking []TaskDTO `json:"blocking"`
}

// ListEventsResponse wraps an approval audit trail.
type ListEventsResponse struct {
	Events []ApprovalEventDTO `json:"events"`
}

func writeTask(w http.ResponseWriter, t *domain.Task, status int) {
	response.WithEtag(w, t.Etag())
	if status == http.StatusCreated {
		response.Created(w, TaskResponse{Task: MapTaskToDTO(t)})
		return
	}
	response.OK(w, TaskResponse{Task: MapTaskToDTO(t)})
}

// CreateTask handles POST /projects/{project_id}/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	projectID := chi.URLParam(r, "project_id")
	t, err := h.service.CreateTask(r.Context(), a, project.CreateTaskInput{
		ProjectID:    projectID,
		Title:        req.Title,
		Category:     req.Category,
		AssigneeID:   req.AssigneeID,
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
		Dependencies: req.Dependencies,
		Subtasks:     req.Subtasks,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create task via HTTP",
			"project_id", projectID,
			"title", req.Title,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "task created via HTTP", "task_id", t.ID, "project_id", projectID)
	writeTask(w, t, http.StatusCreated)
}

// ListTasks handles GET /projects/{project_id}/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, ListTasksResponse{Tasks: mapTasks(tasks)})
}

// GetTask handles GET /tasks/{task_id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTask(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	writeTask(w, t, http.StatusOK)
}

// BlockingTasks handles GET /tasks/{task_id}/blocking.
func (h *Handler) BlockingTasks(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.BlockingTasks(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, BlockingResponse{Blocked: res.Blocked, Blocking: mapTasks(res.Blocking)})
}

// SetTaskDependencies handles PUT /tasks/{task_id}/dependencies.
func (h *Handler) SetTaskDependencies(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req SetDependenciesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.SetTaskDependencies(r.Context(), a, chi.URLParam(r, "task_id"), req.Dependencies, etagFrom(r, req.Etag))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	writeTask(w, t, http.StatusOK)
}

// SetSubtaskCompletion handles PATCH /tasks/{task_id}/subtasks/{subtask_id}.
func (h *Handler) SetSubtaskCompletion(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req SetSubtaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Completed == nil {
		response.ValidationError(w, "is_completed", "is required")
		return
	}

	t, err := h.service.SetSubtaskCompletion(r.Context(), a,
		chi.URLParam(r, "task_id"), chi.URLParam(r, "subtask_id"), *req.Completed, etagFrom(r, req.Etag))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	writeTask(w, t, http.StatusOK)
}

// RequestTaskStatus handles POST /tasks/{task_id}/status.
func (h *Handler) RequestTaskStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req RequestStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	taskID := chi.URLParam(r, "task_id")
	t, err := h.service.RequestTaskStatus(r.Context(), a, taskID, req.Status, etagFrom(r, req.Etag))
	if err != nil {
		slog.WarnContext(r.Context(), "task status request rejected",
			"task_id", taskID,
			"status", req.Status,
			"actor_id", a.ID,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	writeTask(w, t, http.StatusOK)
}

// ApplyTaskApproval handles POST /tasks/{task_id}/approvals.
func (h *Handler) ApplyTaskApproval(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req ApprovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.ApplyTaskApproval(r.Context(), a, chi.URLParam(r, "task_id"), req.input(r))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	writeTask(w, t, http.StatusOK)
}

// listEvents serves the approval audit trail of a task or transaction.
func (h *Handler) listEvents(kind domain.EntityKind, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := h.service.ListApprovalEvents(r.Context(), kind, chi.URLParam(r, param))
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}

		out := make([]ApprovalEventDTO, len(events))
		for i, e := range events {
			out[i] = MapApprovalEventToDTO(e)
		}
		response.OK(w, ListEventsResponse{Events: out})
	}
}
