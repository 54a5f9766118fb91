// Package handler adapts HTTP requests to the project service.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/domain"
	mw "github.com/rezkam/atelier/internal/infrastructure/http/middleware"
	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// ProjectService is the application surface the API exposes.
// *project.Service satisfies it.
type ProjectService interface {
	CreateProject(ctx context.Context, actor domain.Actor, in project.CreateProjectInput) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	GetBudgetSummary(ctx context.Context, projectID string) (*domain.BudgetSummary, error)

	CreateTask(ctx context.Context, actor domain.Actor, in project.CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	BlockingTasks(ctx context.Context, taskID string) (*project.BlockingResult, error)
	SetTaskDependencies(ctx context.Context, actor domain.Actor, taskID string, deps []string, etag string) (*domain.Task, error)
	SetSubtaskCompletion(ctx context.Context, actor domain.Actor, taskID, subtaskID string, completed bool, etag string) (*domain.Task, error)
	RequestTaskStatus(ctx context.Context, actor domain.Actor, taskID, status string, etag string) (*domain.Task, error)
	ApplyTaskApproval(ctx context.Context, actor domain.Actor, taskID string, in project.ApprovalInput) (*domain.Task, error)
	ListApprovalEvents(ctx context.Context, kind domain.EntityKind, entityID string) ([]domain.ApprovalEvent, error)

	CreateTransaction(ctx context.Context, actor domain.Actor, in project.CreateTransactionInput) (*domain.FinancialTransaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.FinancialTransaction, error)
	ListTransactions(ctx context.Context, projectID string) ([]domain.FinancialTransaction, error)
	ApplyTransactionApproval(ctx context.Context, actor domain.Actor, txnID string, in project.ApprovalInput) (*domain.FinancialTransaction, error)
	MarkTransactionPaid(ctx context.Context, actor domain.Actor, txnID string, etag string) (*domain.FinancialTransaction, error)

	ExportProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.ProjectSnapshot, error)
	ListExports(ctx context.Context, projectID string) ([]*domain.ProjectSnapshot, error)
	GetExport(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error)
}

var _ ProjectService = (*project.Service)(nil)

// Handler serves the atelier REST API.
type Handler struct {
	service ProjectService
}

// New creates a new API handler.
func New(service ProjectService) *Handler {
	return &Handler{service: service}
}

// Routes returns the API router. It expects to be mounted behind the auth middleware.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/projects", h.CreateProject)
	r.Route("/projects/{project_id}", func(r chi.Router) {
		r.Get("/", h.GetProject)
		r.Get("/budget", h.GetBudgetSummary)

		r.Post("/export", h.ExportProject)
		r.Get("/exports", h.ListExports)
		r.Get("/exports/{snapshot_id}", h.GetExport)

		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)

		r.Post("/transactions", h.CreateTransaction)
		r.Get("/transactions", h.ListTransactions)
	})

	r.Route("/tasks/{task_id}", func(r chi.Router) {
		r.Get("/", h.GetTask)
		r.Get("/blocking", h.BlockingTasks)
		r.Put("/dependencies", h.SetTaskDependencies)
		r.Patch("/subtasks/{subtask_id}", h.SetSubtaskCompletion)
		r.Post("/status", h.RequestTaskStatus)
		r.Post("/approvals", h.ApplyTaskApproval)
		r.Get("/approvals", h.listEvents(domain.EntityTask, "task_id"))
	})

	r.Route("/transactions/{transaction_id}", func(r chi.Router) {
		r.Get("/", h.GetTransaction)
		r.Post("/approvals", h.ApplyTransactionApproval)
		r.Get("/approvals", h.listEvents(domain.EntityTransaction, "transaction_id"))
		r.Post("/pay", h.MarkTransactionPaid)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, "METHOD_NOT_ALLOWED", "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// actor returns the authenticated actor, writing 401 when the request bypassed auth.
func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := mw.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "missing API key")
	}
	return a, ok
}
