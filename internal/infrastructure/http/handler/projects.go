package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name          string `json:"name"`
	ClientID      string `json:"client_id"`
	InitialBudget string `json:"initial_budget"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Project ProjectDTO `json:"project"`
}

// CreateProject handles POST /projects.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.CreateProject(r.Context(), a, project.CreateProjectInput{
		Name:          req.Name,
		ClientID:      req.ClientID,
		InitialBudget: req.InitialBudget,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "project created via HTTP", "project_id", p.ID, "actor_id", a.ID)

	response.WithEtag(w, p.Etag())
	response.Created(w, ProjectResponse{Project: MapProjectToDTO(p)})
}

// GetProject handles GET /projects/{project_id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProject(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.WithEtag(w, p.Etag())
	response.OK(w, ProjectResponse{Project: MapProjectToDTO(p)})
}

// BudgetSummaryResponse wraps computed budget figures.
type BudgetSummaryResponse struct {
	Summary BudgetSummaryDTO `json:"summary"`
}

// GetBudgetSummary handles GET /projects/{project_id}/budget.
func (h *Handler) GetBudgetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetBudgetSummary(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, BudgetSummaryResponse{Summary: MapBudgetSummaryToDTO(s)})
}
