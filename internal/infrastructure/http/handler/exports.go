package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// SnapshotResponse wraps a full export.
type SnapshotResponse struct {
	Snapshot SnapshotDTO `json:"snapshot"`
}

// ListSnapshotsResponse lists exports newest first.
type ListSnapshotsResponse struct {
	Snapshots []SnapshotSummaryDTO `json:"snapshots"`
}

// ExportProject handles POST /projects/{project_id}/export.
func (h *Handler) ExportProject(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	projectID := chi.URLParam(r, "project_id")
	snap, err := h.service.ExportProject(r.Context(), a, projectID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to export project via HTTP", "project_id", projectID, "error", err)
		response.FromDomainError(w, r, err)
		return
	}

	response.Created(w, SnapshotResponse{Snapshot: MapSnapshotToDTO(snap)})
}

// ListExports handles GET /projects/{project_id}/exports.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.service.ListExports(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	out := make([]SnapshotSummaryDTO, len(snaps))
	for i, s := range snaps {
		out[i] = MapSnapshotSummaryToDTO(s)
	}
	response.OK(w, ListSnapshotsResponse{Snapshots: out})
}

// GetExport handles GET /projects/{project_id}/exports/{snapshot_id}.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetExport(r.Context(), chi.URLParam(r, "project_id"), chi.URLParam(r, "snapshot_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, SnapshotResponse{Snapshot: MapSnapshotToDTO(snap)})
}
