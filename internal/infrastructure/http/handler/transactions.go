package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// CreateTransactionRequest is the body of POST /projects/{project_id}/transactions.
// Amount is a decimal string so no precision is lost in transit.
type CreateTransactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	VendorID    string `json:"vendor_id"`
	Date        string `json:"date"`
}

// MarkPaidRequest is the optional body of POST /transactions/{transaction_id}/pay.
type MarkPaidRequest struct {
	Etag string `json:"etag"`
}

// TransactionResponse wraps a single transaction.
type TransactionResponse struct {
	Transaction TransactionDTO `json:"transaction"`
}

// ListTransactionsResponse wraps the transactions of a project.
type ListTransactionsResponse struct {
	Transactions []TransactionDTO `json:"transactions"`
}

func writeTransaction(w http.ResponseWriter, t *domain.FinancialTransaction, status int) {
	response.WithEtag(w, t.Etag())
	if status == http.StatusCreated {
		response.Created(w, TransactionResponse{Transaction: MapTransactionToDTO(t)})
		return
	}
	response.OK(w, TransactionResponse{Transaction: MapTransactionToDTO(t)})
}

// CreateTransaction handles POST /projects/{project_id}/transactions.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	projectID := chi.URLParam(r, "project_id")
	t, err := h.service.CreateTransaction(r.Context(), a, project.CreateTransactionInput{
		ProjectID:   projectID,
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		VendorID:    req.VendorID,
		Date:        req.Date,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "transaction created via HTTP",
		"transaction_id", t.ID,
		"project_id", projectID,
		"type", t.Type)
	writeTransaction(w, t, http.StatusCreated)
}

// ListTransactions handles GET /projects/{project_id}/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.service.ListTransactions(r.Context(), chi.URLParam(r, "project_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, ListTransactionsResponse{Transactions: mapTransactions(txns)})
}

// GetTransaction handles GET /transactions/{transaction_id}.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTransaction(r.Context(), chi.URLParam(r, "transaction_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	writeTransaction(w, t, http.StatusOK)
}

// ApplyTransactionApproval handles POST /transactions/{transaction_id}/approvals.
func (h *Handler) ApplyTransactionApproval(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req ApprovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.ApplyTransactionApproval(r.Context(), a, chi.URLParam(r, "transaction_id"), req.input(r))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	writeTransaction(w, t, http.StatusOK)
}

// MarkTransactionPaid handles POST /transactions/{transaction_id}/pay.
// The body is optional; an etag may also arrive in If-Match.
func (h *Handler) MarkTransactionPaid(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req MarkPaidRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.MarkTransactionPaid(r.Context(), a, chi.URLParam(r, "transaction_id"), etagFrom(r, req.Etag))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	writeTransaction(w, t, http.StatusOK)
}
