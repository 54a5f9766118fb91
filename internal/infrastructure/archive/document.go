// Package archive stores exported project snapshots as JSON documents, either on the
// local filesystem or in a Google Cloud Storage bucket.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezkam/atelier/internal/domain"
)

// snapshotDocument is the stored form of a domain.ProjectSnapshot.
// Amounts are encoded as decimal strings and dates as YYYY-MM-DD.
type snapshotDocument struct {
	ID           string                `json:"id"`
	ProjectID    string                `json:"project_id"`
	TakenAt      time.Time             `json:"taken_at"`
	TakenBy      string                `json:"taken_by"`
	Project      projectDocument       `json:"project"`
	Tasks        []taskDocument        `json:"tasks"`
	Transactions []transactionDocument `json:"transactions"`
	Summary      summaryDocument       `json:"summary"`
}

type projectDocument struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ClientID      string          `json:"client_id,omitempty"`
	InitialBudget decimal.Decimal `json:"initial_budget"`
	Budget        decimal.Decimal `json:"budget"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

type taskDocument struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Category     string                `json:"category,omitempty"`
	AssigneeID   string                `json:"assignee_id,omitempty"`
	StartDate    domain.Date           `json:"start_date,omitzero"`
	DueDate      domain.Date           `json:"due_date,omitzero"`
	Status       domain.TaskStatus     `json:"status"`
	StatusSource domain.StatusSource   `json:"status_source"`
	Dependencies []string              `json:"dependencies"`
	Subtasks     []domain.Subtask      `json:"subtasks"`
	Approvals    domain.ApprovalMatrix `json:"approvals"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Version      int                   `json:"version"`
}

type transactionDocument struct {
	ID          string                   `json:"id"`
	Type        domain.TransactionType   `json:"type"`
	Amount      decimal.Decimal          `json:"amount"`
	Category    string                   `json:"category"`
	Description string                   `json:"description,omitempty"`
	VendorID    string                   `json:"vendor_id,omitempty"`
	Status      domain.TransactionStatus `json:"status"`
	Date        domain.Date              `json:"date,omitzero"`
	Approvals   domain.ApprovalMatrix    `json:"approvals"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	Version     int                      `json:"version"`
}

type summaryDocument struct {
	InitialBudget         decimal.Decimal            `json:"initial_budget"`
	Committed             decimal.Decimal            `json:"committed"`
	Budget                decimal.Decimal            `json:"budget"`
	Received              decimal.Decimal            `json:"received"`
	PaidOut               decimal.Decimal            `json:"paid_out"`
	PendingIncome         decimal.Decimal            `json:"pending_income"`
	PendingExpenses       decimal.Decimal            `json:"pending_expenses"`
	TotalAdditionalBudget decimal.Decimal            `json:"total_additional_budget"`
	Remaining             decimal.Decimal            `json:"remaining"`
	VendorEarnings        map[string]decimal.Decimal `json:"vendor_earnings,omitempty"`
}

func encodeSnapshot(s *domain.ProjectSnapshot) ([]byte, error) {
	doc := snapshotDocument{
		ID:        s.ID,
		ProjectID: s.ProjectID,
		TakenAt:   s.TakenAt.UTC(),
		TakenBy:   s.TakenBy,
		Project: projectDocument{
			ID:            s.Project.ID,
			Name:          s.Project.Name,
			ClientID:      s.Project.ClientID,
			InitialBudget: s.Project.InitialBudget,
			Budget:        s.Project.Budget,
			CreatedAt:     s.Project.CreatedAt.UTC(),
			UpdatedAt:     s.Project.UpdatedAt.UTC(),
			Version:       s.Project.Version,
		},
		Tasks:        make([]taskDocument, 0, len(s.Tasks)),
		Transactions: make([]transactionDocument, 0, len(s.Transactions)),
		Summary: summaryDocument{
			InitialBudget:         s.Summary.InitialBudget,
			Committed:             s.Summary.Committed,
			Budget:                s.Summary.Budget,
			Received:              s.Summary.Received,
			PaidOut:               s.Summary.PaidOut,
			PendingIncome:         s.Summary.PendingIncome,
			PendingExpenses:       s.Summary.PendingExpenses,
			TotalAdditionalBudget: s.Summary.TotalAdditionalBudget,
			Remaining:             s.Summary.Remaining,
			VendorEarnings:        s.Summary.VendorEarnings,
		},
	}
	for _, t := range s.Tasks {
		doc.Tasks = append(doc.Tasks, taskDocument{
			ID:           t.ID,
			Title:        t.Title,
			Category:     t.Category,
			AssigneeID:   t.AssigneeID,
			StartDate:    t.StartDate,
			DueDate:      t.DueDate,
			Status:       t.Status,
			StatusSource: t.StatusSource,
			Dependencies: nonNil(t.Dependencies),
			Subtasks:     nonNil(t.Subtasks),
			Approvals:    t.Approvals,
			CreatedAt:    t.CreatedAt.UTC(),
			UpdatedAt:    t.UpdatedAt.UTC(),
			Version:      t.Version,
		})
	}
	for _, t := range s.Transactions {
		doc.Transactions = append(doc.Transactions, transactionDocument{
			ID:          t.ID,
			Type:        t.Type,
			Amount:      t.Amount,
			Category:    t.Category,
			Description: t.Description,
			VendorID:    t.VendorID,
			Status:      t.Status,
			Date:        t.Date,
			Approvals:   t.Approvals,
			CreatedAt:   t.CreatedAt.UTC(),
			UpdatedAt:   t.UpdatedAt.UTC(),
			Version:     t.Version,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*domain.ProjectSnapshot, error) {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	s := &domain.ProjectSnapshot{
		ID:        doc.ID,
		ProjectID: doc.ProjectID,
		TakenAt:   doc.TakenAt,
		TakenBy:   doc.TakenBy,
		Project: domain.Project{
			ID:            doc.Project.ID,
			Name:          doc.Project.Name,
			ClientID:      doc.Project.ClientID,
			InitialBudget: doc.Project.InitialBudget,
			Budget:        doc.Project.Budget,
			CreatedAt:     doc.Project.CreatedAt,
			UpdatedAt:     doc.Project.UpdatedAt,
			Version:       doc.Project.Version,
		},
		Tasks:        make([]domain.Task, 0, len(doc.Tasks)),
		Transactions: make([]domain.FinancialTransaction, 0, len(doc.Transactions)),
		Summary: domain.BudgetSummary{
			ProjectID:             doc.ProjectID,
			InitialBudget:         doc.Summary.InitialBudget,
			Committed:             doc.Summary.Committed,
			Budget:                doc.Summary.Budget,
			Received:              doc.Summary.Received,
			PaidOut:               doc.Summary.PaidOut,
			PendingIncome:         doc.Summary.PendingIncome,
			PendingExpenses:       doc.Summary.PendingExpenses,
			TotalAdditionalBudget: doc.Summary.TotalAdditionalBudget,
			Remaining:             doc.Summary.Remaining,
			VendorEarnings:        doc.Summary.VendorEarnings,
		},
	}
	for _, t := range doc.Tasks {
		s.Tasks = append(s.Tasks, domain.Task{
			ID:           t.ID,
			ProjectID:    doc.ProjectID,
			Title:        t.Title,
			Category:     t.Category,
			AssigneeID:   t.AssigneeID,
			StartDate:    t.StartDate,
			DueDate:      t.DueDate,
			Status:       t.Status,
			StatusSource: t.StatusSource,
			Dependencies: t.Dependencies,
			Subtasks:     t.Subtasks,
			Approvals:    t.Approvals,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
			Version:      t.Version,
		})
	}
	for _, t := range doc.Transactions {
		s.Transactions = append(s.Transactions, domain.FinancialTransaction{
			ID:          t.ID,
			ProjectID:   doc.ProjectID,
			Type:        t.Type,
			Amount:      t.Amount,
			Category:    t.Category,
			Description: t.Description,
			VendorID:    t.VendorID,
			Status:      t.Status,
			Date:        t.Date,
			Approvals:   t.Approvals,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
			Version:     t.Version,
		})
	}
	return s, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
