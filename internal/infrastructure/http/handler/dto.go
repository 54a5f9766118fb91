package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezkam/atelier/internal/domain"
)

// ProjectDTO is the wire form of a project. Money is a decimal string.
type ProjectDTO struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ClientID      string    `json:"client_id"`
	InitialBudget string    `json:"initial_budget"`
	Budget        string    `json:"budget"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Etag          string    `json:"etag"`
}

// TaskDTO is the wire form of a task.
type TaskDTO struct {
	ID           string                                `json:"id"`
	ProjectID    string                                `json:"project_id"`
	Title        string                                `json:"title"`
	Category     string                                `json:"category"`
	AssigneeID   string                                `json:"assignee_id,omitempty"`
	StartDate    domain.Date                           `json:"start_date,omitzero"`
	DueDate      domain.Date                           `json:"due_date,omitzero"`
	Status       domain.TaskStatus                     `json:"status"`
	StatusSource domain.StatusSource                   `json:"status_source"`
	Dependencies []string                              `json:"dependencies"`
	Subtasks     []domain.Subtask                      `json:"subtasks"`
	Approvals    map[domain.Stage]domain.ApprovalStage `json:"approvals"`
	CreatedAt    time.Time                             `json:"created_at"`
	UpdatedAt    time.Time                             `json:"updated_at"`
	Etag         string                                `json:"etag"`
}

// TransactionDTO is the wire form of a financial transaction.
type TransactionDTO struct {
	ID          string                                `json:"id"`
	ProjectID   string                                `json:"project_id"`
	Type        domain.TransactionType                `json:"type"`
	Amount      string                                `json:"amount"`
	Category    string                                `json:"category"`
	Description string                                `json:"description,omitempty"`
	VendorID    string                                `json:"vendor_id,omitempty"`
	Status      domain.TransactionStatus              `json:"status"`
	Date        domain.Date                           `json:"date,omitzero"`
	Approvals   map[domain.Stage]domain.ApprovalStage `json:"approvals"`
	CreatedAt   time.Time                             `json:"created_at"`
	UpdatedAt   time.Time                             `json:"updated_at"`
	Etag        string                                `json:"etag"`
}

// BudgetSummaryDTO is the wire form of the computed budget figures.
type BudgetSummaryDTO struct {
	ProjectID             string            `json:"project_id"`
	InitialBudget         string            `json:"initial_budget"`
	Committed             string            `json:"committed"`
	Budget                string            `json:"budget"`
	Received              string            `json:"received"`
	PaidOut               string            `json:"paid_out"`
	PendingIncome         string            `json:"pending_income"`
	PendingExpenses       string            `json:"pending_expenses"`
	TotalAdditionalBudget string            `json:"total_additional_budget"`
	Remaining             string            `json:"remaining"`
	VendorEarnings        map[string]string `json:"vendor_earnings"`
}

// ApprovalEventDTO is one entry of an approval audit trail.
type ApprovalEventDTO struct {
	ID            string                `json:"id"`
	Stage         domain.Stage          `json:"stage"`
	Party         domain.Party          `json:"party"`
	Action        domain.ApprovalAction `json:"action"`
	ActorID       string                `json:"actor_id"`
	ActorRole     domain.Role           `json:"actor_role"`
	Result        domain.ApprovalStatus `json:"result"`
	FullyApproved bool                  `json:"fully_approved"`
	CreatedAt     time.Time             `json:"created_at"`
}

// SnapshotSummaryDTO describes an export without its contents.
type SnapshotSummaryDTO struct {
	ID               string    `json:"id"`
	ProjectID        string    `json:"project_id"`
	TakenAt          time.Time `json:"taken_at"`
	TakenBy          string    `json:"taken_by"`
	TaskCount        int       `json:"task_count"`
	TransactionCount int       `json:"transaction_count"`
}

// SnapshotDTO is a full export.
type SnapshotDTO struct {
	SnapshotSummaryDTO
	Project      ProjectDTO       `json:"project"`
	Tasks        []TaskDTO        `json:"tasks"`
	Transactions []TransactionDTO `json:"transactions"`
	Summary      BudgetSummaryDTO `json:"summary"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// MapProjectToDTO converts a domain project to its wire form.
func MapProjectToDTO(p *domain.Project) ProjectDTO {
	return ProjectDTO{
		ID:            p.ID,
		Name:          p.Name,
		ClientID:      p.ClientID,
		InitialBudget: money(p.InitialBudget),
		Budget:        money(p.Budget),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Etag:          p.Etag(),
	}
}

// MapTaskToDTO converts a domain task to its wire form.
func MapTaskToDTO(t *domain.Task) TaskDTO {
	return TaskDTO{
		ID:           t.ID,
		ProjectID:    t.ProjectID,
		Title:        t.Title,
		Category:     t.Category,
		AssigneeID:   t.AssigneeID,
		StartDate:    t.StartDate,
		DueDate:      t.DueDate,
		Status:       t.Status,
		StatusSource: t.StatusSource,
		Dependencies: nonNil(t.Dependencies),
		Subtasks:     nonNil(t.Subtasks),
		Approvals:    stagesOf(t.Approvals),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Etag:         t.Etag(),
	}
}

// MapTransactionToDTO converts a domain transaction to its wire form.
func MapTransactionToDTO(t *domain.FinancialTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Type:        t.Type,
		Amount:      money(t.Amount),
		Category:    t.Category,
		Description: t.Description,
		VendorID:    t.VendorID,
		Status:      t.Status,
		Date:        t.Date,
		Approvals:   stagesOf(t.Approvals),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Etag:        t.Etag(),
	}
}

// MapBudgetSummaryToDTO converts computed budget figures to their wire form.
func MapBudgetSummaryToDTO(s *domain.BudgetSummary) BudgetSummaryDTO {
	vendors := make(map[string]string, len(s.VendorEarnings))
	for id, amount := range s.VendorEarnings {
		vendors[id] = money(amount)
	}
	return BudgetSummaryDTO{
		ProjectID:             s.ProjectID,
		InitialBudget:         money(s.InitialBudget),
		Committed:             money(s.Committed),
		Budget:                money(s.Budget),
		Received:              money(s.Received),
		PaidOut:               money(s.PaidOut),
		PendingIncome:         money(s.PendingIncome),
		PendingExpenses:       money(s.PendingExpenses),
		TotalAdditionalBudget: money(s.TotalAdditionalBudget),
		Remaining:             money(s.Remaining),
		VendorEarnings:        vendors,
	}
}

// MapApprovalEventToDTO converts an audit record to its wire form.
func MapApprovalEventToDTO(e domain.ApprovalEvent) ApprovalEventDTO {
	return ApprovalEventDTO{
		ID:            e.ID,
		Stage:         e.Stage,
		Party:         e.Party,
		Action:        e.Action,
		ActorID:       e.ActorID,
		ActorRole:     e.ActorRole,
		Result:        e.Result,
		FullyApproved: e.FullyApproved,
		CreatedAt:     e.CreatedAt,
	}
}

// MapSnapshotSummaryToDTO describes a snapshot without copying its contents.
func MapSnapshotSummaryToDTO(s *domain.ProjectSnapshot) SnapshotSummaryDTO {
	return SnapshotSummaryDTO{
		ID:               s.ID,
		ProjectID:        s.ProjectID,
		TakenAt:          s.TakenAt,
		TakenBy:          s.TakenBy,
		TaskCount:        len(s.Tasks),
		TransactionCount: len(s.Transactions),
	}
}

// MapSnapshotToDTO converts a full snapshot to its wire form.
func MapSnapshotToDTO(s *domain.ProjectSnapshot) SnapshotDTO {
	return SnapshotDTO{
		SnapshotSummaryDTO: MapSnapshotSummaryToDTO(s),
		Project:            MapProjectToDTO(&s.Project),
		Tasks:              mapTasks(s.Tasks),
		Transactions:       mapTransactions(s.Transactions),
		Summary:            MapBudgetSummaryToDTO(&s.Summary),
	}
}

func mapTasks(tasks []domain.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i := range tasks {
		out[i] = MapTaskToDTO(&tasks[i])
	}
	return out
}

func mapTransactions(txns []domain.FinancialTransaction) []TransactionDTO {
	out := make([]TransactionDTO, len(txns))
	for i := range txns {
		out[i] = MapTransactionToDTO(&txns[i])
	}
	return out
}

func stagesOf(m domain.ApprovalMatrix) map[domain.Stage]domain.ApprovalStage {
	if m.Stages == nil {
		return map[domain.Stage]domain.ApprovalStage{}
	}
	return m.Stages
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
