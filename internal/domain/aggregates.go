package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Project is an aggregate root grouping tasks and financial transactions.
//
// Budget is the committed running total. It starts at InitialBudget and only grows
// through reconciliation of approved additional-budget income.
// Cash-flow figures are never stored; see BudgetSummary.
type Project struct {
	ID            string
	Name          string
	ClientID      string
	InitialBudget decimal.Decimal
	Budget        decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Optimistic locking version for concurrent update protection
	Version int
}

// Etag returns the entity tag for this project.
func (p *Project) Etag() string {
	return fmt.Sprintf("%d", p.Version)
}

// Subtask is one checklist entry of a task.
type Subtask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

// Task is an aggregate root: a unit of work gated by dependencies and a start/completion approval matrix.
type Task struct {
	ID         string
	ProjectID  string
	Title      string
	Category   string
	AssigneeID string

	// Scheduling uses calendar dates only.
	StartDate Date
	DueDate   Date

	Status       TaskStatus
	StatusSource StatusSource

	// Direct dependencies by task id. Never contains ID.
	Dependencies []string
	Subtasks     []Subtask
	Approvals    ApprovalMatrix

	CreatedAt time.Time
	UpdatedAt time.Time

	// Optimistic locking version for concurrent update protection
	Version int
}

// Etag returns the entity tag for this task.
// The etag is based on the version number and is used for optimistic concurrency control.
func (t *Task) Etag() string {
	return fmt.Sprintf("%d", t.Version)
}

// IsFrozen reports whether the task is ON_HOLD or ABORTED.
func (t *Task) IsFrozen() bool {
	return t.Status.IsFrozen()
}

// DependsOn reports whether id is a direct dependency of the task.
func (t *Task) DependsOn(id string) bool {
	return slices.Contains(t.Dependencies, id)
}

// SubtaskIndex returns the index of the subtask with the given id, or -1.
func (t *Task) SubtaskIndex(id string) int {
	return slices.IndexFunc(t.Subtasks, func(s Subtask) bool { return s.ID == id })
}

// OverdueKey implements the overdue sweep contract.
func (t Task) OverdueKey() string {
	return t.ID
}

// IsOverdue reports whether the task's due date has passed and its status allows OVERDUE promotion.
// DONE, OVERDUE, ABORTED, ON_HOLD and REVIEW tasks are never promoted.
func (t Task) IsOverdue(today Date) bool {
	if t.DueDate.IsZero() || !t.DueDate.Before(today) {
		return false
	}
	switch t.Status {
	case TaskStatusDone, TaskStatusOverdue, TaskStatusAborted, TaskStatusOnHold, TaskStatusReview:
		return false
	default:
		return true
	}
}

// Clone returns a copy of the task that shares no slices or maps with t.
func (t Task) Clone() Task {
	c := t
	c.Dependencies = slices.Clone(t.Dependencies)
	c.Subtasks = slices.Clone(t.Subtasks)
	c.Approvals = t.Approvals.Clone()
	return c
}

// FinancialTransaction is an aggregate root recording money moving in or out of a project.
type FinancialTransaction struct {
	ID          string
	ProjectID   string
	Type        TransactionType
	Amount      decimal.Decimal
	Category    string
	Description string
	VendorID    string // optional; set on expenses paid to a vendor
	Status      TransactionStatus
	Date        Date

	// Always has a payment stage. Additional-budget income also has an additional_budget stage.
	Approvals ApprovalMatrix

	CreatedAt time.Time
	UpdatedAt time.Time

	// Optimistic locking version for concurrent update protection
	Version int
}

// Etag returns the entity tag for this transaction.
func (t *FinancialTransaction) Etag() string {
	return fmt.Sprintf("%d", t.Version)
}

// IsBudgetIncrease reports whether the transaction is income in the "Additional Budget" category.
func (t *FinancialTransaction) IsBudgetIncrease() bool {
	return t.Type == TransactionTypeIncome && t.Category == CategoryAdditionalBudget
}

// OverdueKey implements the overdue sweep contract.
func (t FinancialTransaction) OverdueKey() string {
	return t.ID
}

// IsOverdue reports whether a pending transaction is dated before today.
func (t FinancialTransaction) IsOverdue(today Date) bool {
	return t.Status == TransactionStatusPending && !t.Date.IsZero() && t.Date.Before(today)
}

// NewTransactionApprovals returns the approval stages for a transaction of the given type and category.
func NewTransactionApprovals(typ TransactionType, category string) ApprovalMatrix {
	if typ == TransactionTypeIncome && category == CategoryAdditionalBudget {
		return NewApprovalMatrix(StagePayment, StageAdditionalBudget)
	}
	return NewApprovalMatrix(StagePayment)
}

// Actor is the identity performing an operation.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// BudgetSummary holds project figures computed on read from the project's transactions.
type BudgetSummary struct {
	ProjectID     string
	InitialBudget decimal.Decimal

	// Committed is InitialBudget plus approved additional-budget income.
	Committed decimal.Decimal
	// Budget is the stored running total, kept for comparison with Committed.
	Budget decimal.Decimal

	Received              decimal.Decimal // paid income
	PaidOut               decimal.Decimal // paid expenses
	PendingIncome         decimal.Decimal // open income
	PendingExpenses       decimal.Decimal // open expenses
	TotalAdditionalBudget decimal.Decimal // approved additional-budget income

	// Remaining is Committed - (PaidOut + PendingExpenses).
	Remaining decimal.Decimal

	// VendorEarnings sums paid expenses per vendor id.
	VendorEarnings map[string]decimal.Decimal
}

// ApprovalEvent is an audit record of one accepted approval command.
type ApprovalEvent struct {
	ID            string
	EntityKind    EntityKind
	EntityID      string
	ProjectID     string
	Stage         Stage
	Party         Party
	Action        ApprovalAction
	ActorID       string
	ActorRole     Role
	Result        ApprovalStatus // cell status after the command
	FullyApproved bool           // the command completed the stage
	CreatedAt     time.Time
}

// APIKey is an aggregate root representing an API key for authentication.
//
// API keys use a split-token pattern:
//   - ShortToken: indexed portion for lookup
//   - LongSecretHash: cryptographic hash for verification
//   - FullKey: only shown once at creation (short + long)
//
// Each key is bound to one actor and the actor's role.
type APIKey struct {
	ID             string
	KeyType        string // "sk" = secret key
	Service        string // Service name (e.g., "atelier")
	Version        string // API version (e.g., "v1")
	ShortToken     string // Indexed portion for fast lookup
	LongSecretHash string // BLAKE2b-256 hash of long secret
	Name           string // Human-readable name/description
	ActorID        string
	Role           Role
	IsActive       bool
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	ExpiresAt      *time.Time
}

// Actor returns the identity bound to the key.
func (k *APIKey) Actor() Actor {
	return Actor{ID: k.ActorID, Role: k.Role}
}

// ProjectSnapshot is a point-in-time export of a project with everything needed to audit it.
type ProjectSnapshot struct {
	ID           string
	ProjectID    string
	TakenAt      time.Time
	TakenBy      string
	Project      Project
	Tasks        []Task
	Transactions []FinancialTransaction
	Summary      BudgetSummary
}
