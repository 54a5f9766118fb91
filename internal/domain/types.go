package domain

// TaskStatus represents the current state of a task.
// Value object - immutable string enum.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusReview     TaskStatus = "REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusOverdue    TaskStatus = "OVERDUE"
	TaskStatusOnHold     TaskStatus = "ON_HOLD"
	TaskStatusAborted    TaskStatus = "ABORTED"
)

// IsFrozen reports whether the status is ON_HOLD or ABORTED.
// Frozen tasks are exempt from derivation and only an admin may mutate them.
func (s TaskStatus) IsFrozen() bool {
	return s == TaskStatusOnHold || s == TaskStatusAborted
}

// StatusSource records how a task arrived at its current status.
type StatusSource string

const (
	// StatusSourceDerived means the status was computed from checklist and approvals.
	StatusSourceDerived StatusSource = "derived"
	// StatusSourceForced means the status was set explicitly by an actor, bypassing derivation.
	StatusSourceForced StatusSource = "forced"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// TransactionStatus represents the settlement state of a financial transaction.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusPaid    TransactionStatus = "PAID"
	TransactionStatusOverdue TransactionStatus = "OVERDUE"
)

// IsOpen reports whether the transaction has not settled yet.
func (s TransactionStatus) IsOpen() bool {
	return s == TransactionStatusPending || s == TransactionStatusOverdue
}

// CategoryAdditionalBudget is the income category whose approval raises the project budget.
const CategoryAdditionalBudget = "Additional Budget"

// Role is the closed set of actor roles known to the workflow.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleClient   Role = "client"
	RoleDesigner Role = "designer"
	RoleVendor   Role = "vendor"
)

// Party returns the approval party the role acts as.
// Only admins and clients are approval parties.
func (r Role) Party() (Party, bool) {
	switch r {
	case RoleAdmin:
		return PartyAdmin, true
	case RoleClient:
		return PartyClient, true
	default:
		return "", false
	}
}

// Party is one side of a dual-party approval stage.
type Party string

const (
	PartyAdmin  Party = "admin"
	PartyClient Party = "client"
)

// Stage names one approval phase.
type Stage string

const (
	StageStart            Stage = "start"
	StageCompletion       Stage = "completion"
	StagePayment          Stage = "payment"
	StageAdditionalBudget Stage = "additional_budget"
)

// ApprovalStatus is the decision recorded in a single approval cell.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ApprovalAction is the command applied to an approval cell.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
	ActionRevoke  ApprovalAction = "revoke"
)

// EntityKind identifies which aggregate an approval event belongs to.
type EntityKind string

const (
	EntityTask        EntityKind = "task"
	EntityTransaction EntityKind = "transaction"
)
