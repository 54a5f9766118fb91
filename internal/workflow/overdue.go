package workflow

import (
	"github.com/rezkam/atelier/internal/domain"
)

// Overdue is implemented by entities subject to the time-based OVERDUE promotion.
type Overdue interface {
	OverdueKey() string
	IsOverdue(today domain.Date) bool
}

// SweepOverdue returns the ids of the entities that need promotion to OVERDUE as of today.
// It is a pure query, so running it repeatedly is safe.
func SweepOverdue[E Overdue](entities []E, today domain.Date) []string {
	var ids []string
	for _, e := range entities {
		if e.IsOverdue(today) {
			ids = append(ids, e.OverdueKey())
		}
	}
	return ids
}

// PromoteOverdue marks the task OVERDUE when its due date has passed.
// The second result reports whether the task changed.
func PromoteOverdue(task domain.Task, today domain.Date) (domain.Task, bool) {
	if !task.IsOverdue(today) {
		return task, false
	}
	task.Status = domain.TaskStatusOverdue
	task.StatusSource = domain.StatusSourceDerived
	return task, true
}

// PromoteOverdueTransaction marks a pending transaction dated before today OVERDUE.
func PromoteOverdueTransaction(txn domain.FinancialTransaction, today domain.Date) (domain.FinancialTransaction, bool) {
	if !txn.IsOverdue(today) {
		return txn, false
	}
	txn.Status = domain.TransactionStatusOverdue
	return txn, true
}
