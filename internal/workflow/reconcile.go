package workflow

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezkam/atelier/internal/domain"
)

// ApplyTransactionApproval applies an approval command to the transaction's matrix.
//
// Completing the payment stage of a plain transaction settles it (PAID): both parties have
// confirmed the money moved. Additional-budget income is only settled by ReconcileBudget.
func ApplyTransactionApproval(txn domain.FinancialTransaction, cmd domain.ApprovalCommand) (domain.FinancialTransaction, *domain.StageFullyApproved, error) {
	out, err := txn.Approvals.Apply(cmd)
	if err != nil {
		return domain.FinancialTransaction{}, nil, err
	}

	next := txn
	next.Approvals = out.Matrix
	next.UpdatedAt = cmd.At
	if out.Event != nil && out.Event.Stage == domain.StagePayment && !next.IsBudgetIncrease() && next.Status.IsOpen() {
		next.Status = domain.TransactionStatusPaid
	}
	return next, out.Event, nil
}

// ReconcileBudget credits an approved additional-budget income to the project budget.
//
// It applies only to INCOME in the "Additional Budget" category whose additional_budget stage
// is fully approved. The transaction's PAID status is the idempotence guard: a second call
// returns ErrAlreadyApplied with the project unchanged.
func ReconcileBudget(project domain.Project, txn domain.FinancialTransaction) (domain.Project, domain.FinancialTransaction, error) {
	if !txn.IsBudgetIncrease() {
		return project, txn, fmt.Errorf("%w: %s %s", domain.ErrNotBudgetIncrease, txn.Type, txn.Category)
	}
	if !txn.Approvals.FullyApproved(domain.StageAdditionalBudget) {
		return project, txn, fmt.Errorf("%w: %s", domain.ErrStageNotApproved, domain.StageAdditionalBudget)
	}
	if txn.Status == domain.TransactionStatusPaid {
		return project, txn, fmt.Errorf("%w: budget credit for transaction %s", domain.ErrAlreadyApplied, txn.ID)
	}

	project.Budget = project.Budget.Add(txn.Amount)
	txn.Status = domain.TransactionStatusPaid
	return project, txn, nil
}

// MarkPaid settles a plain transaction by explicit admin action.
// Additional-budget income cannot be marked paid directly; it settles through reconciliation.
// Marking an already paid transaction is a no-op.
func MarkPaid(txn domain.FinancialTransaction, actor domain.Actor, now time.Time) (domain.FinancialTransaction, error) {
	if !actor.IsAdmin() {
		return domain.FinancialTransaction{}, fmt.Errorf("%w: only an admin may mark a transaction paid", domain.ErrForbidden)
	}
	if txn.IsBudgetIncrease() {
		return domain.FinancialTransaction{}, fmt.Errorf("%w: additional budget is settled by dual approval", domain.ErrApprovalRequired)
	}
	if txn.Status == domain.TransactionStatusPaid {
		return txn, nil
	}
	txn.Status = domain.TransactionStatusPaid
	txn.UpdatedAt = now
	return txn, nil
}

// Summarize computes the project's budget figures from its transactions.
//
// Additional-budget income is a commitment rather than cash: once reconciled it counts towards
// TotalAdditionalBudget and Committed, never towards Received or PendingIncome.
func Summarize(project domain.Project, txns []domain.FinancialTransaction) domain.BudgetSummary {
	s := domain.BudgetSummary{
		ProjectID:      project.ID,
		InitialBudget:  project.InitialBudget,
		Budget:         project.Budget,
		VendorEarnings: make(map[string]decimal.Decimal),
	}

	for _, t := range txns {
		paid := t.Status == domain.TransactionStatusPaid
		switch {
		case t.IsBudgetIncrease():
			if paid {
				s.TotalAdditionalBudget = s.TotalAdditionalBudget.Add(t.Amount)
			}
		case t.Type == domain.TransactionTypeIncome:
			if paid {
				s.Received = s.Received.Add(t.Amount)
			} else {
				s.PendingIncome = s.PendingIncome.Add(t.Amount)
			}
		case t.Type == domain.TransactionTypeExpense:
			if paid {
				s.PaidOut = s.PaidOut.Add(t.Amount)
				if t.VendorID != "" {
					s.VendorEarnings[t.VendorID] = s.VendorEarnings[t.VendorID].Add(t.Amount)
				}
			} else {
				s.PendingExpenses = s.PendingExpenses.Add(t.Amount)
			}
		}
	}

	s.Committed = project.InitialBudget.Add(s.TotalAdditionalBudget)
	s.Remaining = s.Committed.Sub(s.PaidOut.Add(s.PendingExpenses))
	return s
}
