package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/workflow"
)

// CreateTransactionInput holds the fields of a new financial transaction.
type CreateTransactionInput struct {
	ProjectID   string
	Type        string
	Amount      string
	Category    string
	Description string
	VendorID    string
	Date        string // YYYY-MM-DD; defaults to today
}

// CreateTransaction records a pending income or expense.
// Additional-budget income gets an additional_budget approval stage next to the payment stage.
func (s *Service) CreateTransaction(ctx context.Context, actor domain.Actor, in CreateTransactionInput) (*domain.FinancialTransaction, error) {
	typ, err := domain.NewTransactionType(in.Type)
	if err != nil {
		return nil, err
	}
	amount, err := domain.NewAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, domain.ErrCategoryRequired
	}

	date := s.today()
	if in.Date != "" {
		if date, err = domain.ParseDate(in.Date); err != nil {
			return nil, err
		}
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	txn := &domain.FinancialTransaction{
		ID:          id,
		ProjectID:   in.ProjectID,
		Type:        typ,
		Amount:      amount,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
		VendorID:    strings.TrimSpace(in.VendorID),
		Status:      domain.TransactionStatusPending,
		Date:        date,
		Approvals:   domain.NewTransactionApprovals(typ, category),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *domain.FinancialTransaction
	err = s.repo.Atomic(ctx, func(repo Repository) error {
		if _, err := repo.FindProjectByID(ctx, in.ProjectID); err != nil {
			return err
		}
		var err error
		created, err = repo.CreateTransaction(ctx, txn)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", created.ID, "project_id", created.ProjectID, "type", created.Type, "actor_id", actor.ID)
	return created, nil
}

// GetTransaction retrieves a transaction by ID.
func (s *Service) GetTransaction(ctx context.Context, id string) (*domain.FinancialTransaction, error) {
	if id == "" {
		return nil, domain.ErrTransactionNotFound
	}
	return s.repo.FindTransactionByID(ctx, id)
}

// ListTransactions returns every transaction of a project.
func (s *Service) ListTransactions(ctx context.Context, projectID string) ([]domain.FinancialTransaction, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	txns, err := s.repo.FindTransactionsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// ApplyTransactionApproval applies an approval command to a transaction.
//
// When the command completes the additional_budget stage, the budget credit is applied in the
// same database transaction, guarded twice: by the applied-effects ledger and by the
// transaction's PAID status. A duplicate credit is skipped, never applied.
func (s *Service) ApplyTransactionApproval(ctx context.Context, actor domain.Actor, txnID string, in ApprovalInput) (*domain.FinancialTransaction, error) {
	cmd, err := s.parseApproval(actor, in)
	if err != nil {
		return nil, err
	}

	var updated *domain.FinancialTransaction
	reconciled := false
	err = s.withLock(ctx, transactionLockKey(txnID), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			current, err := repo.FindTransactionByID(ctx, txnID)
			if err != nil {
				return err
			}
			if err := checkEtag(in.Etag, current.Etag()); err != nil {
				return err
			}

			next, ev, err := workflow.ApplyTransactionApproval(*current, cmd)
			if err != nil {
				return err
			}
			if !cellChanged(current.Approvals, next.Approvals, cmd) {
				updated = current
				return nil
			}

			if updated, err = repo.UpdateTransaction(ctx, &next); err != nil {
				return err
			}
			if err := s.recordApproval(ctx, repo, domain.EntityTransaction, updated.ID, updated.ProjectID, cmd, updated.Approvals, ev); err != nil {
				return err
			}

			if ev == nil || ev.Stage != domain.StageAdditionalBudget {
				return nil
			}
			credited, err := s.reconcile(ctx, repo, updated)
			if err != nil {
				return err
			}
			if credited != nil {
				updated = credited
				reconciled = true
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if reconciled {
		s.metrics.budgetReconciled(ctx)
		slog.InfoContext(ctx, "Additional budget reconciled",
			"transaction_id", updated.ID, "project_id", updated.ProjectID, "amount", updated.Amount.String())
	}
	return updated, nil
}

// reconcile credits txn to its project's budget exactly once.
// It returns the settled transaction, or nil when the credit was already applied.
func (s *Service) reconcile(ctx context.Context, repo Repository, txn *domain.FinancialTransaction) (*domain.FinancialTransaction, error) {
	if err := repo.ClaimEffect(ctx, budgetEffectKey(txn.ID)); err != nil {
		if errors.Is(err, domain.ErrAlreadyApplied) {
			slog.WarnContext(ctx, "Budget credit already claimed, skipping", "transaction_id", txn.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim budget credit: %w", err)
	}

	project, err := repo.FindProjectByID(ctx, txn.ProjectID)
	if err != nil {
		return nil, err
	}

	p, t, err := workflow.ReconcileBudget(*project, *txn)
	if errors.Is(err, domain.ErrAlreadyApplied) {
		slog.WarnContext(ctx, "Transaction already settled, skipping budget credit", "transaction_id", txn.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	p.UpdatedAt = now
	t.UpdatedAt = now
	if _, err := repo.UpdateProject(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to credit project budget: %w", err)
	}
	return repo.UpdateTransaction(ctx, &t)
}

// MarkTransactionPaid settles a plain transaction by explicit admin action.
func (s *Service) MarkTransactionPaid(ctx context.Context, actor domain.Actor, txnID string, etag string) (*domain.FinancialTransaction, error) {
	var updated *domain.FinancialTransaction
	err := s.withLock(ctx, transactionLockKey(txnID), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			current, err := repo.FindTransactionByID(ctx, txnID)
			if err != nil {
				return err
			}
			if err := checkEtag(etag, current.Etag()); err != nil {
				return err
			}
			next, err := workflow.MarkPaid(*current, actor, s.now())
			if err != nil {
				return err
			}
			if next.Status == current.Status {
				updated = current
				return nil
			}
			updated, err = repo.UpdateTransaction(ctx, &next)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
