package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/atelier/internal/domain"
)

// === Transaction Repository Implementation ===

func (s *Store) CreateTransaction(ctx context.Context, t *domain.FinancialTransaction) (*domain.FinancialTransaction, error) {
	id, err := parseID(t.ID, domain.ErrTransactionNotFound)
	if err != nil {
		return nil, err
	}
	projectID, err := parseID(t.ProjectID, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	approvals, err := json.Marshal(t.Approvals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode approvals: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO transactions (id, project_id, type, amount, category, description, vendor_id, status, date,
			approvals, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, 1)
		RETURNING `+transactionColumns,
		id, projectID, string(t.Type), t.Amount.String(), t.Category, t.Description, t.VendorID,
		string(t.Status), dateToPgtype(t.Date), approvals, timeToPgtype(t.CreatedAt), timeToPgtype(t.UpdatedAt))

	created, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

func (s *Store) FindTransactionByID(ctx context.Context, id string) (*domain.FinancialTransaction, error) {
	pgID, err := parseID(id, domain.ErrTransactionNotFound)
	if err != nil {
		return nil, err
	}

	t, err := scanTransaction(s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, pgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (s *Store) FindTransactionsByProject(ctx context.Context, projectID string) ([]domain.FinancialTransaction, error) {
	pgID, err := parseID(projectID, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE project_id = $1 ORDER BY date, created_at, id`, pgID)
}

func (s *Store) FindPendingTransactionsBefore(ctx context.Context, day domain.Date) ([]domain.FinancialTransaction, error) {
	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE status = 'PENDING' AND date < $1
		ORDER BY date, id`, dateToPgtype(day))
}

func (s *Store) queryTransactions(ctx context.Context, sql string, args ...any) ([]domain.FinancialTransaction, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.FinancialTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.FinancialTransaction) (*domain.FinancialTransaction, error) {
	id, err := parseID(t.ID, domain.ErrTransactionNotFound)
	if err != nil {
		return nil, err
	}
	approvals, err := json.Marshal(t.Approvals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode approvals: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE transactions
		SET amount = $3::numeric, category = $4, description = $5, vendor_id = $6, status = $7, date = $8,
			approvals = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING `+transactionColumns,
		id, t.Version, t.Amount.String(), t.Category, t.Description, t.VendorID, string(t.Status),
		dateToPgtype(t.Date), approvals, timeToPgtype(t.UpdatedAt))

	updated, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.versionMiss(ctx, "transactions", id, t.Version, domain.ErrTransactionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return updated, nil
}
