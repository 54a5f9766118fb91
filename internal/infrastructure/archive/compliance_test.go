package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/domain"
)

func sampleSnapshot(projectID string, takenAt time.Time) *domain.ProjectSnapshot {
	budget := decimal.RequireFromString("200000.00")
	approvals := domain.NewTaskApprovals()
	return &domain.ProjectSnapshot{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ProjectID: projectID,
		TakenAt:   takenAt,
		TakenBy:   "admin-1",
		Project: domain.Project{
			ID:            projectID,
			Name:          "Harbour loft",
			InitialBudget: budget,
			Budget:        budget,
			CreatedAt:     takenAt,
			UpdatedAt:     takenAt,
			Version:       1,
		},
		Tasks: []domain.Task{{
			ID:           uuid.NewString(),
			ProjectID:    projectID,
			Title:        "Electrical",
			DueDate:      domain.NewDate(2026, time.July, 1),
			Status:       domain.TaskStatusTodo,
			StatusSource: domain.StatusSourceDerived,
			Dependencies: []string{},
			Subtasks:     []domain.Subtask{{ID: "s1", Title: "Wiring"}},
			Approvals:    approvals,
			CreatedAt:    takenAt,
			UpdatedAt:    takenAt,
			Version:      1,
		}},
		Transactions: []domain.FinancialTransaction{{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Type:      domain.TransactionTypeExpense,
			Amount:    decimal.RequireFromString("1250.50"),
			Category:  "Materials",
			VendorID:  "vendor-1",
			Status:    domain.TransactionStatusPending,
			Date:      domain.NewDate(2026, time.June, 30),
			Approvals: domain.NewTransactionApprovals(domain.TransactionTypeExpense, "Materials"),
			CreatedAt: takenAt,
			UpdatedAt: takenAt,
			Version:   1,
		}},
		Summary: domain.BudgetSummary{
			ProjectID:       projectID,
			InitialBudget:   budget,
			Committed:       budget,
			Budget:          budget,
			PendingExpenses: decimal.RequireFromString("1250.50"),
			Remaining:       decimal.RequireFromString("198749.50"),
			VendorEarnings:  map[string]decimal.Decimal{},
		},
	}
}

// runArchiveCompliance runs the behaviour every project.Archive implementation must share.
// setup returns a fresh, empty archive.
func runArchiveCompliance(t *testing.T, setup func(t *testing.T) project.Archive) {
	base := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	t.Run("SaveAndGet", func(t *testing.T) {
		store := setup(t)
		ctx := context.Background()
		snap := sampleSnapshot(uuid.NewString(), base)

		require.NoError(t, store.SaveSnapshot(ctx, snap))

		got, err := store.GetSnapshot(ctx, snap.ProjectID, snap.ID)
		require.NoError(t, err)
		assert.Equal(t, snap.ID, got.ID)
		assert.True(t, got.TakenAt.Equal(base))
		assert.Equal(t, "Harbour loft", got.Project.Name)
		assert.True(t, got.Project.Budget.Equal(snap.Project.Budget))

		require.Len(t, got.Tasks, 1)
		assert.Equal(t, snap.Tasks[0].DueDate, got.Tasks[0].DueDate)
		assert.True(t, got.Tasks[0].StartDate.IsZero())
		assert.Equal(t, snap.Tasks[0].Subtasks, got.Tasks[0].Subtasks)
		assert.Equal(t, snap.Tasks[0].Approvals.Stages, got.Tasks[0].Approvals.Stages)

		require.Len(t, got.Transactions, 1)
		assert.Equal(t, "1250.5", got.Transactions[0].Amount.String())
		assert.Equal(t, snap.Transactions[0].Date, got.Transactions[0].Date)
		assert.True(t, got.Summary.Remaining.Equal(snap.Summary.Remaining))
	})

	t.Run("SnapshotsAreImmutable", func(t *testing.T) {
		store := setup(t)
		ctx := context.Background()
		snap := sampleSnapshot(uuid.NewString(), base)

		require.NoError(t, store.SaveSnapshot(ctx, snap))
		assert.ErrorIs(t, store.SaveSnapshot(ctx, snap), ErrSnapshotExists)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		store := setup(t)
		ctx := context.Background()
		projectID := uuid.NewString()

		older := sampleSnapshot(projectID, base)
		newer := sampleSnapshot(projectID, base.Add(time.Hour))
		other := sampleSnapshot(uuid.NewString(), base.Add(2*time.Hour))
		require.NoError(t, store.SaveSnapshot(ctx, older))
		require.NoError(t, store.SaveSnapshot(ctx, newer))
		require.NoError(t, store.SaveSnapshot(ctx, other))

		list, err := store.ListSnapshots(ctx, projectID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})

	t.Run("ListEmptyProject", func(t *testing.T) {
		store := setup(t)

		list, err := store.ListSnapshots(context.Background(), uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("GetMissing", func(t *testing.T) {
		store := setup(t)

		_, err := store.GetSnapshot(context.Background(), uuid.NewString(), uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("RejectsPathLikeIDs", func(t *testing.T) {
		store := setup(t)

		_, err := store.GetSnapshot(context.Background(), "../etc", uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})
}
