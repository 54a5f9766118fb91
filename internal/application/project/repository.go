package project

import (
	"context"
	"time"

	"github.com/rezkam/atelier/internal/domain"
)

// Repository defines storage operations for projects, tasks and financial transactions.
// All create/update operations return the entity as persisted, including version.
type Repository interface {
	// === Project Operations ===

	// CreateProject stores a new project.
	CreateProject(ctx context.Context, project *domain.Project) (*domain.Project, error)

	// FindProjectByID returns domain.ErrProjectNotFound if the project doesn't exist.
	FindProjectByID(ctx context.Context, id string) (*domain.Project, error)

	// UpdateProject persists project if its stored version still equals project.Version.
	// Returns domain.ErrVersionConflict otherwise, and the project with its new version on success.
	UpdateProject(ctx context.Context, project *domain.Project) (*domain.Project, error)

	// === Task Operations ===

	CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// FindTaskByID returns domain.ErrTaskNotFound if the task doesn't exist.
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)

	// FindTasksByProject returns every task of the project ordered by creation time.
	FindTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error)

	// FindTasksDueBefore returns tasks across all projects whose due date is before day.
	// The caller filters by status.
	FindTasksDueBefore(ctx context.Context, day domain.Date) ([]domain.Task, error)

	// UpdateTask persists task with the same version semantics as UpdateProject.
	UpdateTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// === Transaction Operations ===

	CreateTransaction(ctx context.Context, txn *domain.FinancialTransaction) (*domain.FinancialTransaction, error)

	// FindTransactionByID returns domain.ErrTransactionNotFound if the transaction doesn't exist.
	FindTransactionByID(ctx context.Context, id string) (*domain.FinancialTransaction, error)

	// FindTransactionsByProject returns every transaction of the project ordered by date.
	FindTransactionsByProject(ctx context.Context, projectID string) ([]domain.FinancialTransaction, error)

	// FindPendingTransactionsBefore returns PENDING transactions dated before day.
	FindPendingTransactionsBefore(ctx context.Context, day domain.Date) ([]domain.FinancialTransaction, error)

	// UpdateTransaction persists txn with the same version semantics as UpdateProject.
	UpdateTransaction(ctx context.Context, txn *domain.FinancialTransaction) (*domain.FinancialTransaction, error)

	// === Audit and Idempotency ===

	RecordApprovalEvent(ctx context.Context, event *domain.ApprovalEvent) error

	// FindApprovalEvents returns the audit trail of one entity, oldest first.
	FindApprovalEvents(ctx context.Context, kind domain.EntityKind, entityID string) ([]domain.ApprovalEvent, error)

	// ClaimEffect records key in the applied-effects ledger.
	// Returns domain.ErrAlreadyApplied when the key was claimed before.
	ClaimEffect(ctx context.Context, key string) error

	// Atomic runs fn inside a single transaction. fn receives a repository bound to it.
	Atomic(ctx context.Context, fn func(repo Repository) error) error
}

// Locker serializes writers of one entity across service instances.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	// The returned function releases the lock.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Archive stores exported project snapshots.
type Archive interface {
	SaveSnapshot(ctx context.Context, snapshot *domain.ProjectSnapshot) error

	// GetSnapshot returns domain.ErrSnapshotNotFound if the snapshot doesn't exist.
	GetSnapshot(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error)

	// ListSnapshots returns the project's snapshots, newest first.
	ListSnapshots(ctx context.Context, projectID string) ([]*domain.ProjectSnapshot, error)
}

// Clock supplies the current time. The workflow never reads the wall clock directly.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
