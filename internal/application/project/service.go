package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/workflow"
)

// Default configuration values.
const (
	DefaultLockTimeout = 10 * time.Second
)

// Config holds configuration for the Service.
type Config struct {
	// LockTimeout bounds how long a writer waits for the per-entity lock.
	LockTimeout time.Duration

	// Location defines the calendar day used for due dates and overdue sweeps.
	Location *time.Location
}

// Service orchestrates the approval workflow against persistence.
//
// Every mutation follows the same shape: take the per-entity lock, load the current state inside
// Repository.Atomic, let the workflow package decide, then persist with a version check.
// Irreversible aggregate effects are additionally gated by Repository.ClaimEffect.
type Service struct {
	repo    Repository
	locker  Locker
	archive Archive
	clock   Clock
	config  Config
	metrics *metrics
}

// NewService creates a new project service.
// A nil locker falls back to in-process locking; a nil clock uses the system clock.
// archive may be nil, in which case exports fail with domain.ErrArchiveUnavailable.
func NewService(repo Repository, locker Locker, archive Archive, clock Clock, config Config) *Service {
	if config.LockTimeout <= 0 {
		config.LockTimeout = DefaultLockTimeout
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if locker == nil {
		locker = newLocalLocker()
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Service{
		repo:    repo,
		locker:  locker,
		archive: archive,
		clock:   clock,
		config:  config,
		metrics: newMetrics(),
	}
}

// now returns the current instant in UTC.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// today returns the current calendar day in the configured location.
func (s *Service) today() domain.Date {
	return domain.DateOf(s.clock.Now().In(s.config.Location))
}

// withLock runs fn while holding the lock for key.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.config.LockTimeout)
	defer cancel()

	release, err := s.locker.Acquire(lockCtx, key)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	defer release()

	return fn()
}

func newID() (string, error) {
	idObj, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return idObj.String(), nil
}

func checkEtag(etag string, current string) error {
	if etag == "" {
		return nil
	}
	if strings.Trim(etag, `"`) != current {
		return domain.ErrVersionConflict
	}
	return nil
}

// CreateProjectInput holds the fields of a new project.
type CreateProjectInput struct {
	Name          string
	ClientID      string
	InitialBudget string
}

// CreateProject creates a project. Only admins may create projects.
func (s *Service) CreateProject(ctx context.Context, actor domain.Actor, in CreateProjectInput) (*domain.Project, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin may create projects", domain.ErrForbidden)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}

	budget := decimal.Zero
	if in.InitialBudget != "" {
		var err error
		budget, err = domain.NewAmount(in.InitialBudget)
		if err != nil {
			return nil, err
		}
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Project{
		ID:            id,
		Name:          name,
		ClientID:      strings.TrimSpace(in.ClientID),
		InitialBudget: budget,
		Budget:        budget,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.CreateProject(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	slog.InfoContext(ctx, "Project created", "project_id", created.ID, "actor_id", actor.ID)
	return created, nil
}

// GetProject retrieves a project by ID.
func (s *Service) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	if id == "" {
		return nil, domain.ErrProjectNotFound
	}
	return s.repo.FindProjectByID(ctx, id)
}

// GetBudgetSummary computes the project's budget figures from its transactions.
func (s *Service) GetBudgetSummary(ctx context.Context, projectID string) (*domain.BudgetSummary, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	txns, err := s.repo.FindTransactionsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	summary := workflow.Summarize(*p, txns)
	if !summary.Committed.Equal(summary.Budget) {
		slog.WarnContext(ctx, "Stored budget differs from committed budget",
			"project_id", p.ID, "budget", summary.Budget.String(), "committed", summary.Committed.String())
	}
	return &summary, nil
}

// SweepResult reports how many entities a sweep promoted to OVERDUE.
type SweepResult struct {
	Tasks        int
	Transactions int
}

// SweepOverdue promotes every task and transaction that is overdue as of today.
// Entities changed concurrently are skipped and picked up by the next sweep.
func (s *Service) SweepOverdue(ctx context.Context, today domain.Date) (SweepResult, error) {
	var result SweepResult

	tasks, err := s.repo.FindTasksDueBefore(ctx, today)
	if err != nil {
		return result, fmt.Errorf("failed to load tasks due before %s: %w", today, err)
	}
	for _, id := range workflow.SweepOverdue(tasks, today) {
		changed, err := s.promoteTask(ctx, id, today)
		if err != nil {
			slog.WarnContext(ctx, "Failed to promote overdue task", "task_id", id, "error", err)
			continue
		}
		if changed {
			result.Tasks++
		}
	}

	txns, err := s.repo.FindPendingTransactionsBefore(ctx, today)
	if err != nil {
		return result, fmt.Errorf("failed to load transactions dated before %s: %w", today, err)
	}
	for _, id := range workflow.SweepOverdue(txns, today) {
		changed, err := s.promoteTransaction(ctx, id, today)
		if err != nil {
			slog.WarnContext(ctx, "Failed to promote overdue transaction", "transaction_id", id, "error", err)
			continue
		}
		if changed {
			result.Transactions++
		}
	}

	s.metrics.overduePromoted(ctx, domain.EntityTask, result.Tasks)
	s.metrics.overduePromoted(ctx, domain.EntityTransaction, result.Transactions)
	return result, nil
}

func (s *Service) promoteTask(ctx context.Context, id string, today domain.Date) (bool, error) {
	changed := false
	err := s.withLock(ctx, taskLockKey(id), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			task, err := repo.FindTaskByID(ctx, id)
			if err != nil {
				return err
			}
			next, ok := workflow.PromoteOverdue(*task, today)
			if !ok {
				return nil
			}
			next.UpdatedAt = s.now()
			if _, err := repo.UpdateTask(ctx, &next); err != nil {
				return err
			}
			changed = true
			return nil
		})
	})
	return changed, err
}

func (s *Service) promoteTransaction(ctx context.Context, id string, today domain.Date) (bool, error) {
	changed := false
	err := s.withLock(ctx, transactionLockKey(id), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			txn, err := repo.FindTransactionByID(ctx, id)
			if err != nil {
				return err
			}
			next, ok := workflow.PromoteOverdueTransaction(*txn, today)
			if !ok {
				return nil
			}
			next.UpdatedAt = s.now()
			if _, err := repo.UpdateTransaction(ctx, &next); err != nil {
				return err
			}
			changed = true
			return nil
		})
	})
	return changed, err
}

func taskLockKey(id string) string        { return "task:" + id }
func transactionLockKey(id string) string { return "transaction:" + id }
func dependencyLockKey(pid string) string { return "project-dependencies:" + pid }
func budgetEffectKey(txnID string) string { return "budget-credit:" + txnID }
