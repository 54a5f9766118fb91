package project

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rezkam/atelier/internal/domain"
)

// fakeRepo is an in-memory Repository. Atomic restores the previous state when fn fails,
// so rollback behaviour can be asserted without a database.
type fakeRepo struct {
	mu       sync.Mutex
	projects map[string]domain.Project
	tasks    map[string]domain.Task
	txns     map[string]domain.FinancialTransaction
	events   []domain.ApprovalEvent
	effects  map[string]bool

	// failUpdateTask makes UpdateTask return this error when set.
	failUpdateTask error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects: make(map[string]domain.Project),
		tasks:    make(map[string]domain.Task),
		txns:     make(map[string]domain.FinancialTransaction),
		effects:  make(map[string]bool),
	}
}

func (r *fakeRepo) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	c := *p
	c.Version = 1
	r.projects[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) FindProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return &p, nil
}

func (r *fakeRepo) UpdateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	cur, ok := r.projects[p.ID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	if cur.Version != p.Version {
		return nil, domain.ErrVersionConflict
	}
	c := *p
	c.Version++
	r.projects[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	c := t.Clone()
	c.Version = 1
	r.tasks[c.ID] = c
	out := c.Clone()
	return &out, nil
}

func (r *fakeRepo) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	c := t.Clone()
	return &c, nil
}

func (r *fakeRepo) FindTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) FindTasksDueBefore(ctx context.Context, day domain.Date) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range r.tasks {
		if !t.DueDate.IsZero() && t.DueDate.Before(day) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) UpdateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	if r.failUpdateTask != nil {
		return nil, r.failUpdateTask
	}
	cur, ok := r.tasks[t.ID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if cur.Version != t.Version {
		return nil, domain.ErrVersionConflict
	}
	c := t.Clone()
	c.Version++
	r.tasks[c.ID] = c
	out := c.Clone()
	return &out, nil
}

func (r *fakeRepo) CreateTransaction(ctx context.Context, t *domain.FinancialTransaction) (*domain.FinancialTransaction, error) {
	c := *t
	c.Approvals = t.Approvals.Clone()
	c.Version = 1
	r.txns[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) FindTransactionByID(ctx context.Context, id string) (*domain.FinancialTransaction, error) {
	t, ok := r.txns[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	t.Approvals = t.Approvals.Clone()
	return &t, nil
}

func (r *fakeRepo) FindTransactionsByProject(ctx context.Context, projectID string) ([]domain.FinancialTransaction, error) {
	var out []domain.FinancialTransaction
	for _, t := range r.txns {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) FindPendingTransactionsBefore(ctx context.Context, day domain.Date) ([]domain.FinancialTransaction, error) {
	var out []domain.FinancialTransaction
	for _, t := range r.txns {
		if t.Status == domain.TransactionStatusPending && t.Date.Before(day) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) UpdateTransaction(ctx context.Context, t *domain.FinancialTransaction) (*domain.FinancialTransaction, error) {
	cur, ok := r.txns[t.ID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if cur.Version != t.Version {
		return nil, domain.ErrVersionConflict
	}
	c := *t
	c.Approvals = t.Approvals.Clone()
	c.Version++
	r.txns[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) RecordApprovalEvent(ctx context.Context, e *domain.ApprovalEvent) error {
	r.events = append(r.events, *e)
	return nil
}

func (r *fakeRepo) FindApprovalEvents(ctx context.Context, kind domain.EntityKind, entityID string) ([]domain.ApprovalEvent, error) {
	var out []domain.ApprovalEvent
	for _, e := range r.events {
		if e.EntityKind == kind && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) ClaimEffect(ctx context.Context, key string) error {
	if r.effects[key] {
		return domain.ErrAlreadyApplied
	}
	r.effects[key] = true
	return nil
}

func (r *fakeRepo) Atomic(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects := maps.Clone(r.projects)
	tasks := maps.Clone(r.tasks)
	txns := maps.Clone(r.txns)
	events := slices.Clone(r.events)
	effects := maps.Clone(r.effects)

	if err := fn(r); err != nil {
		r.projects, r.tasks, r.txns, r.events, r.effects = projects, tasks, txns, events, effects
		return err
	}
	return nil
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.t
}

// fakeArchive keeps snapshots in memory.
type fakeArchive struct {
	snapshots []*domain.ProjectSnapshot
	saveErr   error
}

func (a *fakeArchive) SaveSnapshot(ctx context.Context, snap *domain.ProjectSnapshot) error {
	if a.saveErr != nil {
		return a.saveErr
	}
	a.snapshots = append(a.snapshots, snap)
	return nil
}

func (a *fakeArchive) GetSnapshot(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error) {
	for _, s := range a.snapshots {
		if s.ProjectID == projectID && s.ID == snapshotID {
			return s, nil
		}
	}
	return nil, domain.ErrSnapshotNotFound
}

func (a *fakeArchive) ListSnapshots(ctx context.Context, projectID string) ([]*domain.ProjectSnapshot, error) {
	var out []*domain.ProjectSnapshot
	for i := len(a.snapshots) - 1; i >= 0; i-- {
		if a.snapshots[i].ProjectID == projectID {
			out = append(out, a.snapshots[i])
		}
	}
	return out, nil
}
