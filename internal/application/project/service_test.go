package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atelier/internal/domain"
)

var (
	admin    = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	client   = domain.Actor{ID: "client-1", Role: domain.RoleClient}
	designer = domain.Actor{ID: "designer-1", Role: domain.RoleDesigner}
)

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	archive *fakeArchive
	clock   *fixedClock
	project *domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeRepo()
	archive := &fakeArchive{}
	clock := &fixedClock{t: time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)}
	svc := NewService(repo, nil, archive, clock, Config{})

	p, err := svc.CreateProject(context.Background(), admin, CreateProjectInput{
		Name:          "Harbour loft",
		ClientID:      client.ID,
		InitialBudget: "200000",
	})
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, archive: archive, clock: clock, project: p}
}

func (f *fixture) task(t *testing.T, title string, deps ...string) *domain.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), designer, CreateTaskInput{
		ProjectID:    f.project.ID,
		Title:        title,
		Dependencies: deps,
		Subtasks:     []string{"measure", "install"},
	})
	require.NoError(t, err)
	return task
}

// forceStatus writes a status straight to the repository, bypassing the workflow.
func (f *fixture) forceStatus(id string, status domain.TaskStatus) {
	t := f.repo.tasks[id]
	t.Status = status
	f.repo.tasks[id] = t
}

func approve(stage, party string) ApprovalInput {
	return ApprovalInput{Stage: stage, Party: party, Action: "approve"}
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Harbour loft", f.project.Name)
	assert.True(t, f.project.Budget.Equal(decimal.NewFromInt(200000)))
	assert.Equal(t, 1, f.project.Version)

	_, err := f.svc.CreateProject(context.Background(), client, CreateProjectInput{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.CreateProject(context.Background(), admin, CreateProjectInput{Name: " "})
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	_, err = f.svc.CreateProject(context.Background(), admin, CreateProjectInput{Name: "x", InitialBudget: "-5"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.task(t, "Demolition")
	assert.Equal(t, domain.TaskStatusTodo, a.Status)
	assert.Len(t, a.Subtasks, 2)
	assert.NotEqual(t, a.Subtasks[0].ID, a.Subtasks[1].ID)
	assert.Equal(t, domain.ApprovalPending, a.Approvals.Stages[domain.StageStart].Admin.Status)

	b := f.task(t, "Plumbing", a.ID)
	assert.Equal(t, []string{a.ID}, b.Dependencies)

	_, err := f.svc.CreateTask(ctx, designer, CreateTaskInput{ProjectID: f.project.ID, Title: "x", Dependencies: []string{"nope"}})
	assert.ErrorIs(t, err, domain.ErrUnknownDependency)

	_, err = f.svc.CreateTask(ctx, designer, CreateTaskInput{ProjectID: "missing", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = f.svc.CreateTask(ctx, designer, CreateTaskInput{ProjectID: f.project.ID, Title: "x", StartDate: "2026-07-10", DueDate: "2026-07-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	// Created already past due.
	late, err := f.svc.CreateTask(ctx, designer, CreateTaskInput{ProjectID: f.project.ID, Title: "late", DueDate: "2026-06-01"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOverdue, late.Status)
}

func TestRequestTaskStatus_BlockedByDependency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.task(t, "A")
	b := f.task(t, "B")
	tk := f.task(t, "T", a.ID, b.ID)
	f.forceStatus(a.ID, domain.TaskStatusDone)
	f.forceStatus(b.ID, domain.TaskStatusInProgress)

	res, err := f.svc.BlockingTasks(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	require.Len(t, res.Blocking, 1)
	assert.Equal(t, b.ID, res.Blocking[0].ID)

	_, err = f.svc.RequestTaskStatus(ctx, designer, tk.ID, "in_progress", "")
	var blocked *domain.DependencyBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, b.ID, blocked.Blocking[0].ID)

	f.forceStatus(b.ID, domain.TaskStatusDone)
	updated, err := f.svc.RequestTaskStatus(ctx, designer, tk.ID, "IN_PROGRESS", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)
	assert.Equal(t, domain.StatusSourceForced, updated.StatusSource)
	assert.Equal(t, tk.Version+1, updated.Version)
}

func TestRequestTaskStatus_EtagAndFreeze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.task(t, "Tiling")

	_, err := f.svc.RequestTaskStatus(ctx, admin, tk.ID, "ON_HOLD", `"99"`)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = f.svc.RequestTaskStatus(ctx, client, tk.ID, "ON_HOLD", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	held, err := f.svc.RequestTaskStatus(ctx, admin, tk.ID, "ON_HOLD", `"1"`)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusOnHold, held.Status)

	_, err = f.svc.SetSubtaskCompletion(ctx, designer, tk.ID, held.Subtasks[0].ID, true, "")
	assert.ErrorIs(t, err, domain.ErrFrozen)

	_, err = f.svc.ApplyTaskApproval(ctx, client, tk.ID, approve("start", "client"))
	assert.ErrorIs(t, err, domain.ErrFrozen)

	_, err = f.svc.RequestTaskStatus(ctx, designer, tk.ID, "bogus", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTaskStatus)
}

func TestSetSubtaskCompletion_DerivesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.task(t, "Cabinets")

	got, err := f.svc.SetSubtaskCompletion(ctx, designer, tk.ID, tk.Subtasks[0].ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status)

	got, err = f.svc.SetSubtaskCompletion(ctx, designer, tk.ID, tk.Subtasks[1].ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusReview, got.Status)

	_, err = f.svc.SetSubtaskCompletion(ctx, designer, tk.ID, "missing", true, "")
	assert.ErrorIs(t, err, domain.ErrSubtaskNotFound)
}

func TestApplyTaskApproval_FullFlowAndAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.task(t, "Electrical")

	steps := []struct {
		actor domain.Actor
		in    ApprovalInput
	}{
		{client, approve("completion", "")},
		{admin, approve("start", "admin")},
		{client, approve("start", "client")},
		{admin, approve("completion", "admin")},
	}

	var got *domain.Task
	for _, s := range steps {
		var err error
		got, err = f.svc.ApplyTaskApproval(ctx, s.actor, tk.ID, s.in)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.TaskStatusDone, got.Status)
	assert.True(t, got.Approvals.AllApproved())

	events, err := f.svc.ListApprovalEvents(ctx, domain.EntityTask, tk.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.PartyClient, events[0].Party)
	assert.False(t, events[1].FullyApproved)
	assert.True(t, events[2].FullyApproved)
	assert.True(t, events[3].FullyApproved)

	// Repeating a recorded decision is a no-op: no new version, no new event.
	again, err := f.svc.ApplyTaskApproval(ctx, admin, tk.ID, approve("start", "admin"))
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)
	events, _ = f.svc.ListApprovalEvents(ctx, domain.EntityTask, tk.ID)
	assert.Len(t, events, 4)

	// Locked stage cannot be revoked.
	_, err = f.svc.ApplyTaskApproval(ctx, admin, tk.ID, ApprovalInput{Stage: "start", Party: "client", Action: "revoke"})
	assert.ErrorIs(t, err, domain.ErrStageLocked)
}

func TestApplyTaskApproval_RoleChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.task(t, "Painting")

	_, err := f.svc.ApplyTaskApproval(ctx, admin, tk.ID, approve("start", "client"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ApplyTaskApproval(ctx, designer, tk.ID, approve("start", ""))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.ApplyTaskApproval(ctx, admin, tk.ID, approve("payment", "admin"))
	assert.ErrorIs(t, err, domain.ErrUnknownStage)
}

func TestApplyTaskApproval_RollsBackOnPersistFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tk := f.task(t, "Flooring")

	boom := errors.New("disk full")
	f.repo.failUpdateTask = boom
	_, err := f.svc.ApplyTaskApproval(ctx, admin, tk.ID, approve("start", "admin"))
	assert.ErrorIs(t, err, boom)

	f.repo.failUpdateTask = nil
	events, err := f.svc.ListApprovalEvents(ctx, domain.EntityTask, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSetTaskDependencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.task(t, "A")
	b := f.task(t, "B", a.ID)

	_, err := f.svc.SetTaskDependencies(ctx, designer, a.ID, []string{b.ID}, "")
	assert.ErrorIs(t, err, domain.ErrDependencyCycle)

	_, err = f.svc.SetTaskDependencies(ctx, designer, a.ID, []string{a.ID}, "")
	assert.ErrorIs(t, err, domain.ErrSelfDependency)

	c := f.task(t, "C")
	got, err := f.svc.SetTaskDependencies(ctx, designer, a.ID, []string{c.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, got.Dependencies)
}

func TestApplyTransactionApproval_AdditionalBudgetCreditedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{
		ProjectID: f.project.ID,
		Type:      "income",
		Amount:    "50000",
		Category:  domain.CategoryAdditionalBudget,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
	assert.Equal(t, domain.NewDate(2026, time.June, 15), txn.Date)

	_, err = f.svc.ApplyTransactionApproval(ctx, client, txn.ID, approve("additional_budget", "client"))
	require.NoError(t, err)
	p, _ := f.svc.GetProject(ctx, f.project.ID)
	assert.True(t, p.Budget.Equal(decimal.NewFromInt(200000)))

	got, err := f.svc.ApplyTransactionApproval(ctx, admin, txn.ID, approve("additional_budget", "admin"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPaid, got.Status)

	p, _ = f.svc.GetProject(ctx, f.project.ID)
	assert.True(t, p.Budget.Equal(decimal.NewFromInt(250000)), p.Budget.String())

	// Replaying the final approval does not credit again.
	_, err = f.svc.ApplyTransactionApproval(ctx, admin, txn.ID, approve("additional_budget", "admin"))
	require.NoError(t, err)
	p, _ = f.svc.GetProject(ctx, f.project.ID)
	assert.True(t, p.Budget.Equal(decimal.NewFromInt(250000)), p.Budget.String())

	summary, err := f.svc.GetBudgetSummary(ctx, f.project.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalAdditionalBudget.Equal(decimal.NewFromInt(50000)))
	assert.True(t, summary.Committed.Equal(p.Budget))
}

func TestReconcile_LedgerBlocksSecondCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{
		ProjectID: f.project.ID, Type: "INCOME", Amount: "1000", Category: domain.CategoryAdditionalBudget,
	})
	require.NoError(t, err)
	_, err = f.svc.ApplyTransactionApproval(ctx, client, txn.ID, approve("additional_budget", ""))
	require.NoError(t, err)
	_, err = f.svc.ApplyTransactionApproval(ctx, admin, txn.ID, approve("additional_budget", ""))
	require.NoError(t, err)

	// Simulate a stale writer resetting the status: the ledger still prevents a second credit.
	stale := f.repo.txns[txn.ID]
	stale.Status = domain.TransactionStatusPending
	f.repo.txns[txn.ID] = stale

	err = f.repo.Atomic(ctx, func(repo Repository) error {
		current, err := repo.FindTransactionByID(ctx, txn.ID)
		require.NoError(t, err)
		credited, err := f.svc.reconcile(ctx, repo, current)
		assert.Nil(t, credited)
		return err
	})
	require.NoError(t, err)

	p, _ := f.svc.GetProject(ctx, f.project.ID)
	assert.True(t, p.Budget.Equal(decimal.NewFromInt(201000)), p.Budget.String())
}

func TestApplyTransactionApproval_PaymentSettlesExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{
		ProjectID: f.project.ID, Type: "expense", Amount: "1250.50", Category: "Materials", VendorID: "vendor-7",
	})
	require.NoError(t, err)

	_, err = f.svc.ApplyTransactionApproval(ctx, admin, txn.ID, approve("payment", "admin"))
	require.NoError(t, err)
	got, err := f.svc.ApplyTransactionApproval(ctx, client, txn.ID, approve("payment", "client"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPaid, got.Status)

	summary, err := f.svc.GetBudgetSummary(ctx, f.project.ID)
	require.NoError(t, err)
	assert.True(t, summary.PaidOut.Equal(decimal.RequireFromString("1250.50")))
	assert.True(t, summary.VendorEarnings["vendor-7"].Equal(decimal.RequireFromString("1250.50")))
	assert.True(t, f.project.Budget.Equal(summary.Budget))
}

func TestMarkTransactionPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{
		ProjectID: f.project.ID, Type: "expense", Amount: "80", Category: "Delivery",
	})
	require.NoError(t, err)

	_, err = f.svc.MarkTransactionPaid(ctx, client, txn.ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	paid, err := f.svc.MarkTransactionPaid(ctx, admin, txn.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPaid, paid.Status)

	again, err := f.svc.MarkTransactionPaid(ctx, admin, txn.ID, "")
	require.NoError(t, err)
	assert.Equal(t, paid.Version, again.Version)
}

func TestCreateTransaction_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{ProjectID: f.project.ID, Type: "gift", Amount: "1", Category: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)

	_, err = f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{ProjectID: f.project.ID, Type: "income", Amount: "1"})
	assert.ErrorIs(t, err, domain.ErrCategoryRequired)

	_, err = f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{ProjectID: f.project.ID, Type: "income", Amount: "1", Category: "x", Date: "tomorrow"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{ProjectID: "missing", Type: "income", Amount: "1", Category: "x"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, err := f.svc.CreateTask(ctx, designer, CreateTaskInput{ProjectID: f.project.ID, Title: "late", DueDate: "2026-06-20"})
	require.NoError(t, err)
	onTime, err := f.svc.CreateTask(ctx, designer, CreateTaskInput{ProjectID: f.project.ID, Title: "on time", DueDate: "2026-07-30"})
	require.NoError(t, err)
	txn, err := f.svc.CreateTransaction(ctx, admin, CreateTransactionInput{
		ProjectID: f.project.ID, Type: "income", Amount: "10", Category: "Deposit", Date: "2026-06-20",
	})
	require.NoError(t, err)

	result, err := f.svc.SweepOverdue(ctx, domain.NewDate(2026, time.June, 21))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Tasks: 1, Transactions: 1}, result)

	got, _ := f.svc.GetTask(ctx, late.ID)
	assert.Equal(t, domain.TaskStatusOverdue, got.Status)
	got, _ = f.svc.GetTask(ctx, onTime.ID)
	assert.Equal(t, domain.TaskStatusTodo, got.Status)
	gotTxn, _ := f.svc.GetTransaction(ctx, txn.ID)
	assert.Equal(t, domain.TransactionStatusOverdue, gotTxn.Status)

	// Idempotent.
	result, err = f.svc.SweepOverdue(ctx, domain.NewDate(2026, time.June, 21))
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)
}

func TestExportProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task(t, "Survey")

	_, err := f.svc.ExportProject(ctx, designer, f.project.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	snap, err := f.svc.ExportProject(ctx, client, f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, f.project.ID, snap.ProjectID)
	assert.Len(t, snap.Tasks, 1)
	assert.Equal(t, client.ID, snap.TakenBy)

	list, err := f.svc.ListExports(ctx, f.project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := f.svc.GetExport(ctx, f.project.ID, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)

	noArchive := NewService(f.repo, nil, nil, f.clock, Config{})
	_, err = noArchive.ExportProject(ctx, admin, f.project.ID)
	assert.ErrorIs(t, err, domain.ErrArchiveUnavailable)
}

func TestListApprovalEvents_UnknownEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListApprovalEvents(context.Background(), domain.EntityTask, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = f.svc.ListApprovalEvents(context.Background(), domain.EntityTransaction, "missing")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}
