package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTitle(t *testing.T) {
	title, err := NewTitle("  Install kitchen cabinets ")
	require.NoError(t, err)
	assert.Equal(t, "Install kitchen cabinets", title.String())

	_, err = NewTitle("   ")
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = NewTitle(strings.Repeat("a", 256))
	assert.ErrorIs(t, err, ErrTitleTooLong)
}

func TestNewTaskStatus(t *testing.T) {
	for _, s := range []string{"todo", "IN_PROGRESS", "review", "Done", "overdue", "on_hold", "ABORTED"} {
		_, err := NewTaskStatus(s)
		assert.NoError(t, err, s)
	}

	_, err := NewTaskStatus("blocked")
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
}

func TestNewRole_RejectsUnknownRoles(t *testing.T) {
	role, err := NewRole("Client")
	require.NoError(t, err)
	assert.Equal(t, RoleClient, role)

	for _, s := range []string{"", "superadmin", "owner"} {
		_, err := NewRole(s)
		assert.ErrorIs(t, err, ErrUnknownRole, s)
	}
}

func TestRole_Party(t *testing.T) {
	p, ok := RoleAdmin.Party()
	assert.True(t, ok)
	assert.Equal(t, PartyAdmin, p)

	p, ok = RoleClient.Party()
	assert.True(t, ok)
	assert.Equal(t, PartyClient, p)

	_, ok = RoleDesigner.Party()
	assert.False(t, ok)
	_, ok = RoleVendor.Party()
	assert.False(t, ok)
}

func TestNewStagePartyAction(t *testing.T) {
	stage, err := NewStage("additional_budget")
	require.NoError(t, err)
	assert.Equal(t, StageAdditionalBudget, stage)
	_, err = NewStage("final")
	assert.ErrorIs(t, err, ErrUnknownStage)

	party, err := NewParty("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, PartyAdmin, party)
	_, err = NewParty("vendor")
	assert.ErrorIs(t, err, ErrInvalidParty)

	action, err := NewApprovalAction("revoke")
	require.NoError(t, err)
	assert.Equal(t, ActionRevoke, action)
	_, err = NewApprovalAction("undo")
	assert.ErrorIs(t, err, ErrInvalidApprovalAction)
}

func TestNewTransactionType(t *testing.T) {
	typ, err := NewTransactionType("income")
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeIncome, typ)

	_, err = NewTransactionType("refund")
	assert.ErrorIs(t, err, ErrInvalidTransactionType)
}

func TestNewAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "50000", want: "50000"},
		{in: "12.5", want: "12.5"},
		{in: "0", want: "0"},
		{in: "10.500", want: "10.5"},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.005", wantErr: true},
		{in: "9999999999999999.99", want: "9999999999999999.99"},
		{in: "10000000000000000", wantErr: true},
		{in: "1e16", wantErr: true},
		{in: "1e900000000", wantErr: true},
		{in: "1e-900000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NewAmount(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", d.String())
	assert.Equal(t, NewDate(2026, time.March, 1), d.AddDays(1))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.True(t, d.AddDays(1).After(d))

	_, err = ParseDate("2026-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)

	// DateOf drops the time of day in the value's own location.
	loc := time.FixedZone("UTC+3", 3*60*60)
	assert.Equal(t, NewDate(2026, time.January, 2), DateOf(time.Date(2026, 1, 2, 1, 0, 0, 0, loc)))
}

func TestDate_JSON(t *testing.T) {
	type doc struct {
		Due Date `json:"due"`
	}

	b, err := json.Marshal(doc{Due: NewDate(2026, time.July, 4)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2026-07-04"}`, string(b))

	var got doc
	require.NoError(t, json.Unmarshal([]byte(`{"due":""}`), &got))
	assert.True(t, got.Due.IsZero())

	err = json.Unmarshal([]byte(`{"due":"07/04/2026"}`), &got)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestTask_IsOverdue(t *testing.T) {
	today := NewDate(2026, time.May, 10)
	yesterday := today.AddDays(-1)

	tests := []struct {
		status TaskStatus
		due    Date
		want   bool
	}{
		{TaskStatusTodo, yesterday, true},
		{TaskStatusInProgress, yesterday, true},
		{TaskStatusTodo, today, false},
		{TaskStatusTodo, Date{}, false},
		{TaskStatusDone, yesterday, false},
		{TaskStatusOverdue, yesterday, false},
		{TaskStatusAborted, yesterday, false},
		{TaskStatusOnHold, yesterday, false},
		{TaskStatusReview, yesterday, false},
	}

	for _, tt := range tests {
		task := Task{ID: "t", Status: tt.status, DueDate: tt.due}
		assert.Equal(t, tt.want, task.IsOverdue(today), "%s due %s", tt.status, tt.due)
	}
}

func TestFinancialTransaction_IsOverdue(t *testing.T) {
	today := NewDate(2026, time.May, 10)

	pending := FinancialTransaction{Status: TransactionStatusPending, Date: today.AddDays(-1)}
	assert.True(t, pending.IsOverdue(today))

	paid := FinancialTransaction{Status: TransactionStatusPaid, Date: today.AddDays(-1)}
	assert.False(t, paid.IsOverdue(today))

	due := FinancialTransaction{Status: TransactionStatusPending, Date: today}
	assert.False(t, due.IsOverdue(today))
}

func TestTask_Clone(t *testing.T) {
	orig := Task{
		ID:           "t1",
		Dependencies: []string{"a"},
		Subtasks:     []Subtask{{ID: "s1"}},
		Approvals:    NewTaskApprovals(),
	}

	c := orig.Clone()
	c.Dependencies[0] = "b"
	c.Subtasks[0].IsCompleted = true
	c.Approvals.Stages[StageStart] = ApprovalStage{}

	assert.Equal(t, "a", orig.Dependencies[0])
	assert.False(t, orig.Subtasks[0].IsCompleted)
	assert.Equal(t, ApprovalPending, orig.Approvals.Stages[StageStart].Admin.Status)
}
