package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Title is a validated title value object (1-255 characters).
type Title struct {
	value string
}

// NewTitle creates a new Title, validating the input.
func NewTitle(s string) (Title, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Title{}, ErrTitleRequired
	}

	if len(s) > 255 {
		return Title{}, ErrTitleTooLong
	}

	return Title{value: s}, nil
}

// String returns the title value.
func (t Title) String() string {
	return t.value
}

// NewTaskStatus validates and creates a TaskStatus. Input is case-insensitive.
func NewTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToUpper(strings.TrimSpace(s)))

	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone,
		TaskStatusOverdue, TaskStatusOnHold, TaskStatusAborted:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidTaskStatus, s)
	}
}

// NewRole validates and creates a Role. Unknown roles are rejected.
func NewRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))

	switch role {
	case RoleAdmin, RoleClient, RoleDesigner, RoleVendor:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownRole, s)
	}
}

// NewParty validates and creates a Party.
func NewParty(s string) (Party, error) {
	party := Party(strings.ToLower(strings.TrimSpace(s)))

	switch party {
	case PartyAdmin, PartyClient:
		return party, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidParty, s)
	}
}

// NewStage validates and creates a Stage.
func NewStage(s string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))

	switch stage {
	case StageStart, StageCompletion, StagePayment, StageAdditionalBudget:
		return stage, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStage, s)
	}
}

// NewApprovalAction validates and creates an ApprovalAction.
func NewApprovalAction(s string) (ApprovalAction, error) {
	action := ApprovalAction(strings.ToLower(strings.TrimSpace(s)))

	switch action {
	case ActionApprove, ActionReject, ActionRevoke:
		return action, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidApprovalAction, s)
	}
}

// NewTransactionType validates and creates a TransactionType.
func NewTransactionType(s string) (TransactionType, error) {
	typ := TransactionType(strings.ToUpper(strings.TrimSpace(s)))

	switch typ {
	case TransactionTypeIncome, TransactionTypeExpense:
		return typ, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidTransactionType, s)
	}
}

// Amounts are stored as NUMERIC(18,2): at most 16 integer digits.
const (
	maxAmountExponent = 16
	minAmountExponent = -18
)

var maxAmount = decimal.New(1, maxAmountExponent)

// NewAmount parses a non-negative decimal amount with at most two fractional digits.
func NewAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	// Rescaling is proportional to the exponent, so bound it before any comparison or rounding.
	if d.Exponent() > maxAmountExponent || d.Exponent() < minAmountExponent {
		return decimal.Decimal{}, fmt.Errorf("%w: out of range: %s", ErrInvalidAmount, s)
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return decimal.Decimal{}, fmt.Errorf("%w: out of range: %s", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, fmt.Errorf("%w: more than two decimal places: %s", ErrInvalidAmount, s)
	}
	return d.Round(2), nil
}
