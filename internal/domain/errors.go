package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Workflow rule violations. All of them are recoverable by the caller.
var (
	// ErrForbidden indicates the actor's role may not perform the requested action.
	ErrForbidden = errors.New("forbidden")

	// ErrStageLocked indicates a revoke against a stage both parties already approved.
	// It wraps ErrForbidden so callers checking for either match.
	ErrStageLocked = fmt.Errorf("%w: cannot revoke once both parties have approved", ErrForbidden)

	// ErrDependencyBlocked indicates unmet dependencies. See DependencyBlockedError.
	ErrDependencyBlocked = errors.New("blocked by unfinished dependencies")

	// ErrFrozen indicates a mutation of an ON_HOLD or ABORTED task by a non-admin.
	ErrFrozen = errors.New("task is frozen")

	// ErrSelfDependency indicates a task listed itself as a dependency.
	ErrSelfDependency = errors.New("task cannot depend on itself")

	// ErrAlreadyApplied indicates an aggregate effect was already applied once.
	ErrAlreadyApplied = errors.New("effect already applied")

	// ErrDependencyCycle indicates a dependency chain that loops back. See DependencyCycleError.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	// ErrUnknownDependency indicates a dependency id that is not a task of the same project.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrCellAlreadyDecided indicates an approve/reject against a cell that is not pending.
	ErrCellAlreadyDecided = errors.New("approval already decided, revoke it first")

	// ErrApprovalRequired indicates a transition that needs a fully approved stage first.
	ErrApprovalRequired = errors.New("approval required")

	// ErrInvalidTransition indicates a status that can never be requested explicitly.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStageNotApproved indicates reconciliation of a stage that is not fully approved.
	ErrStageNotApproved = errors.New("stage is not fully approved")

	// ErrNotBudgetIncrease indicates reconciliation of a transaction that is not additional-budget income.
	ErrNotBudgetIncrease = errors.New("transaction is not an additional budget income")
)

// Validation errors.
var (
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleTooLong           = errors.New("title must be 255 characters or less")
	ErrNameRequired           = errors.New("name is required")
	ErrCategoryRequired       = errors.New("category is required")
	ErrInvalidTaskStatus      = errors.New("invalid task status")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrUnknownRole            = errors.New("unknown role")
	ErrUnknownStage           = errors.New("unknown approval stage")
	ErrInvalidParty           = errors.New("invalid approval party")
	ErrInvalidApprovalAction  = errors.New("invalid approval action")
	ErrInvalidAmount          = errors.New("amount must be a non-negative decimal")
	ErrInvalidDate            = errors.New("invalid calendar date, expected YYYY-MM-DD")
	ErrInvalidDateRange       = errors.New("due date must not be before start date")
	ErrDuplicateSubtask       = errors.New("duplicate subtask id")
	ErrInvalidEtagFormat      = errors.New("invalid etag format")
)

// Errors returned by repository implementations.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	ErrProjectNotFound     = errors.New("project not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrSubtaskNotFound     = errors.New("subtask not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSnapshotNotFound    = errors.New("snapshot not found")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")

	// ErrVersionConflict indicates the entity changed since it was read.
	ErrVersionConflict = errors.New("version conflict: entity was modified")

	// ErrArchiveUnavailable indicates no snapshot archive is configured or it is not accepting writes.
	ErrArchiveUnavailable = errors.New("snapshot archive unavailable")
)

// Authentication errors.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidAPIKeyFormat = errors.New("invalid API key format")
)

// DependencyBlockedError carries the direct dependencies that are not DONE yet.
// Missing lists dependency ids that no longer resolve to a task.
type DependencyBlockedError struct {
	TaskID   string
	Blocking []Task
	Missing  []string
}

func (e *DependencyBlockedError) Error() string {
	ids := make([]string, 0, len(e.Blocking)+len(e.Missing))
	for _, t := range e.Blocking {
		ids = append(ids, t.ID)
	}
	ids = append(ids, e.Missing...)
	return fmt.Sprintf("task %s %s: [%s]", e.TaskID, ErrDependencyBlocked, strings.Join(ids, ", "))
}

func (e *DependencyBlockedError) Is(target error) bool {
	return target == ErrDependencyBlocked
}

// DependencyCycleError carries the task ids forming the loop, first id repeated at the end.
type DependencyCycleError struct {
	Path []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDependencyCycle, strings.Join(e.Path, " -> "))
}

func (e *DependencyCycleError) Is(target error) bool {
	return target == ErrDependencyCycle
}
