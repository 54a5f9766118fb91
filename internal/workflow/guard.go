package workflow

import (
	"fmt"
	"slices"
	"time"

	"github.com/rezkam/atelier/internal/domain"
)

// GuardTransition checks whether task may move to requested.
//
// It fails with ErrFrozen when the task is ON_HOLD or ABORTED and the actor is not an admin,
// with ErrSelfDependency when the task lists itself as a dependency, and with a
// *DependencyBlockedError when a non-TODO status is requested while a direct dependency is
// not DONE. A task whose four approval cells are all APPROVED is exempt from the dependency
// check, as are requests to freeze a task. An admin moving a task out of ON_HOLD or ABORTED
// is checked against its dependencies like any other request; the frozen state itself does
// not count as blocking, or a frozen task could only ever return to TODO.
func GuardTransition(task domain.Task, requested domain.TaskStatus, allTasks []domain.Task, actor domain.Actor) error {
	if task.IsFrozen() && !actor.IsAdmin() {
		return fmt.Errorf("%w: %s is %s", domain.ErrFrozen, task.ID, task.Status)
	}
	if slices.Contains(task.Dependencies, task.ID) {
		return domain.ErrSelfDependency
	}
	if requested == domain.TaskStatusTodo || requested.IsFrozen() || task.Approvals.AllApproved() {
		return nil
	}

	blocking, missing := unmet(task, index(allTasks))
	if len(blocking) > 0 || len(missing) > 0 {
		return &domain.DependencyBlockedError{TaskID: task.ID, Blocking: blocking, Missing: missing}
	}
	return nil
}

// GuardMutation rejects any change other than a status request on a frozen task unless the
// actor is an admin. Subtask toggles, dependency edits and approvals all go through it.
func GuardMutation(task domain.Task, actor domain.Actor) error {
	if task.IsFrozen() && !actor.IsAdmin() {
		return fmt.Errorf("%w: %s is %s", domain.ErrFrozen, task.ID, task.Status)
	}
	return nil
}

// RequestStatus applies an explicit status request and returns the updated task.
// The result is recorded as a forced status and bypasses derivation.
//
// On top of GuardTransition:
//   - OVERDUE is time-based and can never be requested
//   - only an admin may freeze a task (ON_HOLD, ABORTED) or move it out of a frozen state
//   - DONE requires all four approval cells to be APPROVED
func RequestStatus(task domain.Task, requested domain.TaskStatus, allTasks []domain.Task, actor domain.Actor, now time.Time) (domain.Task, error) {
	if requested == domain.TaskStatusOverdue {
		return domain.Task{}, fmt.Errorf("%w: %s is set by the overdue sweep", domain.ErrInvalidTransition, requested)
	}
	if err := GuardTransition(task, requested, allTasks, actor); err != nil {
		return domain.Task{}, err
	}
	if requested.IsFrozen() && !actor.IsAdmin() {
		return domain.Task{}, fmt.Errorf("%w: only an admin may set %s", domain.ErrForbidden, requested)
	}
	if requested == domain.TaskStatusDone && !task.Approvals.AllApproved() {
		return domain.Task{}, fmt.Errorf("%w: %s needs start and completion approved by both parties", domain.ErrApprovalRequired, requested)
	}

	next := task.Clone()
	next.Status = requested
	next.StatusSource = domain.StatusSourceForced
	next.UpdatedAt = now
	return next, nil
}

// SetSubtaskCompletion toggles one checklist entry and re-derives the task status.
func SetSubtaskCompletion(task domain.Task, subtaskID string, completed bool, actor domain.Actor, today domain.Date, now time.Time) (domain.Task, error) {
	if err := GuardMutation(task, actor); err != nil {
		return domain.Task{}, err
	}
	i := task.SubtaskIndex(subtaskID)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrSubtaskNotFound, subtaskID)
	}

	next := task.Clone()
	next.Subtasks[i].IsCompleted = completed
	next = Rederive(next, today)
	next.UpdatedAt = now
	return next, nil
}

// SetDependencies replaces the dependency set of task after validation.
func SetDependencies(task domain.Task, deps []string, allTasks []domain.Task, actor domain.Actor, now time.Time) (domain.Task, error) {
	if err := GuardMutation(task, actor); err != nil {
		return domain.Task{}, err
	}
	valid, err := ValidateDependencies(task, deps, allTasks)
	if err != nil {
		return domain.Task{}, err
	}

	next := task.Clone()
	next.Dependencies = valid
	next.UpdatedAt = now
	return next, nil
}

// ApplyTaskApproval applies an approval command to the task's matrix and re-derives its status.
// The returned event is non-nil when the command completed a stage.
func ApplyTaskApproval(task domain.Task, cmd domain.ApprovalCommand, today domain.Date) (domain.Task, *domain.StageFullyApproved, error) {
	if err := GuardMutation(task, cmd.Actor); err != nil {
		return domain.Task{}, nil, err
	}
	out, err := task.Approvals.Apply(cmd)
	if err != nil {
		return domain.Task{}, nil, err
	}

	next := task.Clone()
	next.Approvals = out.Matrix
	next = Rederive(next, today)
	next.UpdatedAt = cmd.At
	return next, out.Event, nil
}
