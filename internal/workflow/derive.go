package workflow

import (
	"github.com/rezkam/atelier/internal/domain"
)

// DeriveStatus computes the canonical status of a task from its approvals and checklist.
//
// Priority: DONE (all four approval cells APPROVED) over REVIEW (every subtask completed)
// over IN_PROGRESS (some subtasks completed, or already in progress) over TODO.
// Frozen tasks keep their status; only an explicit admin request moves them.
func DeriveStatus(task domain.Task) domain.TaskStatus {
	if task.IsFrozen() {
		return task.Status
	}
	if task.Approvals.AllApproved() {
		return domain.TaskStatusDone
	}

	completed := 0
	for _, s := range task.Subtasks {
		if s.IsCompleted {
			completed++
		}
	}

	switch {
	case len(task.Subtasks) > 0 && completed == len(task.Subtasks):
		return domain.TaskStatusReview
	case completed > 0 || task.Status == domain.TaskStatusInProgress:
		return domain.TaskStatusInProgress
	default:
		return domain.TaskStatusTodo
	}
}

// Rederive returns task with its derived status applied and the time-based OVERDUE
// promotion evaluated against today. Frozen tasks are returned unchanged.
func Rederive(task domain.Task, today domain.Date) domain.Task {
	if task.IsFrozen() {
		return task
	}
	task.Status = DeriveStatus(task)
	task.StatusSource = domain.StatusSourceDerived
	task, _ = PromoteOverdue(task, today)
	return task
}
