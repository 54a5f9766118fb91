package response

import (
	"errors"
	"net/http"

	"github.com/rezkam/atelier/internal/domain"
)

// validationFields names the request field each validation sentinel refers to.
var validationFields = []struct {
	err   error
	field string
}{
	{domain.ErrTitleRequired, "title"},
	{domain.ErrTitleTooLong, "title"},
	{domain.ErrNameRequired, "name"},
	{domain.ErrCategoryRequired, "category"},
	{domain.ErrInvalidTaskStatus, "status"},
	{domain.ErrInvalidTransactionType, "type"},
	{domain.ErrUnknownRole, "role"},
	{domain.ErrUnknownStage, "stage"},
	{domain.ErrInvalidParty, "party"},
	{domain.ErrInvalidApprovalAction, "action"},
	{domain.ErrInvalidAmount, "amount"},
	{domain.ErrInvalidDate, "date"},
	{domain.ErrInvalidDateRange, "due_date"},
	{domain.ErrDuplicateSubtask, "subtasks"},
	{domain.ErrInvalidEtagFormat, "etag"},
	{domain.ErrSelfDependency, "dependencies"},
	{domain.ErrUnknownDependency, "dependencies"},
}

// FromDomainError maps domain errors to HTTP responses.
// Not-found checks run before ErrInvalidID because repositories wrap both for malformed ids.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var blocked *domain.DependencyBlockedError
	var cycle *domain.DependencyCycleError

	switch {
	// Not found (404)
	case errors.Is(err, domain.ErrProjectNotFound):
		NotFound(w, "project")
	case errors.Is(err, domain.ErrTaskNotFound):
		NotFound(w, "task")
	case errors.Is(err, domain.ErrSubtaskNotFound):
		NotFound(w, "subtask")
	case errors.Is(err, domain.ErrTransactionNotFound):
		NotFound(w, "transaction")
	case errors.Is(err, domain.ErrSnapshotNotFound):
		NotFound(w, "snapshot")
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "resource")

	// Auth (401, 403)
	case errors.Is(err, domain.ErrUnauthorized):
		Unauthorized(w, "invalid or missing API key")
	case errors.Is(err, domain.ErrStageLocked):
		Error(w, "STAGE_LOCKED", err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrForbidden):
		Error(w, "FORBIDDEN", err.Error(), http.StatusForbidden)

	// Workflow conflicts (409)
	case errors.As(err, &blocked):
		details := make([]ErrorField, 0, len(blocked.Blocking)+len(blocked.Missing))
		for _, t := range blocked.Blocking {
			details = append(details, ErrorField{Field: t.ID, Issue: "dependency is " + string(t.Status)})
		}
		for _, id := range blocked.Missing {
			details = append(details, ErrorField{Field: id, Issue: "dependency no longer exists"})
		}
		Error(w, "DEPENDENCY_BLOCKED", domain.ErrDependencyBlocked.Error(), http.StatusConflict, details...)
	case errors.Is(err, domain.ErrFrozen):
		Error(w, "FROZEN", err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrVersionConflict):
		Error(w, "VERSION_CONFLICT", err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrAlreadyApplied):
		Error(w, "ALREADY_APPLIED", err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrCellAlreadyDecided):
		Error(w, "ALREADY_DECIDED", err.Error(), http.StatusConflict)

	// Rule violations on well-formed input (422)
	case errors.As(err, &cycle):
		details := make([]ErrorField, 0, len(cycle.Path))
		for _, id := range cycle.Path {
			details = append(details, ErrorField{Field: "dependencies", Issue: id})
		}
		Error(w, "DEPENDENCY_CYCLE", err.Error(), http.StatusUnprocessableEntity, details...)
	case errors.Is(err, domain.ErrApprovalRequired):
		Error(w, "APPROVAL_REQUIRED", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(w, "INVALID_TRANSITION", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrStageNotApproved):
		Error(w, "STAGE_NOT_APPROVED", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrNotBudgetIncrease):
		Error(w, "NOT_BUDGET_INCREASE", err.Error(), http.StatusUnprocessableEntity)

	// Dependencies (503)
	case errors.Is(err, domain.ErrArchiveUnavailable):
		Error(w, "ARCHIVE_UNAVAILABLE", "snapshot archive is unavailable", http.StatusServiceUnavailable)

	// Validation (400)
	case errors.Is(err, domain.ErrInvalidID):
		ValidationError(w, "id", "invalid ID format")
	default:
		for _, v := range validationFields {
			if errors.Is(err, v.err) {
				ValidationError(w, v.field, err.Error())
				return
			}
		}
		InternalError(w, r, err)
	}
}
