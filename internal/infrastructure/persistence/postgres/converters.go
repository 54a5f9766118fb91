package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/rezkam/atelier/internal/domain"
)

// === pgtype Conversion Helpers ===

// parseID validates an id before it reaches a UUID column.
// Malformed ids are reported as notFound since no row can have them.
func parseID(id string, notFound error) (pgtype.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %w", notFound, domain.ErrInvalidID)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func pgtypeToUUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

func timeToPgtype(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// timePtrToPgtype maps nil to NULL.
func timePtrToPgtype(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// pgtypeToTime returns UTC, or the zero time for NULL.
func pgtypeToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func pgtypeToTimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

// dateToPgtype maps the zero Date to NULL.
func dateToPgtype(d domain.Date) pgtype.Date {
	if d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func pgtypeToDate(d pgtype.Date) domain.Date {
	if !d.Valid {
		return domain.Date{}
	}
	return domain.DateOf(d.Time)
}

// Amounts travel as text so NUMERIC precision is never routed through float64.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", s, err)
	}
	return d, nil
}

// === Row Scanning ===

const projectColumns = `id, name, client_id, initial_budget::text, budget::text, created_at, updated_at, version`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		id              pgtype.UUID
		initial, budget string
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
		p               domain.Project
	)
	if err := row.Scan(&id, &p.Name, &p.ClientID, &initial, &budget, &createdAt, &updatedAt, &p.Version); err != nil {
		return nil, err
	}

	var err error
	if p.InitialBudget, err = parseAmount(initial); err != nil {
		return nil, err
	}
	if p.Budget, err = parseAmount(budget); err != nil {
		return nil, err
	}
	p.ID = pgtypeToUUIDString(id)
	p.CreatedAt = pgtypeToTime(createdAt)
	p.UpdatedAt = pgtypeToTime(updatedAt)
	return &p, nil
}

const taskColumns = `id, project_id, title, category, assignee_id, start_date, due_date, status, status_source,
	dependencies, subtasks, approvals, created_at, updated_at, version`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		id, projectID       pgtype.UUID
		start, due          pgtype.Date
		status, source      string
		subtasks, approvals []byte
		createdAt           pgtype.Timestamptz
		updatedAt           pgtype.Timestamptz
		t                   domain.Task
	)
	err := row.Scan(&id, &projectID, &t.Title, &t.Category, &t.AssigneeID, &start, &due, &status, &source,
		&t.Dependencies, &subtasks, &approvals, &createdAt, &updatedAt, &t.Version)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(subtasks, &t.Subtasks); err != nil {
		return nil, fmt.Errorf("failed to decode subtasks: %w", err)
	}
	if err := json.Unmarshal(approvals, &t.Approvals); err != nil {
		return nil, fmt.Errorf("failed to decode approvals: %w", err)
	}

	t.ID = pgtypeToUUIDString(id)
	t.ProjectID = pgtypeToUUIDString(projectID)
	t.StartDate = pgtypeToDate(start)
	t.DueDate = pgtypeToDate(due)
	t.Status = domain.TaskStatus(status)
	t.StatusSource = domain.StatusSource(source)
	t.CreatedAt = pgtypeToTime(createdAt)
	t.UpdatedAt = pgtypeToTime(updatedAt)
	return &t, nil
}

// taskDocuments encodes the JSONB columns of a task.
func taskDocuments(t *domain.Task) (subtasks, approvals []byte, err error) {
	st := t.Subtasks
	if st == nil {
		st = []domain.Subtask{}
	}
	if subtasks, err = json.Marshal(st); err != nil {
		return nil, nil, fmt.Errorf("failed to encode subtasks: %w", err)
	}
	if approvals, err = json.Marshal(t.Approvals); err != nil {
		return nil, nil, fmt.Errorf("failed to encode approvals: %w", err)
	}
	return subtasks, approvals, nil
}

func dependencies(t *domain.Task) []string {
	if t.Dependencies == nil {
		return []string{}
	}
	return t.Dependencies
}

const transactionColumns = `id, project_id, type, amount::text, category, description, vendor_id, status, date,
	approvals, created_at, updated_at, version`

func scanTransaction(row pgx.Row) (*domain.FinancialTransaction, error) {
	var (
		id, projectID pgtype.UUID
		typ, status   string
		amount        string
		date          pgtype.Date
		approvals     []byte
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
		t             domain.FinancialTransaction
	)
	err := row.Scan(&id, &projectID, &typ, &amount, &t.Category, &t.Description, &t.VendorID, &status, &date,
		&approvals, &createdAt, &updatedAt, &t.Version)
	if err != nil {
		return nil, err
	}

	if t.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(approvals, &t.Approvals); err != nil {
		return nil, fmt.Errorf("failed to decode approvals: %w", err)
	}

	t.ID = pgtypeToUUIDString(id)
	t.ProjectID = pgtypeToUUIDString(projectID)
	t.Type = domain.TransactionType(typ)
	t.Status = domain.TransactionStatus(status)
	t.Date = pgtypeToDate(date)
	t.CreatedAt = pgtypeToTime(createdAt)
	t.UpdatedAt = pgtypeToTime(updatedAt)
	return &t, nil
}

const approvalEventColumns = `id, entity_kind, entity_id, project_id, stage, party, action, actor_id, actor_role,
	result, fully_approved, created_at`

func scanApprovalEvent(row pgx.Row) (domain.ApprovalEvent, error) {
	var (
		id, entityID, projectID                  pgtype.UUID
		kind, stage, party, action, role, result string
		createdAt                                pgtype.Timestamptz
		e                                        domain.ApprovalEvent
	)
	err := row.Scan(&id, &kind, &entityID, &projectID, &stage, &party, &action, &e.ActorID, &role,
		&result, &e.FullyApproved, &createdAt)
	if err != nil {
		return e, err
	}

	e.ID = pgtypeToUUIDString(id)
	e.EntityKind = domain.EntityKind(kind)
	e.EntityID = pgtypeToUUIDString(entityID)
	e.ProjectID = pgtypeToUUIDString(projectID)
	e.Stage = domain.Stage(stage)
	e.Party = domain.Party(party)
	e.Action = domain.ApprovalAction(action)
	e.ActorRole = domain.Role(role)
	e.Result = domain.ApprovalStatus(result)
	e.CreatedAt = pgtypeToTime(createdAt)
	return e, nil
}

const apiKeyColumns = `id, key_type, service, version, short_token, long_secret_hash, name, actor_id, role,
	is_active, created_at, last_used_at, expires_at`

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	var (
		id                           pgtype.UUID
		role                         string
		createdAt, lastUsed, expires pgtype.Timestamptz
		k                            domain.APIKey
	)
	err := row.Scan(&id, &k.KeyType, &k.Service, &k.Version, &k.ShortToken, &k.LongSecretHash, &k.Name,
		&k.ActorID, &role, &k.IsActive, &createdAt, &lastUsed, &expires)
	if err != nil {
		return nil, err
	}

	k.ID = pgtypeToUUIDString(id)
	k.Role = domain.Role(role)
	k.CreatedAt = pgtypeToTime(createdAt)
	k.LastUsedAt = pgtypeToTimePtr(lastUsed)
	k.ExpiresAt = pgtypeToTimePtr(expires)
	return &k, nil
}
