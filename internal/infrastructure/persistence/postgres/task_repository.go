package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/atelier/internal/domain"
)

// === Task Repository Implementation ===

func (s *Store) CreateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	id, err := parseID(t.ID, domain.ErrTaskNotFound)
	if err != nil {
		return nil, err
	}
	projectID, err := parseID(t.ProjectID, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	subtasks, approvals, err := taskDocuments(t)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO tasks (id, project_id, title, category, assignee_id, start_date, due_date, status, status_source,
			dependencies, subtasks, approvals, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
		RETURNING `+taskColumns,
		id, projectID, t.Title, t.Category, t.AssigneeID, dateToPgtype(t.StartDate), dateToPgtype(t.DueDate),
		string(t.Status), string(t.StatusSource), dependencies(t), subtasks, approvals,
		timeToPgtype(t.CreatedAt), timeToPgtype(t.UpdatedAt))

	created, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	pgID, err := parseID(id, domain.ErrTaskNotFound)
	if err != nil {
		return nil, err
	}

	t, err := scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, pgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (s *Store) FindTasksByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	pgID, err := parseID(projectID, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at, id`, pgID)
}

func (s *Store) FindTasksDueBefore(ctx context.Context, day domain.Date) ([]domain.Task, error) {
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE due_date IS NOT NULL AND due_date < $1
		  AND status NOT IN ('DONE', 'OVERDUE', 'ABORTED', 'ON_HOLD', 'REVIEW')
		ORDER BY due_date, id`, dateToPgtype(day))
}

func (s *Store) queryTasks(ctx context.Context, sql string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	id, err := parseID(t.ID, domain.ErrTaskNotFound)
	if err != nil {
		return nil, err
	}
	subtasks, approvals, err := taskDocuments(t)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE tasks
		SET title = $3, category = $4, assignee_id = $5, start_date = $6, due_date = $7, status = $8,
			status_source = $9, dependencies = $10, subtasks = $11, approvals = $12, updated_at = $13,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING `+taskColumns,
		id, t.Version, t.Title, t.Category, t.AssigneeID, dateToPgtype(t.StartDate), dateToPgtype(t.DueDate),
		string(t.Status), string(t.StatusSource), dependencies(t), subtasks, approvals, timeToPgtype(t.UpdatedAt))

	updated, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.versionMiss(ctx, "tasks", id, t.Version, domain.ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}
