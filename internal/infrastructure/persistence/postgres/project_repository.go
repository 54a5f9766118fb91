package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rezkam/atelier/internal/domain"
)

// === Project Repository Implementation ===

// CreateProject inserts a project at version 1.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	id, err := parseID(p.ID, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO projects (id, name, client_id, initial_budget, budget, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, 1)
		RETURNING `+projectColumns,
		id, p.Name, p.ClientID, p.InitialBudget.String(), p.Budget.String(),
		timeToPgtype(p.CreatedAt), timeToPgtype(p.UpdatedAt))

	created, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return created, nil
}

// FindProjectByID returns domain.ErrProjectNotFound when no row matches.
func (s *Store) FindProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	pgID, err := parseID(id, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}

	p, err := scanProject(s.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, pgID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// UpdateProject writes p if the stored version still equals p.Version.
func (s *Store) UpdateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	id, err := parseID(p.ID, domain.ErrProjectNotFound)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE projects
		SET name = $3, client_id = $4, budget = $5::numeric, updated_at = $6, version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING `+projectColumns,
		id, p.Version, p.Name, p.ClientID, p.Budget.String(), timeToPgtype(p.UpdatedAt))

	updated, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.versionMiss(ctx, "projects", id, p.Version, domain.ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return updated, nil
}

// versionMiss tells a stale write apart from a missing row after a versioned UPDATE matched nothing.
func (s *Store) versionMiss(ctx context.Context, table string, id pgtype.UUID, expected int, notFound error) error {
	var current int
	err := s.db.QueryRow(ctx, `SELECT version FROM `+table+` WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("failed to check %s version: %w", table, err)
	}
	return fmt.Errorf("%w: expected version %d, current version %d", domain.ErrVersionConflict, expected, current)
}
