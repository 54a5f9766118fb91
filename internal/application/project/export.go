package project

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/workflow"
)

// ExportProject writes a snapshot of the project, its tasks, transactions and budget summary
// to the archive and returns it.
func (s *Service) ExportProject(ctx context.Context, actor domain.Actor, projectID string) (*domain.ProjectSnapshot, error) {
	if s.archive == nil {
		return nil, domain.ErrArchiveUnavailable
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleClient {
		return nil, fmt.Errorf("%w: only project parties may export", domain.ErrForbidden)
	}

	var snap *domain.ProjectSnapshot
	err := s.repo.Atomic(ctx, func(repo Repository) error {
		p, err := repo.FindProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		tasks, err := repo.FindTasksByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		txns, err := repo.FindTransactionsByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}

		id, err := newID()
		if err != nil {
			return err
		}
		snap = &domain.ProjectSnapshot{
			ID:           id,
			ProjectID:    p.ID,
			TakenAt:      s.now(),
			TakenBy:      actor.ID,
			Project:      *p,
			Tasks:        tasks,
			Transactions: txns,
			Summary:      workflow.Summarize(*p, txns),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.archive.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Project exported", "project_id", projectID, "snapshot_id", snap.ID, "actor_id", actor.ID)
	return snap, nil
}

// ListExports returns the project's archived snapshots, newest first.
func (s *Service) ListExports(ctx context.Context, projectID string) ([]*domain.ProjectSnapshot, error) {
	if s.archive == nil {
		return nil, domain.ErrArchiveUnavailable
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.archive.ListSnapshots(ctx, projectID)
}

// GetExport returns one archived snapshot.
func (s *Service) GetExport(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error) {
	if s.archive == nil {
		return nil, domain.ErrArchiveUnavailable
	}
	return s.archive.GetSnapshot(ctx, projectID, snapshotID)
}
