package postgres

import (
	"context"
	"fmt"

	"github.com/rezkam/atelier/internal/domain"
)

// === Audit and Idempotency ===

func (s *Store) RecordApprovalEvent(ctx context.Context, e *domain.ApprovalEvent) error {
	id, err := parseID(e.ID, domain.ErrInvalidID)
	if err != nil {
		return err
	}
	entityID, err := parseID(e.EntityID, domain.ErrInvalidID)
	if err != nil {
		return err
	}
	projectID, err := parseID(e.ProjectID, domain.ErrProjectNotFound)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO approval_events (`+approvalEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, string(e.EntityKind), entityID, projectID, string(e.Stage), string(e.Party), string(e.Action),
		e.ActorID, string(e.ActorRole), string(e.Result), e.FullyApproved, timeToPgtype(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to record approval event: %w", err)
	}
	return nil
}

func (s *Store) FindApprovalEvents(ctx context.Context, kind domain.EntityKind, entityID string) ([]domain.ApprovalEvent, error) {
	id, err := parseID(entityID, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+approvalEventColumns+` FROM approval_events
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at, id`, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval events: %w", err)
	}
	defer rows.Close()

	var events []domain.ApprovalEvent
	for rows.Next() {
		e, err := scanApprovalEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ClaimEffect inserts key into the applied-effects ledger.
// The primary key makes a second claim affect zero rows, even across concurrent transactions.
func (s *Store) ClaimEffect(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO applied_effects (effect_key) VALUES ($1) ON CONFLICT (effect_key) DO NOTHING`, key)
	if err != nil {
		return fmt.Errorf("failed to claim effect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyApplied, key)
	}
	return nil
}
