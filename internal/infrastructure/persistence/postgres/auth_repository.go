package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rezkam/atelier/internal/domain"
)

// === Auth Repository Implementation ===

// FindByShortToken retrieves an API key by its indexed short token.
func (s *Store) FindByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error) {
	key, err := scanAPIKey(s.db.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE short_token = $1`, shortToken))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: API key", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}
	return key, nil
}

// UpdateLastUsed moves last_used_at forward; an older timestamp is ignored.
// Returns domain.ErrNotFound if the key doesn't exist.
func (s *Store) UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error {
	id, err := parseID(keyID, domain.ErrNotFound)
	if err != nil {
		return err
	}

	var exists bool
	err = s.db.QueryRow(ctx, `
		WITH updated AS (
			UPDATE api_keys SET last_used_at = $2
			WHERE id = $1 AND (last_used_at IS NULL OR last_used_at < $2)
		)
		SELECT EXISTS (SELECT 1 FROM api_keys WHERE id = $1)`,
		id, timeToPgtype(at)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: API key", domain.ErrNotFound)
	}
	return nil
}

// Create stores a new API key.
func (s *Store) Create(ctx context.Context, key *domain.APIKey) error {
	id, err := parseID(key.ID, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO api_keys (`+apiKeyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, key.KeyType, key.Service, key.Version, key.ShortToken, key.LongSecretHash, key.Name,
		key.ActorID, string(key.Role), key.IsActive, timeToPgtype(key.CreatedAt),
		timePtrToPgtype(key.LastUsedAt), timePtrToPgtype(key.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	return nil
}
