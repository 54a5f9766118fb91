package auth

import (
	"context"
	"time"

	"github.com/rezkam/atelier/internal/domain"
)

// Repository defines storage operations for API keys.
type Repository interface {
	// FindByShortToken returns domain.ErrNotFound if no key has the token.
	FindByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error)

	UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error

	Create(ctx context.Context, key *domain.APIKey) error
}
