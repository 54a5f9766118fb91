// Package auth resolves API keys to the actor and role they were issued for.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/infrastructure/keygen"
)

// Key format constants.
const (
	KeyType    = "sk"
	KeyService = "atelier"
	KeyVersion = "v1"
)

// Default configuration values.
const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultUpdateQueueSize  = 1000
)

// Config holds configuration for the Authenticator.
type Config struct {
	OperationTimeout time.Duration // Timeout for storage operations
	UpdateQueueSize  int           // Buffer size for last_used_at updates
}

type touch struct {
	keyID string
	at    time.Time
}

// Authenticator validates API keys and maps them to actors.
// last_used_at bookkeeping runs on a single background goroutine fed by a bounded queue.
type Authenticator struct {
	repo             Repository
	touches          chan touch
	stop             chan struct{}
	stopOnce         sync.Once
	wg               sync.WaitGroup
	operationTimeout time.Duration
	now              func() time.Time
}

// dummyHash is compared against when the short token is unknown, so a miss costs
// the same hash as a wrong secret.
var dummyHash = keygen.HashSecret("atelier-unknown-key")

// NewAuthenticator creates an authenticator and starts its last_used_at worker.
// Zero OperationTimeout gets the default; a non-positive queue size gets the default.
func NewAuthenticator(repo Repository, config Config) *Authenticator {
	if config.OperationTimeout <= 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.UpdateQueueSize <= 0 {
		config.UpdateQueueSize = DefaultUpdateQueueSize
	}

	a := &Authenticator{
		repo:             repo,
		touches:          make(chan touch, config.UpdateQueueSize),
		stop:             make(chan struct{}),
		operationTimeout: config.OperationTimeout,
		now:              func() time.Time { return time.Now().UTC() },
	}
	a.wg.Go(a.recordUsage)
	return a
}

func (a *Authenticator) recordUsage() {
	for {
		select {
		case t := <-a.touches:
			a.touch(t)
		case <-a.stop:
			for {
				select {
				case t := <-a.touches:
					a.touch(t)
				default:
					return
				}
			}
		}
	}
}

func (a *Authenticator) touch(t touch) {
	ctx, cancel := context.WithTimeout(context.Background(), a.operationTimeout)
	defer cancel()
	if err := a.repo.UpdateLastUsed(ctx, t.keyID, t.at); err != nil {
		slog.WarnContext(ctx, "Failed to update API key last_used_at", "key_id", t.keyID, "error", err)
	}
}

// Shutdown stops the worker after draining queued updates.
// It is idempotent and honours ctx's deadline.
func (a *Authenticator) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		close(a.stop)

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("shutdown timeout: %w", ctx.Err())
		}
	})
	return err
}

// Authenticate validates rawKey and returns the actor it was issued for.
// Every failure is reported as domain.ErrUnauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (domain.Actor, error) {
	parts, err := keygen.ParseAPIKey(strings.TrimSpace(rawKey))
	if err != nil || parts.Service != KeyService {
		return domain.Actor{}, domain.ErrUnauthorized
	}

	opCtx, cancel := context.WithTimeout(ctx, a.operationTimeout)
	defer cancel()

	key, err := a.repo.FindByShortToken(opCtx, parts.ShortToken)
	stored := dummyHash
	if err == nil {
		stored = key.LongSecretHash
	}

	provided := keygen.HashSecret(parts.LongSecret)
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 || err != nil {
		return domain.Actor{}, domain.ErrUnauthorized
	}
	now := a.now()
	if !key.IsActive || (key.ExpiresAt != nil && key.ExpiresAt.Before(now)) {
		return domain.Actor{}, domain.ErrUnauthorized
	}

	select {
	case a.touches <- touch{keyID: key.ID, at: now}:
	default:
		slog.WarnContext(ctx, "Dropped last_used_at update due to full queue", "key_id", key.ID)
	}

	return key.Actor(), nil
}

// IssueInput describes a key to issue.
type IssueInput struct {
	Name      string
	ActorID   string
	Role      string
	ExpiresAt *time.Time
}

// Issue creates an API key bound to an actor and returns the plain key.
// The plain key is never stored and cannot be recovered later.
func Issue(ctx context.Context, repo Repository, in IssueInput) (string, error) {
	role, err := domain.NewRole(in.Role)
	if err != nil {
		return "", err
	}
	actorID := strings.TrimSpace(in.ActorID)
	if actorID == "" {
		return "", fmt.Errorf("%w: actor id is required", domain.ErrInvalidID)
	}

	parts, err := keygen.GenerateAPIKey(KeyType, KeyService, KeyVersion)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate key ID: %w", err)
	}

	err = repo.Create(ctx, &domain.APIKey{
		ID:             id.String(),
		KeyType:        parts.KeyType,
		Service:        parts.Service,
		Version:        parts.Version,
		ShortToken:     parts.ShortToken,
		LongSecretHash: keygen.HashSecret(parts.LongSecret),
		Name:           in.Name,
		ActorID:        actorID,
		Role:           role,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      in.ExpiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create API key: %w", err)
	}

	return parts.FullKey, nil
}
